package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docqa/internal/middleware"
	appErr "github.com/xxxsen/docqa/internal/pkg/errors"
	"github.com/xxxsen/docqa/internal/tokenstore"
)

// Client talks to the document QA backend. Every request carries the
// persisted bearer token, read at send time. A 401 removes that token from
// the store and surfaces as an error matching errors.ErrUnauthenticated;
// reacting to it (navigation, re-login) is left to the caller.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  tokenstore.Store
	timeout time.Duration
}

type Option func(*Client)

// WithHTTPClient sets the underlying client. Its transport is wrapped with
// the request id, bearer and logging middlewares.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			copied := *hc
			c.http = &copied
		}
	}
}

// WithTimeout bounds each request. It takes precedence over the timeout of
// a client passed through WithHTTPClient, whatever the option order.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

func New(baseURL string, tokens tokenstore.Store, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{},
		tokens:  tokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		c.http.Timeout = c.timeout
	}
	c.http.Transport = middleware.Chain(c.http.Transport,
		middleware.RequestID(),
		middleware.BearerAuth(),
		middleware.Logging(),
	)
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

type request struct {
	op          string
	method      string
	path        string
	body        io.Reader
	size        int64
	contentType string
	// token overrides the persisted token when non-nil.
	token *string
}

type validator interface {
	Validate() error
}

func (c *Client) send(ctx context.Context, r request) ([]byte, error) {
	token := ""
	if r.token != nil {
		token = *r.token
	} else if c.tokens != nil {
		stored, err := c.tokens.Load()
		if err != nil {
			logutil.GetLogger(ctx).Warn("load token failed", zap.String("op", r.op), zap.Error(err))
		}
		token = stored
	}
	ctx = middleware.WithToken(ctx, token)

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, r.body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", r.op, err)
	}
	if r.size > 0 {
		req.ContentLength = r.size
	}
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &appErr.TransportError{Op: r.op, Err: err}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &appErr.TransportError{Op: r.op, Err: fmt.Errorf("read body: %w", err)}
	}
	if resp.StatusCode == http.StatusUnauthorized {
		c.dropToken(ctx, r.op, token)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &appErr.APIError{
			Status:  resp.StatusCode,
			Message: extractMessage(body, ""),
			Body:    body,
		}
	}
	return body, nil
}

func (c *Client) dropToken(ctx context.Context, op, token string) {
	if c.tokens == nil || token == "" {
		return
	}
	cleared, err := c.tokens.CompareAndClear(token)
	if err != nil {
		logutil.GetLogger(ctx).Error("clear token after 401 failed", zap.String("op", op), zap.Error(err))
		return
	}
	if cleared {
		logutil.GetLogger(ctx).Info("token rejected by backend, cleared", zap.String("op", op))
	}
}

func (c *Client) sendJSON(ctx context.Context, op, method, path string, in interface{}, out interface{}) error {
	req, err := jsonRequest(op, method, path, in)
	if err != nil {
		return err
	}
	resp, err := c.send(ctx, req)
	if err != nil {
		return err
	}
	return decode(op, resp, out)
}

func jsonRequest(op, method, path string, in interface{}) (request, error) {
	req := request{op: op, method: method, path: path}
	if in == nil {
		return req, nil
	}
	raw, err := json.Marshal(in)
	if err != nil {
		return req, fmt.Errorf("encode %s request: %w", op, err)
	}
	req.body = bytes.NewReader(raw)
	req.size = int64(len(raw))
	req.contentType = "application/json"
	return req, nil
}

func malformed(op string, err error) error {
	return &appErr.MalformedResponseError{Op: op, Reason: "schema", Err: err}
}

func decode(op string, body []byte, out interface{}) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &appErr.MalformedResponseError{Op: op, Reason: "invalid json", Err: err}
	}
	if v, ok := out.(validator); ok {
		if err := v.Validate(); err != nil {
			return malformed(op, err)
		}
	}
	return nil
}

// extractMessage pulls a human readable message out of an error payload.
// FastAPI style {"detail": "..."} and {"detail": [{"msg": "..."}]} are
// understood, as are {"message": "..."} and {"error": "..."}.
func extractMessage(body []byte, fallback string) string {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return fallback
	}
	for _, key := range []string{"detail", "message", "error"} {
		raw, ok := payload[key]
		if !ok {
			continue
		}
		var text string
		if err := json.Unmarshal(raw, &text); err == nil && strings.TrimSpace(text) != "" {
			return text
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(raw, &items); err == nil {
			msgs := make([]string, 0, len(items))
			for _, item := range items {
				if item.Msg != "" {
					msgs = append(msgs, item.Msg)
				}
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		}
	}
	return fallback
}
