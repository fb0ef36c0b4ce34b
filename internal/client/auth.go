package client

import (
	"context"
	"net/http"

	"github.com/xxxsen/docqa/internal/model"
)

// Me fetches the profile for token, ignoring whatever token is persisted.
func (c *Client) Me(ctx context.Context, token string) (*model.User, error) {
	resp, err := c.send(ctx, request{op: "me", method: http.MethodGet, path: "/auth/me", token: &token})
	if err != nil {
		return nil, err
	}
	user := &model.User{}
	if err := decode("me", resp, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Signup registers a new account. The returned token is not persisted here.
func (c *Client) Signup(ctx context.Context, req model.SignupRequest) (*model.TokenResponse, error) {
	return c.issueToken(ctx, "signup", "/auth/signup", req)
}

func (c *Client) Login(ctx context.Context, email, password string) (*model.TokenResponse, error) {
	return c.issueToken(ctx, "login", "/auth/login", model.LoginRequest{Email: email, Password: password})
}

func (c *Client) issueToken(ctx context.Context, op, path string, in interface{}) (*model.TokenResponse, error) {
	req, err := jsonRequest(op, http.MethodPost, path, in)
	if err != nil {
		return nil, err
	}
	// credentials endpoints never carry the persisted token
	anonymous := ""
	req.token = &anonymous
	resp, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}
	out := &model.TokenResponse{}
	if err := decode(op, resp, out); err != nil {
		return nil, err
	}
	return out, nil
}
