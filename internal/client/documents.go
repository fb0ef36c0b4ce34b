package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/xxxsen/docqa/internal/model"
)

// ProgressFunc receives the share of the upload body sent so far, in
// percent.
type ProgressFunc func(percent float64)

// Upload sends the file as the "file" field of a multipart form. The body
// is assembled in memory so its length is known up front; callers are
// expected to enforce the size ceiling before getting here.
func (c *Client) Upload(ctx context.Context, filename, contentType string, r io.Reader, progress ProgressFunc) (*model.Document, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(filepath.Base(filename))))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("create upload part: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("read upload file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close upload form: %w", err)
	}

	size := int64(buf.Len())
	body := newProgressReader(bytes.NewReader(buf.Bytes()), size, progress)
	resp, err := c.send(ctx, request{
		op:          "upload",
		method:      http.MethodPost,
		path:        "/upload",
		body:        body,
		size:        size,
		contentType: writer.FormDataContentType(),
	})
	if err != nil {
		return nil, err
	}
	body.finish()
	doc := &model.Document{}
	if err := decode("upload", resp, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (c *Client) ListDocuments(ctx context.Context) ([]model.Document, error) {
	resp, err := c.send(ctx, request{op: "list_documents", method: http.MethodGet, path: "/documents"})
	if err != nil {
		return nil, err
	}
	var docs []model.Document
	if err := decode("list_documents", resp, &docs); err != nil {
		return nil, err
	}
	if err := model.ValidateDocuments(docs); err != nil {
		return nil, malformed("list_documents", err)
	}
	if docs == nil {
		docs = []model.Document{}
	}
	return docs, nil
}

func (c *Client) DeleteDocument(ctx context.Context, docID string) (*model.DeleteResult, error) {
	if strings.TrimSpace(docID) == "" {
		return nil, fmt.Errorf("delete document: doc id is required")
	}
	resp, err := c.send(ctx, request{
		op:     "delete_document",
		method: http.MethodDelete,
		path:   "/documents/" + url.PathEscape(docID),
	})
	if err != nil {
		return nil, err
	}
	result := &model.DeleteResult{}
	if len(bytes.TrimSpace(resp)) == 0 {
		return result, nil
	}
	if err := decode("delete_document", resp, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) Suggestions(ctx context.Context, docID string) ([]string, error) {
	resp, err := c.send(ctx, request{
		op:     "suggestions",
		method: http.MethodGet,
		path:   "/suggestions/" + url.PathEscape(docID),
	})
	if err != nil {
		return nil, err
	}
	out := &model.SuggestionsResponse{}
	if err := decode("suggestions", resp, out); err != nil {
		return nil, err
	}
	return out.Suggestions, nil
}

func escapeQuotes(s string) string {
	return strings.NewReplacer("\\", "\\\\", `"`, "\\\"").Replace(s)
}
