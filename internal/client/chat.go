package client

import (
	"context"
	"net/http"

	"github.com/xxxsen/docqa/internal/model"
)

func (c *Client) Ask(ctx context.Context, req model.AskRequest) (*model.Answer, error) {
	if req.DocIDs == nil {
		req.DocIDs = []string{}
	}
	if req.ConversationHistory == nil {
		req.ConversationHistory = []model.HistoryTurn{}
	}
	answer := &model.Answer{}
	if err := c.sendJSON(ctx, "ask", http.MethodPost, "/ask", req, answer); err != nil {
		return nil, err
	}
	return answer, nil
}

func (c *Client) Compare(ctx context.Context, req model.CompareRequest) (*model.Comparison, error) {
	out := &model.Comparison{}
	if err := c.sendJSON(ctx, "compare", http.MethodPost, "/compare", req, out); err != nil {
		return nil, err
	}
	return out, nil
}
