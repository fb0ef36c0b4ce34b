package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docqa/internal/model"
	appErr "github.com/xxxsen/docqa/internal/pkg/errors"
	"github.com/xxxsen/docqa/internal/suggestcache"
)

const askFailedMessage = "Sorry, I encountered an error processing your question. Please try again."

type ChatAPI interface {
	Ask(ctx context.Context, req model.AskRequest) (*model.Answer, error)
	Compare(ctx context.Context, req model.CompareRequest) (*model.Comparison, error)
}

// ChatService is the transcript of one chat session. Messages are only
// ever appended; a failed question stays in place, flagged unanswered,
// followed by an error reply.
type ChatService struct {
	api         ChatAPI
	suggestions suggestcache.Source
	now         func() time.Time

	mu        sync.Mutex
	selection []model.Document
	messages  []model.ChatMessage
	suggested []string
	inFlight  bool
	closed    bool
}

func NewChatService(api ChatAPI, suggestions suggestcache.Source) *ChatService {
	return &ChatService{api: api, suggestions: suggestions, now: time.Now}
}

// SetSelection scopes later questions to docs. The transcript is kept.
func (s *ChatService) SetSelection(docs []model.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = append([]model.Document(nil), docs...)
}

func (s *ChatService) Selection() []model.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Document(nil), s.selection...)
}

// Ask sends question with the flattened transcript as context and returns
// the assistant reply.
func (s *ChatService) Ask(ctx context.Context, question string) (*model.ChatMessage, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, appErr.ErrEmptyQuestion
	}
	s.mu.Lock()
	if err := s.checkAskable(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	history := flattenHistory(s.messages)
	s.messages = append(s.messages, model.ChatMessage{
		ID:        uuid.NewString(),
		Role:      model.RoleUser,
		Content:   question,
		Timestamp: s.now(),
	})
	turn := len(s.messages) - 1
	s.inFlight = true
	docIDs := selectionIDs(s.selection)
	s.mu.Unlock()

	return s.exchange(ctx, turn, model.AskRequest{
		Question:            question,
		DocIDs:              docIDs,
		ConversationHistory: history,
	})
}

// Retry asks the latest question again when its answer failed. Nothing new
// is appended for the question itself.
func (s *ChatService) Retry(ctx context.Context) (*model.ChatMessage, error) {
	s.mu.Lock()
	if err := s.checkAskable(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	turn := lastUserTurn(s.messages)
	if turn < 0 || !s.messages[turn].Unanswered {
		s.mu.Unlock()
		return nil, appErr.ErrNothingToRetry
	}
	question := s.messages[turn].Content
	msgID := s.messages[turn].ID
	history := flattenHistory(s.messages[:turn])
	s.inFlight = true
	docIDs := selectionIDs(s.selection)
	s.mu.Unlock()

	logutil.GetLogger(ctx).Info("retry question", zap.String("message_id", msgID))
	return s.exchange(ctx, turn, model.AskRequest{
		Question:            question,
		DocIDs:              docIDs,
		ConversationHistory: history,
	})
}

func (s *ChatService) checkAskable() error {
	switch {
	case s.closed:
		return appErr.ErrClosed
	case s.inFlight:
		return appErr.ErrRequestInFlight
	case len(s.selection) == 0:
		return appErr.ErrNoSelection
	}
	return nil
}

func (s *ChatService) exchange(ctx context.Context, turn int, req model.AskRequest) (*model.ChatMessage, error) {
	logger := logutil.GetLogger(ctx).With(zap.Strings("doc_ids", req.DocIDs), zap.Int("history", len(req.ConversationHistory)))
	answer, err := s.api.Ask(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
	if s.closed {
		logger.Debug("chat closed, dropping late answer", zap.Error(err))
		return nil, appErr.ErrClosed
	}
	if err != nil {
		logger.Error("ask failed", zap.Error(err))
		s.messages[turn].Unanswered = true
		s.messages = append(s.messages, model.ChatMessage{
			ID:        uuid.NewString(),
			Role:      model.RoleAssistant,
			Content:   askFailedMessage,
			IsError:   true,
			Timestamp: s.now(),
		})
		return nil, err
	}
	s.messages[turn].Unanswered = false
	confidence := answer.ConfidenceScore
	msg := model.ChatMessage{
		ID:                 uuid.NewString(),
		Role:               model.RoleAssistant,
		Content:            answer.Answer,
		Citations:          append([]model.Citation(nil), answer.Citations...),
		Confidence:         &confidence,
		SuggestedQuestions: append([]string(nil), answer.SuggestedQuestions...),
		ProcessingTime:     answer.ProcessingTime,
		AnswerType:         answer.AnswerType,
		Timestamp:          s.now(),
	}
	s.messages = append(s.messages, msg)
	s.suggested = append([]string(nil), answer.SuggestedQuestions...)
	logger.Info("question answered", zap.Float64("confidence", confidence), zap.Float64("processing_time", answer.ProcessingTime))
	return &msg, nil
}

// PrimeSuggestions loads starter questions for the first selected document
// while the conversation is still empty. A failed fetch leaves the chat
// untouched and is returned so the caller can react to session loss.
func (s *ChatService) PrimeSuggestions(ctx context.Context) error {
	s.mu.Lock()
	if s.closed || len(s.selection) == 0 || len(s.messages) > 0 || s.suggestions == nil {
		s.mu.Unlock()
		return nil
	}
	docID := s.selection[0].DocID
	s.mu.Unlock()

	list, err := s.suggestions.Suggestions(ctx, docID)
	if err != nil {
		logutil.GetLogger(ctx).Warn("load suggestions failed", zap.String("doc_id", docID), zap.Error(err))
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || len(s.messages) > 0 || len(s.selection) == 0 || s.selection[0].DocID != docID {
		return nil
	}
	s.suggested = append([]string(nil), list...)
	return nil
}

// Compare asks the backend to contrast the selected documents. The result
// is returned as is and not added to the transcript.
func (s *ChatService) Compare(ctx context.Context, question string) (*model.Comparison, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, appErr.ErrEmptyQuestion
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, appErr.ErrClosed
	}
	if len(s.selection) < 2 {
		s.mu.Unlock()
		return nil, appErr.ErrCompareNeedsTwo
	}
	docIDs := selectionIDs(s.selection)
	s.mu.Unlock()

	res, err := s.api.Compare(ctx, model.CompareRequest{DocIDs: docIDs, Question: question})
	if err != nil {
		logutil.GetLogger(ctx).Error("compare failed", zap.Strings("doc_ids", docIDs), zap.Error(err))
		return nil, err
	}
	return res, nil
}

func (s *ChatService) Messages() []model.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.ChatMessage(nil), s.messages...)
}

func (s *ChatService) Suggestions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.suggested...)
}

func (s *ChatService) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// Close detaches the service. Answers arriving afterwards are discarded.
func (s *ChatService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// flattenHistory pairs each question with the reply that followed it.
// Error replies are not context and turns with neither side are dropped.
func flattenHistory(messages []model.ChatMessage) []model.HistoryTurn {
	out := make([]model.HistoryTurn, 0, len(messages))
	var open *model.HistoryTurn
	flush := func() {
		if open != nil && (open.Question != "" || open.Answer != "") {
			out = append(out, *open)
		}
		open = nil
	}
	for _, msg := range messages {
		if msg.IsError {
			continue
		}
		switch msg.Role {
		case model.RoleUser:
			flush()
			open = &model.HistoryTurn{Question: msg.Content}
		case model.RoleAssistant:
			if open == nil {
				open = &model.HistoryTurn{}
			}
			open.Answer = msg.Content
			flush()
		}
	}
	flush()
	return out
}

func lastUserTurn(messages []model.ChatMessage) int {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == model.RoleUser {
			return i
		}
	}
	return -1
}

func selectionIDs(docs []model.Document) []string {
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.DocID)
	}
	return ids
}
