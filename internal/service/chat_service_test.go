package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/docqa/internal/backendtest"
	"github.com/xxxsen/docqa/internal/model"
	appErr "github.com/xxxsen/docqa/internal/pkg/errors"
	"github.com/xxxsen/docqa/internal/suggestcache"
)

const (
	askRoute         = "POST /api/ask"
	suggestionsRoute = "GET /api/suggestions/:id"
)

func newChat(t *testing.T, f *fixture, ids ...string) *ChatService {
	t.Helper()
	now := time.Now()
	docs := make([]model.Document, 0, len(ids))
	for _, id := range ids {
		doc := testDocument(id, id+".pdf", now)
		f.backend.AddDocument(doc)
		docs = append(docs, doc)
	}
	chat := NewChatService(f.client, suggestcache.WrapLruCache(f.client, 8, time.Minute))
	chat.SetSelection(docs)
	return chat
}

func TestChatAskAppendsAnswer(t *testing.T) {
	f := newFixture(t)
	chat := newChat(t, f, "d1")

	reply, err := chat.Ask(context.Background(), "  What is the summary?  ")
	require.NoError(t, err)
	require.Equal(t, model.RoleAssistant, reply.Role)

	msgs := chat.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, model.RoleUser, msgs[0].Role)
	require.Equal(t, "What is the summary?", msgs[0].Content)
	require.NotEmpty(t, msgs[0].ID)
	require.NotEqual(t, msgs[0].ID, msgs[1].ID)
	require.NotNil(t, msgs[1].Confidence)
	require.Equal(t, 0.9, *msgs[1].Confidence)
	require.Equal(t, 1.2, msgs[1].ProcessingTime)
	require.Equal(t, model.DefaultAnswerType, msgs[1].AnswerType)
	require.Equal(t, []string{"Q1"}, chat.Suggestions())
	require.False(t, chat.InFlight())

	reqs := f.backend.Requests(askRoute)
	require.Len(t, reqs, 1)
	require.JSONEq(t, `{"question":"What is the summary?","doc_ids":["d1"],"conversation_history":[]}`, string(reqs[0].Body))
}

func TestChatAskSendsFlattenedHistory(t *testing.T) {
	f := newFixture(t)
	chat := newChat(t, f, "d1", "d2")
	_, err := chat.Ask(context.Background(), "first")
	require.NoError(t, err)
	f.backend.Fail(askRoute, backendtest.Failure{Status: 500})
	_, err = chat.Ask(context.Background(), "second")
	require.Error(t, err)
	_, err = chat.Ask(context.Background(), "third")
	require.NoError(t, err)

	reqs := f.backend.Requests(askRoute)
	require.Len(t, reqs, 3)
	var last model.AskRequest
	require.NoError(t, json.Unmarshal(reqs[2].Body, &last))
	require.Equal(t, []string{"d1", "d2"}, last.DocIDs)
	require.Equal(t, []model.HistoryTurn{
		{Question: "first", Answer: "Answer to: first"},
		{Question: "second"},
	}, last.ConversationHistory)
}

func TestChatAskRejectsWithoutCall(t *testing.T) {
	f := newFixture(t)
	chat := newChat(t, f, "d1")

	_, err := chat.Ask(context.Background(), " \t\n")
	require.ErrorIs(t, err, appErr.ErrEmptyQuestion)

	empty := NewChatService(f.client, nil)
	_, err = empty.Ask(context.Background(), "anything?")
	require.ErrorIs(t, err, appErr.ErrNoSelection)

	require.Empty(t, chat.Messages())
	require.Empty(t, empty.Messages())
	require.Zero(t, f.backend.Calls(askRoute))
}

func TestChatAskFailureAppendsErrorAndRetry(t *testing.T) {
	f := newFixture(t)
	chat := newChat(t, f, "d1")
	_, err := chat.Retry(context.Background())
	require.ErrorIs(t, err, appErr.ErrNothingToRetry)

	f.backend.Fail(askRoute, backendtest.Failure{Status: 500, Detail: "Error answering question"})
	_, err = chat.Ask(context.Background(), "What is the summary?")
	require.Error(t, err)

	msgs := chat.Messages()
	require.Len(t, msgs, 2)
	require.True(t, msgs[0].Unanswered)
	require.True(t, msgs[1].IsError)
	require.Equal(t, "Sorry, I encountered an error processing your question. Please try again.", msgs[1].Content)
	require.Empty(t, chat.Suggestions())

	reply, err := chat.Retry(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Answer to: What is the summary?", reply.Content)
	msgs = chat.Messages()
	require.Len(t, msgs, 3)
	require.False(t, msgs[0].Unanswered)
	require.True(t, msgs[1].IsError)
	require.Equal(t, reply.ID, msgs[2].ID)

	reqs := f.backend.Requests(askRoute)
	require.Len(t, reqs, 2)
	require.JSONEq(t, string(reqs[0].Body), string(reqs[1].Body))

	_, err = chat.Retry(context.Background())
	require.ErrorIs(t, err, appErr.ErrNothingToRetry)
}

func TestChatAskUnauthenticatedStillRecordsError(t *testing.T) {
	f := newFixture(t)
	chat := newChat(t, f, "d1")
	f.backend.Revoke(f.token)

	_, err := chat.Ask(context.Background(), "hello?")
	require.True(t, appErr.IsUnauthenticated(err))
	msgs := chat.Messages()
	require.Len(t, msgs, 2)
	require.True(t, msgs[1].IsError)
	stored, err := f.tokens.Load()
	require.NoError(t, err)
	require.Empty(t, stored)
}

func TestChatAskSingleFlight(t *testing.T) {
	f := newFixture(t)
	chat := newChat(t, f, "d1")
	release := f.backend.Hold(askRoute)
	defer release()

	done := make(chan error, 1)
	go func() {
		_, err := chat.Ask(context.Background(), "slow question")
		done <- err
	}()
	require.Eventually(t, chat.InFlight, testTimeout, testTick)

	_, err := chat.Ask(context.Background(), "second question")
	require.ErrorIs(t, err, appErr.ErrRequestInFlight)
	require.Len(t, chat.Messages(), 1)

	release()
	require.NoError(t, <-done)
	require.Len(t, chat.Messages(), 2)
	require.Equal(t, int64(1), f.backend.Calls(askRoute))
}

func TestChatCloseDropsLateAnswer(t *testing.T) {
	f := newFixture(t)
	chat := newChat(t, f, "d1")
	release := f.backend.Hold(askRoute)
	defer release()

	done := make(chan error, 1)
	go func() {
		_, err := chat.Ask(context.Background(), "slow question")
		done <- err
	}()
	require.Eventually(t, func() bool { return f.backend.Calls(askRoute) == 1 }, testTimeout, testTick)
	chat.Close()
	release()

	require.ErrorIs(t, <-done, appErr.ErrClosed)
	require.Len(t, chat.Messages(), 1)
	require.Empty(t, chat.Suggestions())
	_, err := chat.Ask(context.Background(), "again")
	require.ErrorIs(t, err, appErr.ErrClosed)
}

func TestChatPrimeSuggestions(t *testing.T) {
	f := newFixture(t)
	chat := newChat(t, f, "d1", "d2")

	require.NoError(t, chat.PrimeSuggestions(context.Background()))
	require.Equal(t, []string{
		"What are the main topics covered in d1.pdf?",
		"Can you summarize the key points about a?",
		"What are the most important findings or conclusions?",
	}, chat.Suggestions())

	second := NewChatService(f.client, chat.suggestions)
	second.SetSelection(chat.Selection())
	second.PrimeSuggestions(context.Background())
	require.Len(t, second.Suggestions(), 3)
	require.Equal(t, int64(1), f.backend.Calls(suggestionsRoute))

	_, err := chat.Ask(context.Background(), "question")
	require.NoError(t, err)
	chat.PrimeSuggestions(context.Background())
	require.Equal(t, []string{"Q1"}, chat.Suggestions())
}

func TestChatPrimeSuggestionsFailureKeepsChat(t *testing.T) {
	f := newFixture(t)
	chat := NewChatService(f.client, f.client)
	chat.SetSelection([]model.Document{{DocID: "missing", Filename: "gone.pdf"}})

	err := chat.PrimeSuggestions(context.Background())
	require.True(t, appErr.IsNotFound(err))
	require.Empty(t, chat.Suggestions())
	require.Empty(t, chat.Messages())
	require.Equal(t, int64(1), f.backend.Calls(suggestionsRoute))
}

func TestChatCompare(t *testing.T) {
	f := newFixture(t)
	one := newChat(t, f, "d1")
	_, err := one.Compare(context.Background(), "differences?")
	require.ErrorIs(t, err, appErr.ErrCompareNeedsTwo)

	two := newChat(t, f, "d1", "d2")
	res, err := two.Compare(context.Background(), "differences?")
	require.NoError(t, err)
	require.Equal(t, []string{"d1", "d2"}, res.Documents)
	require.Contains(t, res.Comparison, "d1.pdf, d2.pdf")
	require.Empty(t, two.Messages())
}

func TestFlattenHistory(t *testing.T) {
	msgs := []model.ChatMessage{
		{Role: model.RoleAssistant, Content: "welcome"},
		{Role: model.RoleUser, Content: "q1"},
		{Role: model.RoleAssistant, Content: "a1"},
		{Role: model.RoleUser, Content: "q2", Unanswered: true},
		{Role: model.RoleAssistant, Content: "sorry", IsError: true},
		{Role: model.RoleUser, Content: ""},
		{Role: model.RoleAssistant, Content: ""},
		{Role: model.RoleUser, Content: "q3"},
	}
	require.Equal(t, []model.HistoryTurn{
		{Answer: "welcome"},
		{Question: "q1", Answer: "a1"},
		{Question: "q2"},
		{Question: "q3"},
	}, flattenHistory(msgs))
	require.Empty(t, flattenHistory(nil))
}
