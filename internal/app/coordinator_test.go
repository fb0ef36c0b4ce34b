package app

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/docqa/internal/backendtest"
	"github.com/xxxsen/docqa/internal/client"
	"github.com/xxxsen/docqa/internal/model"
	appErr "github.com/xxxsen/docqa/internal/pkg/errors"
	"github.com/xxxsen/docqa/internal/service"
	"github.com/xxxsen/docqa/internal/suggestcache"
	"github.com/xxxsen/docqa/internal/tokenstore"
)

type harness struct {
	backend    *backendtest.Server
	tokens     tokenstore.Store
	client     *client.Client
	coord      *Coordinator
	navigated  *atomic.Int64
	confirmYes bool

	mu      sync.Mutex
	notices []string
}

func (h *harness) notify(level service.NoticeLevel, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.notices = append(h.notices, message)
}

func (h *harness) noticesSeen() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.notices...)
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	backend := backendtest.New()
	t.Cleanup(backend.Close)
	token := backend.AddUser("reader@example.com", "Reader")
	tokens := tokenstore.NewMemoryStore()
	require.NoError(t, tokens.Save(token))

	h := &harness{backend: backend, tokens: tokens, navigated: &atomic.Int64{}, confirmYes: true}
	h.client = client.New(backend.URL(), tokens)
	auth := service.NewAuthService(h.client, tokens)
	library := service.NewLibraryService(h.client, service.NotifierFunc(h.notify), service.ConfirmFunc(func(ctx context.Context, prompt string) bool {
		return h.confirmYes
	}))
	suggestions := suggestcache.WrapLruCache(h.client, 16, time.Minute)
	h.coord = NewCoordinator(auth, library, h.client, suggestions, NavigatorFunc(func() {
		h.navigated.Add(1)
	}))
	return h
}

func (h *harness) seed(ids ...string) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range ids {
		h.backend.AddDocument(model.Document{
			DocID:                id,
			Filename:             id + ".pdf",
			UploadTime:           model.Timestamp{Time: base.Add(time.Duration(i) * time.Hour)},
			TotalPages:           3,
			EstimatedReadingTime: 2,
			ComplexityScore:      0.5,
			KeyTopics:            []string{"topic"},
		})
	}
}

func ids(docs []model.Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.DocID)
	}
	return out
}

func TestStartSignedInLoadsDocuments(t *testing.T) {
	h := newHarness(t)
	h.seed("d1", "d2")
	require.NoError(t, h.coord.Start(context.Background()))
	require.Equal(t, ViewDocuments, h.coord.View())
	require.Equal(t, []string{"d2", "d1"}, ids(h.coord.Documents()))
	require.Empty(t, h.coord.Selected())
	require.Nil(t, h.coord.Chat())
}

func TestStartWithoutSessionShowsLogin(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.tokens.Clear())
	require.NoError(t, h.coord.Start(context.Background()))
	require.Equal(t, ViewLogin, h.coord.View())
	require.Zero(t, h.navigated.Load())
}

func TestUploadSelectsDocumentAndOpensChat(t *testing.T) {
	h := newHarness(t)
	h.seed("d0")
	require.NoError(t, h.coord.Start(context.Background()))
	require.NoError(t, h.coord.ToggleSelection("d0"))

	control := service.NewUploadControl(h.client, 0)
	require.NoError(t, control.SelectFile(service.FileFromBytes("report.txt", []byte("quarterly report text"))))
	doc, err := h.coord.Upload(context.Background(), control, nil)
	require.NoError(t, err)

	docs := h.coord.Documents()
	require.Equal(t, doc.DocID, docs[0].DocID)
	require.Len(t, docs, 2)
	require.Equal(t, []string{doc.DocID}, ids(h.coord.Selected()))
	require.Equal(t, ViewChat, h.coord.View())
	chat := h.coord.Chat()
	require.NotNil(t, chat)
	require.Equal(t, []string{doc.DocID}, ids(chat.Selection()))
}

func TestToggleSelectionSymmetric(t *testing.T) {
	h := newHarness(t)
	h.seed("d1", "d2")
	require.NoError(t, h.coord.Start(context.Background()))

	require.NoError(t, h.coord.ToggleSelection("d1"))
	require.NoError(t, h.coord.ToggleSelection("d2"))
	require.Equal(t, []string{"d1", "d2"}, ids(h.coord.Selected()))
	require.NoError(t, h.coord.ToggleSelection("d1"))
	require.Equal(t, []string{"d2"}, ids(h.coord.Selected()))
	require.NoError(t, h.coord.ToggleSelection("d2"))
	require.Empty(t, h.coord.Selected())

	require.ErrorIs(t, h.coord.ToggleSelection("nope"), appErr.ErrNotFound)
}

func TestDeleteRemovesFromDocumentsAndSelection(t *testing.T) {
	h := newHarness(t)
	h.seed("d1", "d2")
	require.NoError(t, h.coord.Start(context.Background()))
	require.NoError(t, h.coord.Select("d1", "d2"))
	h.coord.SwitchView(ViewChat)

	deleted, err := h.coord.DeleteDocument(context.Background(), "d1")
	require.NoError(t, err)
	require.True(t, deleted)
	require.Equal(t, []string{"d2"}, ids(h.coord.Documents()))
	require.Equal(t, []string{"d2"}, ids(h.coord.Selected()))
	require.Equal(t, []string{"d2"}, ids(h.coord.Chat().Selection()))

	h.backend.Fail("DELETE /api/documents/:id", backendtest.Failure{Status: 500})
	deleted, err = h.coord.DeleteDocument(context.Background(), "d2")
	require.Error(t, err)
	require.False(t, deleted)
	require.Equal(t, []string{"d2"}, ids(h.coord.Documents()))
	require.Equal(t, []string{"d2"}, ids(h.coord.Selected()))
}

func TestSwitchViewStartsFreshTranscript(t *testing.T) {
	h := newHarness(t)
	h.seed("d1")
	require.NoError(t, h.coord.Start(context.Background()))
	require.NoError(t, h.coord.Select("d1"))
	h.coord.SwitchView(ViewChat)

	_, err := h.coord.Ask(context.Background(), "What is the summary?")
	require.NoError(t, err)
	first := h.coord.Chat()
	require.Len(t, first.Messages(), 2)

	h.coord.SwitchView(ViewChat)
	require.Same(t, first, h.coord.Chat())

	h.coord.SwitchView(ViewDocuments)
	require.Nil(t, h.coord.Chat())
	require.Equal(t, []string{"d1"}, ids(h.coord.Selected()))

	h.coord.SwitchView(ViewChat)
	require.NotSame(t, first, h.coord.Chat())
	require.Empty(t, h.coord.Chat().Messages())
}

func TestAskWithoutChatView(t *testing.T) {
	h := newHarness(t)
	_, err := h.coord.Ask(context.Background(), "hello")
	require.ErrorIs(t, err, appErr.ErrNoSelection)
}

func TestUnauthorizedNavigatesOnce(t *testing.T) {
	h := newHarness(t)
	h.seed("d1")
	require.NoError(t, h.coord.Start(context.Background()))
	require.NoError(t, h.coord.Select("d1"))
	h.coord.SwitchView(ViewChat)

	for i := 0; i < 6; i++ {
		h.backend.Fail("GET /api/documents", backendtest.Failure{Status: 401})
	}
	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.coord.LoadDocuments(context.Background())
		}()
	}
	wg.Wait()

	require.Equal(t, int64(1), h.navigated.Load())
	require.Equal(t, ViewLogin, h.coord.View())
	require.False(t, h.coord.Auth().IsAuthenticated())
	require.Nil(t, h.coord.Chat())
	require.Empty(t, h.coord.Selected())
	stored, err := h.tokens.Load()
	require.NoError(t, err)
	require.Empty(t, stored)
}

func TestUnauthorizedFromAskNavigates(t *testing.T) {
	h := newHarness(t)
	h.seed("d1")
	require.NoError(t, h.coord.Start(context.Background()))
	require.NoError(t, h.coord.Select("d1"))
	h.coord.SwitchView(ViewChat)
	chat := h.coord.Chat()

	h.backend.Fail("POST /api/ask", backendtest.Failure{Status: 401})
	_, err := h.coord.Ask(context.Background(), "hello")
	require.True(t, appErr.IsUnauthenticated(err))
	require.Len(t, chat.Messages(), 2)
	require.Equal(t, int64(1), h.navigated.Load())
	require.Equal(t, ViewLogin, h.coord.View())

	require.False(t, h.coord.HandleError(context.Background(), nil))
	require.True(t, h.coord.HandleError(context.Background(), &appErr.APIError{Status: 401}))
	require.Equal(t, int64(1), h.navigated.Load())
}

func TestRefreshDetectsRevokedSession(t *testing.T) {
	h := newHarness(t)
	h.seed("d1")
	require.NoError(t, h.coord.Start(context.Background()))
	require.NoError(t, h.coord.Refresh(context.Background()))

	h.backend.AddDocument(model.Document{DocID: "d9", Filename: "late.pdf", UploadTime: model.Timestamp{Time: time.Now()}})
	require.NoError(t, h.coord.Refresh(context.Background()))
	require.Equal(t, "d9", h.coord.Documents()[0].DocID)

	h.backend.Revoke(h.coord.Auth().Session().Token)
	require.Error(t, h.coord.Refresh(context.Background()))
	require.Equal(t, int64(1), h.navigated.Load())
	require.ErrorIs(t, h.coord.Refresh(context.Background()), appErr.ErrUnauthenticated)
	require.Empty(t, h.noticesSeen())
}

func TestRefreshSessionLossLeavesLibraryQuiet(t *testing.T) {
	h := newHarness(t)
	h.seed("d1")
	require.NoError(t, h.coord.Start(context.Background()))

	release := h.backend.Hold("GET /api/documents")
	h.backend.Fail("GET /api/auth/me", backendtest.Failure{Status: 401})
	done := make(chan error, 1)
	go func() {
		done <- h.coord.Refresh(context.Background())
	}()
	require.Eventually(t, func() bool {
		return h.backend.Calls("GET /api/auth/me") == 2 && h.backend.Calls("GET /api/documents") == 2
	}, 5*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	release()

	err := <-done
	require.True(t, appErr.IsUnauthenticated(err))
	require.Equal(t, int64(1), h.navigated.Load())
	require.Empty(t, h.noticesSeen())
}

func TestSuggestionsUnauthorizedNavigates(t *testing.T) {
	h := newHarness(t)
	h.seed("d1")
	require.NoError(t, h.coord.Start(context.Background()))
	require.NoError(t, h.coord.Select("d1"))
	h.coord.SwitchView(ViewChat)

	h.backend.Revoke(h.coord.Auth().Session().Token)
	err := h.coord.PrimeSuggestions(context.Background())
	require.True(t, appErr.IsUnauthenticated(err))

	stored, loadErr := h.tokens.Load()
	require.NoError(t, loadErr)
	require.Empty(t, stored)
	require.False(t, h.coord.Auth().IsAuthenticated())
	require.Equal(t, ViewLogin, h.coord.View())
	require.Nil(t, h.coord.Chat())
	require.Equal(t, int64(1), h.navigated.Load())
}

func TestSuggestionsOtherFailuresStaySilent(t *testing.T) {
	h := newHarness(t)
	h.seed("d1")
	require.NoError(t, h.coord.Start(context.Background()))
	require.NoError(t, h.coord.Select("d1"))
	h.coord.SwitchView(ViewChat)

	h.backend.Fail("GET /api/suggestions/:id", backendtest.Failure{Status: 500, Detail: "boom"})
	require.NoError(t, h.coord.PrimeSuggestions(context.Background()))
	require.Empty(t, h.coord.Chat().Suggestions())
	require.Equal(t, ViewChat, h.coord.View())

	require.NoError(t, h.coord.PrimeSuggestions(context.Background()))
	require.Len(t, h.coord.Chat().Suggestions(), 3)

	h.coord.SwitchView(ViewDocuments)
	require.NoError(t, h.coord.PrimeSuggestions(context.Background()))
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	h.seed("d1")
	require.NoError(t, h.coord.Start(context.Background()))
	require.NoError(t, h.coord.Select("d1"))
	h.coord.SwitchView(ViewChat)

	h.coord.Logout(context.Background())
	require.Equal(t, ViewLogin, h.coord.View())
	require.Nil(t, h.coord.Chat())
	require.Empty(t, h.coord.Selected())
	require.Zero(t, h.navigated.Load())
}
