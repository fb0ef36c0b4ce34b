package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xxxsen/docqa/internal/client"
	"github.com/xxxsen/docqa/internal/model"
	appErr "github.com/xxxsen/docqa/internal/pkg/errors"
	"github.com/xxxsen/docqa/internal/service"
	"github.com/xxxsen/docqa/internal/suggestcache"
)

type View string

const (
	ViewDocuments View = "documents"
	ViewChat      View = "chat"
	ViewLogin     View = "login"
)

type Navigator interface {
	ToLogin()
}

type NavigatorFunc func()

func (f NavigatorFunc) ToLogin() {
	f()
}

// Coordinator owns what the user is looking at: the library, the selection
// the chat is scoped to and the active view. Session loss reported by any
// call is funneled through HandleError, which is the only place that
// navigates to the login view.
type Coordinator struct {
	auth        *service.AuthService
	library     *service.LibraryService
	chatAPI     service.ChatAPI
	suggestions suggestcache.Source
	navigator   Navigator

	mu       sync.Mutex
	selected []model.Document
	view     View
	chat     *service.ChatService
}

func NewCoordinator(auth *service.AuthService, library *service.LibraryService, chatAPI service.ChatAPI,
	suggestions suggestcache.Source, navigator Navigator) *Coordinator {
	c := &Coordinator{
		auth:        auth,
		library:     library,
		chatAPI:     chatAPI,
		suggestions: suggestions,
		navigator:   navigator,
		view:        ViewLogin,
	}
	library.OnRemoved(c.HandleDeleted)
	return c
}

// Start restores the session and, when signed in, loads the library.
func (c *Coordinator) Start(ctx context.Context) error {
	c.auth.Init(ctx)
	if !c.auth.IsAuthenticated() {
		c.setView(ViewLogin)
		return nil
	}
	return c.SignedIn(ctx)
}

// SignedIn moves to the documents view after a successful login or signup.
func (c *Coordinator) SignedIn(ctx context.Context) error {
	c.setView(ViewDocuments)
	return c.LoadDocuments(ctx)
}

func (c *Coordinator) Logout(ctx context.Context) {
	c.auth.Logout(ctx)
	c.mu.Lock()
	c.selected = nil
	c.closeChatLocked()
	c.view = ViewLogin
	c.mu.Unlock()
}

func (c *Coordinator) LoadDocuments(ctx context.Context) error {
	err := c.library.Load(ctx)
	c.HandleError(ctx, err)
	return err
}

// Refresh reloads the library and re-checks the session in parallel.
func (c *Coordinator) Refresh(ctx context.Context) error {
	if !c.auth.IsAuthenticated() {
		return appErr.ErrUnauthenticated
	}
	var g errgroup.Group
	g.Go(func() error {
		return c.library.Load(ctx)
	})
	g.Go(func() error {
		return c.auth.Check(ctx)
	})
	err := g.Wait()
	if err != nil {
		logutil.GetLogger(ctx).Warn("refresh failed", zap.Error(err))
		c.HandleError(ctx, err)
	}
	return err
}

// CheckSession asks the backend whether the session is still good and
// ends it if not.
func (c *Coordinator) CheckSession(ctx context.Context) error {
	err := c.auth.Check(ctx)
	c.HandleError(ctx, err)
	return err
}

// Upload submits the control's file; on success the document becomes the
// only selection and the chat view opens on it.
func (c *Coordinator) Upload(ctx context.Context, control *service.UploadControl, progress client.ProgressFunc) (*model.Document, error) {
	doc, err := control.Submit(ctx, progress, c.HandleUploaded)
	c.HandleError(ctx, err)
	return doc, err
}

func (c *Coordinator) HandleUploaded(doc model.Document) {
	c.library.Prepend(doc)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = []model.Document{doc}
	c.enterChatLocked()
}

func (c *Coordinator) DeleteDocument(ctx context.Context, docID string) (bool, error) {
	deleted, err := c.library.Delete(ctx, docID)
	c.HandleError(ctx, err)
	return deleted, err
}

// HandleDeleted drops a deleted document from the selection. It runs as
// the library's removal hook, so both lists agree once Delete returns.
func (c *Coordinator) HandleDeleted(docID string) {
	suggestcache.Forget(c.suggestions, docID)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = withoutDocument(c.selected, docID)
	if c.chat != nil {
		c.chat.SetSelection(c.selected)
	}
}

// ToggleSelection adds the document when absent and removes it when
// present.
func (c *Coordinator) ToggleSelection(docID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if containsDocument(c.selected, docID) {
		c.selected = withoutDocument(c.selected, docID)
	} else {
		doc, ok := c.library.Find(docID)
		if !ok {
			return fmt.Errorf("document %s: %w", docID, appErr.ErrNotFound)
		}
		c.selected = append(c.selected, doc)
	}
	if c.chat != nil {
		c.chat.SetSelection(c.selected)
	}
	return nil
}

// Select replaces the selection with the given documents, in order.
func (c *Coordinator) Select(docIDs ...string) error {
	docs := make([]model.Document, 0, len(docIDs))
	for _, id := range docIDs {
		if containsDocument(docs, id) {
			continue
		}
		doc, ok := c.library.Find(id)
		if !ok {
			return fmt.Errorf("document %s: %w", id, appErr.ErrNotFound)
		}
		docs = append(docs, doc)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = docs
	if c.chat != nil {
		c.chat.SetSelection(c.selected)
	}
	return nil
}

// SwitchView changes the active view. Entering the chat view starts a new
// transcript; leaving it discards the current one.
func (c *Coordinator) SwitchView(v View) {
	c.setView(v)
}

func (c *Coordinator) setView(v View) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v == ViewChat {
		c.enterChatLocked()
		return
	}
	c.closeChatLocked()
	c.view = v
}

func (c *Coordinator) enterChatLocked() {
	if c.view == ViewChat && c.chat != nil {
		c.chat.SetSelection(c.selected)
		return
	}
	c.closeChatLocked()
	c.chat = service.NewChatService(c.chatAPI, c.suggestions)
	c.chat.SetSelection(c.selected)
	c.view = ViewChat
}

func (c *Coordinator) closeChatLocked() {
	if c.chat != nil {
		c.chat.Close()
		c.chat = nil
	}
}

// Chat is the transcript of the active chat view, nil outside of it.
func (c *Coordinator) Chat() *service.ChatService {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chat
}

func (c *Coordinator) Ask(ctx context.Context, question string) (*model.ChatMessage, error) {
	chat := c.Chat()
	if chat == nil {
		return nil, appErr.ErrNoSelection
	}
	msg, err := chat.Ask(ctx, question)
	c.HandleError(ctx, err)
	return msg, err
}

func (c *Coordinator) Retry(ctx context.Context) (*model.ChatMessage, error) {
	chat := c.Chat()
	if chat == nil {
		return nil, appErr.ErrNothingToRetry
	}
	msg, err := chat.Retry(ctx)
	c.HandleError(ctx, err)
	return msg, err
}

// PrimeSuggestions fills the active chat's starter questions. Only session
// loss is reported; any other fetch failure leaves the chat without
// suggestions.
func (c *Coordinator) PrimeSuggestions(ctx context.Context) error {
	chat := c.Chat()
	if chat == nil {
		return nil
	}
	err := chat.PrimeSuggestions(ctx)
	if c.HandleError(ctx, err) {
		return err
	}
	return nil
}

func (c *Coordinator) Compare(ctx context.Context, question string) (*model.Comparison, error) {
	chat := c.Chat()
	if chat == nil {
		return nil, appErr.ErrCompareNeedsTwo
	}
	res, err := chat.Compare(ctx, question)
	c.HandleError(ctx, err)
	return res, err
}

// HandleError reacts to session loss. It reports whether err meant the
// session is gone; every other error is left to the caller.
func (c *Coordinator) HandleError(ctx context.Context, err error) bool {
	if err == nil || !appErr.IsUnauthenticated(err) {
		return false
	}
	c.expire(ctx)
	return true
}

func (c *Coordinator) expire(ctx context.Context) {
	if !c.auth.Expire(ctx) {
		return
	}
	c.mu.Lock()
	c.selected = nil
	c.closeChatLocked()
	c.view = ViewLogin
	c.mu.Unlock()
	logutil.GetLogger(ctx).Info("session ended, navigating to login", zap.String("view", string(ViewLogin)))
	if c.navigator != nil {
		c.navigator.ToLogin()
	}
}

func (c *Coordinator) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

func (c *Coordinator) Selected() []model.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Document(nil), c.selected...)
}

func (c *Coordinator) Documents() []model.Document {
	return c.library.Documents()
}

func (c *Coordinator) Library() *service.LibraryService {
	return c.library
}

func (c *Coordinator) Auth() *service.AuthService {
	return c.auth
}

func containsDocument(docs []model.Document, docID string) bool {
	for _, doc := range docs {
		if doc.DocID == docID {
			return true
		}
	}
	return false
}

func withoutDocument(docs []model.Document, docID string) []model.Document {
	out := make([]model.Document, 0, len(docs))
	for _, doc := range docs {
		if doc.DocID != docID {
			out = append(out, doc)
		}
	}
	return out
}
