package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/montanaflynn/stats"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docqa/internal/model"
	appErr "github.com/xxxsen/docqa/internal/pkg/errors"
)

type DocumentAPI interface {
	ListDocuments(ctx context.Context) ([]model.Document, error)
	DeleteDocument(ctx context.Context, docID string) (*model.DeleteResult, error)
}

type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeError
)

// Notifier shows short lived messages (toasts) for list level operations.
type Notifier interface {
	Notify(level NoticeLevel, message string)
}

type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

type NotifierFunc func(level NoticeLevel, message string)

func (f NotifierFunc) Notify(level NoticeLevel, message string) {
	f(level, message)
}

type ConfirmFunc func(ctx context.Context, prompt string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool {
	return f(ctx, prompt)
}

type Stats struct {
	Documents        int     `json:"documents"`
	TotalPages       int     `json:"total_pages"`
	TotalReadingTime float64 `json:"total_reading_time"`
	MeanComplexity   float64 `json:"mean_complexity"`
	MedianComplexity float64 `json:"median_complexity"`
	TotalSize        int64   `json:"total_size"`
}

// LibraryService holds the user's documents, newest upload first.
type LibraryService struct {
	api       DocumentAPI
	notifier  Notifier
	confirmer Confirmer

	mu        sync.Mutex
	docs      []model.Document
	loaded    bool
	onRemoved func(docID string)
}

func NewLibraryService(api DocumentAPI, notifier Notifier, confirmer Confirmer) *LibraryService {
	return &LibraryService{api: api, notifier: notifier, confirmer: confirmer}
}

// OnRemoved registers a hook run after a successful delete, before Delete
// returns.
func (s *LibraryService) OnRemoved(fn func(docID string)) {
	s.mu.Lock()
	s.onRemoved = fn
	s.mu.Unlock()
}

// Load replaces the local list with the backend's. On failure the previous
// list is kept as is.
func (s *LibraryService) Load(ctx context.Context) error {
	docs, err := s.api.ListDocuments(ctx)
	if err != nil {
		logutil.GetLogger(ctx).Error("load documents failed", zap.Error(err))
		s.notifyFailure(ctx, err, "Failed to load documents")
		return err
	}
	ordered := make([]model.Document, len(docs))
	copy(ordered, docs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].UploadTime.After(ordered[j].UploadTime.Time)
	})
	s.mu.Lock()
	s.docs = ordered
	s.loaded = true
	s.mu.Unlock()
	logutil.GetLogger(ctx).Debug("documents loaded", zap.Int("count", len(ordered)))
	return nil
}

// Delete removes a document after the user confirmed. It reports whether
// the document was deleted; a declined confirmation is not an error.
func (s *LibraryService) Delete(ctx context.Context, docID string) (bool, error) {
	doc, ok := s.Find(docID)
	name := docID
	if ok {
		name = doc.Filename
	}
	if s.confirmer != nil && !s.confirmer.Confirm(ctx, fmt.Sprintf("Are you sure you want to delete %q?", name)) {
		return false, nil
	}
	if _, err := s.api.DeleteDocument(ctx, docID); err != nil {
		logutil.GetLogger(ctx).Error("delete document failed", zap.String("doc_id", docID), zap.Error(err))
		s.notifyFailure(ctx, err, "Failed to delete document")
		return false, err
	}
	s.mu.Lock()
	s.docs = removeDocument(s.docs, docID)
	hook := s.onRemoved
	s.mu.Unlock()
	if hook != nil {
		hook(docID)
	}
	logutil.GetLogger(ctx).Info("document deleted", zap.String("doc_id", docID))
	s.notify(NoticeInfo, "Document deleted successfully")
	return true, nil
}

// Prepend puts a freshly uploaded document at the top of the list,
// replacing any entry with the same id.
func (s *LibraryService) Prepend(doc model.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = append([]model.Document{doc}, removeDocument(s.docs, doc.DocID)...)
}

func (s *LibraryService) Documents() []model.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Document, len(s.docs))
	copy(out, s.docs)
	return out
}

func (s *LibraryService) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

func (s *LibraryService) Find(docID string) (model.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, doc := range s.docs {
		if doc.DocID == docID {
			return doc, true
		}
	}
	return model.Document{}, false
}

// Stats is derived from the current list on every call.
func (s *LibraryService) Stats() Stats {
	return ComputeStats(s.Documents())
}

func ComputeStats(docs []model.Document) Stats {
	out := Stats{Documents: len(docs)}
	if len(docs) == 0 {
		return out
	}
	pages := make(stats.Float64Data, 0, len(docs))
	reading := make(stats.Float64Data, 0, len(docs))
	complexity := make(stats.Float64Data, 0, len(docs))
	for _, doc := range docs {
		pages = append(pages, float64(doc.TotalPages))
		reading = append(reading, doc.EstimatedReadingTime)
		complexity = append(complexity, doc.ComplexityScore)
		out.TotalSize += doc.FileSize
	}
	totalPages, _ := stats.Sum(pages)
	out.TotalPages = int(totalPages)
	out.TotalReadingTime, _ = stats.Sum(reading)
	out.MeanComplexity, _ = stats.Mean(complexity)
	out.MedianComplexity, _ = stats.Median(complexity)
	return out
}

func (s *LibraryService) notify(level NoticeLevel, msg string) {
	if s.notifier != nil {
		s.notifier.Notify(level, msg)
	}
}

// notifyFailure toasts err unless the session ended or the caller gave up;
// both are shown elsewhere.
func (s *LibraryService) notifyFailure(ctx context.Context, err error, fallback string) {
	if appErr.IsUnauthenticated(err) || ctx.Err() != nil {
		return
	}
	s.notify(NoticeError, appErr.Message(err, fallback))
}

func removeDocument(docs []model.Document, docID string) []model.Document {
	out := make([]model.Document, 0, len(docs))
	for _, doc := range docs {
		if doc.DocID != docID {
			out = append(out, doc)
		}
	}
	return out
}
