package job

import (
	"context"
	"sync"

	"github.com/xxxsen/docqa/internal/model"
)

type Library interface {
	LoadDocuments(ctx context.Context) error
	Documents() []model.Document
}

// LibraryChange is what a refresh found compared to the previous run.
type LibraryChange struct {
	Added   []model.Document
	Removed []model.Document
}

func (c LibraryChange) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0
}

type LibraryRefreshJob struct {
	library  Library
	onChange func(LibraryChange)

	mu    sync.Mutex
	known map[string]model.Document
}

func NewLibraryRefreshJob(library Library, onChange func(LibraryChange)) *LibraryRefreshJob {
	return &LibraryRefreshJob{library: library, onChange: onChange}
}

func (j *LibraryRefreshJob) Name() string {
	return "library_refresh"
}

// Run reloads the library. The first run only records the baseline.
func (j *LibraryRefreshJob) Run(ctx context.Context) error {
	if j.library == nil {
		return nil
	}
	if err := j.library.LoadDocuments(ctx); err != nil {
		return err
	}
	docs := j.library.Documents()
	current := make(map[string]model.Document, len(docs))
	for _, doc := range docs {
		current[doc.DocID] = doc
	}

	j.mu.Lock()
	previous := j.known
	j.known = current
	j.mu.Unlock()
	if previous == nil {
		return nil
	}
	var change LibraryChange
	for _, doc := range docs {
		if _, ok := previous[doc.DocID]; !ok {
			change.Added = append(change.Added, doc)
		}
	}
	for id, doc := range previous {
		if _, ok := current[id]; !ok {
			change.Removed = append(change.Removed, doc)
		}
	}
	if !change.Empty() && j.onChange != nil {
		j.onChange(change)
	}
	return nil
}
