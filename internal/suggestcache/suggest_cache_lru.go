package suggestcache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type Source interface {
	Suggestions(ctx context.Context, docID string) ([]string, error)
}

// WrapLruCache serves repeated suggestion lookups for a document from
// memory. Errors are never cached.
func WrapLruCache(next Source, size int, ttl time.Duration) Source {
	if next == nil || size <= 0 || ttl <= 0 {
		return next
	}
	return &lruSource{
		next:  next,
		cache: expirable.NewLRU[string, []string](size, nil, ttl),
	}
}

type lruSource struct {
	next  Source
	cache *expirable.LRU[string, []string]
}

func (l *lruSource) Suggestions(ctx context.Context, docID string) ([]string, error) {
	if cached, ok := l.cache.Get(docID); ok {
		logutil.GetLogger(ctx).Debug("suggestion cache hit", zap.String("doc_id", docID))
		return cloneStrings(cached), nil
	}
	res, err := l.next.Suggestions(ctx, docID)
	if err != nil {
		return nil, err
	}
	l.cache.Add(docID, cloneStrings(res))
	return res, nil
}

// Forget drops the cached entry, e.g. after the document was deleted.
func Forget(src Source, docID string) {
	if l, ok := src.(*lruSource); ok {
		l.cache.Remove(docID)
	}
}

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}
	clone := make([]string, len(values))
	copy(clone, values)
	return clone
}
