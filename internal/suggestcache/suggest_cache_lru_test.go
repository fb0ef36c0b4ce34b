package suggestcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingSource struct {
	calls int
	err   error
}

func (c *countingSource) Suggestions(ctx context.Context, docID string) ([]string, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return []string{"about " + docID}, nil
}

func TestWrapLruCacheServesRepeats(t *testing.T) {
	src := &countingSource{}
	cached := WrapLruCache(src, 8, time.Minute)

	first, err := cached.Suggestions(context.Background(), "d1")
	require.NoError(t, err)
	first[0] = "mutated"

	second, err := cached.Suggestions(context.Background(), "d1")
	require.NoError(t, err)
	require.Equal(t, []string{"about d1"}, second)
	require.Equal(t, 1, src.calls)

	Forget(cached, "d1")
	_, err = cached.Suggestions(context.Background(), "d1")
	require.NoError(t, err)
	require.Equal(t, 2, src.calls)
}

func TestWrapLruCacheDoesNotCacheErrors(t *testing.T) {
	src := &countingSource{err: errors.New("down")}
	cached := WrapLruCache(src, 8, time.Minute)
	_, err := cached.Suggestions(context.Background(), "d1")
	require.Error(t, err)
	_, err = cached.Suggestions(context.Background(), "d1")
	require.Error(t, err)
	require.Equal(t, 2, src.calls)
}

func TestWrapLruCacheDisabled(t *testing.T) {
	src := &countingSource{}
	require.Same(t, src, WrapLruCache(src, 0, time.Minute))
}
