package tokenstore

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/docqa/internal/config"
)

func TestNewUnknownType(t *testing.T) {
	_, err := New(config.StoreConfig{Type: "cookie"})
	require.Error(t, err)
	_, err = New(config.StoreConfig{})
	require.Error(t, err)
}

func TestFileStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := New(config.StoreConfig{Type: "file", Data: map[string]interface{}{"dir": dir}})
	require.NoError(t, err)

	token, err := store.Load()
	require.NoError(t, err)
	require.Empty(t, token)

	require.NoError(t, store.Save("tok-1"))
	reopened := NewFileStore(dir)
	token, err = reopened.Load()
	require.NoError(t, err)
	require.Equal(t, "tok-1", token)

	info, err := os.Stat(filepath.Join(dir, fileName))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, store.Clear())
	token, err = reopened.Load()
	require.NoError(t, err)
	require.Empty(t, token)
}

func TestCompareAndClearOnlyMatchingToken(t *testing.T) {
	for name, store := range map[string]Store{
		"memory": NewMemoryStore(),
		"file":   NewFileStore(t.TempDir()),
	} {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Save("new"))
			cleared, err := store.CompareAndClear("old")
			require.NoError(t, err)
			require.False(t, cleared)

			token, _ := store.Load()
			require.Equal(t, "new", token)

			cleared, err = store.CompareAndClear("new")
			require.NoError(t, err)
			require.True(t, cleared)
		})
	}
}

func TestCompareAndClearConcurrentClearsOnce(t *testing.T) {
	store := NewFileStore(t.TempDir())
	require.NoError(t, store.Save("tok"))

	var cleared atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.CompareAndClear("tok")
			if err == nil && ok {
				cleared.Add(1)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), cleared.Load())
}
