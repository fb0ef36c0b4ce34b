package tokenstore

import (
	"github.com/xxxsen/docqa/internal/config"
	"github.com/xxxsen/docqa/internal/pkg/registry"
)

// Key is the fixed storage key the bearer token lives under.
const Key = "access_token"

type Store interface {
	// Load returns the persisted token, or "" when none is stored.
	Load() (string, error)
	Save(token string) error
	Clear() error
	// CompareAndClear removes the token only if it still equals expected.
	// It reports whether a removal happened.
	CompareAndClear(expected string) (bool, error)
}

var stores = registry.New[Store]("token_store")

// New builds the store selected by cfg.Type ("file" or "memory").
func New(cfg config.StoreConfig) (Store, error) {
	return stores.Build(cfg)
}
