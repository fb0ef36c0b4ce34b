package exportstore

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xxxsen/docqa/internal/config"
	"github.com/xxxsen/docqa/internal/pkg/registry"
)

// Store is where finished exports end up.
type Store interface {
	Type() string
	// Save writes the object under key and returns where it can be found:
	// a file path for local stores, an object url for remote ones.
	Save(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
}

var stores = registry.New[Store]("export_store")

func New(cfg config.StoreConfig) (Store, error) {
	return stores.Build(cfg)
}

// validKey accepts a single path element only.
func validKey(key string) error {
	if key == "" || key == "." || key == ".." {
		return fmt.Errorf("export key is required")
	}
	if strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("invalid export key: %s", key)
	}
	return nil
}
