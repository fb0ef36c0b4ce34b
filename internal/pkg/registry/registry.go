package registry

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/xxxsen/docqa/internal/config"
)

type Factory[T any] func(args interface{}) (T, error)

// Registry resolves a config.StoreConfig to a backend built by the factory
// registered under its type.
type Registry[T any] struct {
	section string

	mu        sync.RWMutex
	factories map[string]Factory[T]
}

// New creates an empty registry. section names the config block in errors.
func New[T any](section string) *Registry[T] {
	return &Registry[T]{section: section, factories: make(map[string]Factory[T])}
}

func (r *Registry[T]) Register(name string, factory Factory[T]) {
	key := normalize(name)
	if key == "" || factory == nil {
		return
	}
	r.mu.Lock()
	r.factories[key] = factory
	r.mu.Unlock()
}

func (r *Registry[T]) Build(cfg config.StoreConfig) (T, error) {
	var zero T
	key := normalize(cfg.Type)
	if key == "" {
		return zero, fmt.Errorf("%s.type is required", r.section)
	}
	r.mu.RLock()
	factory, ok := r.factories[key]
	r.mu.RUnlock()
	if !ok {
		return zero, fmt.Errorf("%s.type %q is not one of %s", r.section, cfg.Type, strings.Join(r.Names(), ", "))
	}
	out, err := factory(cfg.Data)
	if err != nil {
		return zero, fmt.Errorf("%s %s: %w", r.section, key, err)
	}
	return out, nil
}

func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Decode copies the free-form data block of a StoreConfig into dst.
func Decode(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("data block is required")
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode data block: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode data block: %w", err)
	}
	return nil
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
