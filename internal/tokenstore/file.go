package tokenstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/xxxsen/docqa/internal/pkg/registry"
)

const fileName = "storage.json"

type fileConfig struct {
	Dir string `json:"dir"`
}

// fileStore keeps a small key/value document on disk, the way a browser
// profile keeps local storage. Only Key is ever written.
type fileStore struct {
	mu   sync.Mutex
	path string
}

func init() {
	stores.Register("file", createFileStore)
}

func createFileStore(args interface{}) (Store, error) {
	config := &fileConfig{}
	if err := registry.Decode(args, config); err != nil {
		return nil, err
	}
	if config.Dir == "" {
		return nil, fmt.Errorf("file token store dir is required")
	}
	return NewFileStore(config.Dir), nil
}

func NewFileStore(dir string) Store {
	return &fileStore{path: filepath.Join(dir, fileName)}
}

func (s *fileStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.readLocked()
	if err != nil {
		return "", err
	}
	return values[Key], nil
}

func (s *fileStore) Save(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.readLocked()
	if err != nil {
		return err
	}
	values[Key] = token
	return s.writeLocked(values)
}

func (s *fileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.readLocked()
	if err != nil {
		return err
	}
	if _, ok := values[Key]; !ok {
		return nil
	}
	delete(values, Key)
	return s.writeLocked(values)
}

func (s *fileStore) CompareAndClear(expected string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.readLocked()
	if err != nil {
		return false, err
	}
	current, ok := values[Key]
	if !ok || current != expected {
		return false, nil
	}
	delete(values, Key)
	if err := s.writeLocked(values); err != nil {
		return false, err
	}
	return true, nil
}

func (s *fileStore) readLocked() (map[string]string, error) {
	values := map[string]string{}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read token store: %w", err)
	}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("decode token store: %w", err)
	}
	return values, nil
}

func (s *fileStore) writeLocked(values map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create token store dir: %w", err)
	}
	data, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode token store: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), fileName+".*")
	if err != nil {
		return fmt.Errorf("create temp token store: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write token store: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod token store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close token store: %w", err)
	}
	return os.Rename(tmp.Name(), s.path)
}
