package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStorage persists session keys to a JSON file, mirroring the browser's
// local-storage behaviour for CLI and test harness use.
type FileStorage struct {
	mu   sync.Mutex
	path string
}

// NewFileStorage creates a store backed by the given file path.
func NewFileStorage(path string) (*FileStorage, error) {
	if path == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FileStorage{path: path}, nil
}

// Get returns the value for key.
func (s *FileStorage) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data := s.load()
	v, ok := data[key]
	return v, ok
}

// Set stores a value and rewrites the backing file.
func (s *FileStorage) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data := s.load()
	data[key] = value
	return s.save(data)
}

// Delete removes a key. Deleting an absent key is not an error.
func (s *FileStorage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data := s.load()
	if _, ok := data[key]; !ok {
		return nil
	}
	delete(data, key)
	return s.save(data)
}

func (s *FileStorage) load() map[string]string {
	data := make(map[string]string)
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return data
	}
	_ = json.Unmarshal(raw, &data)
	return data
}

func (s *FileStorage) save(data map[string]string) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, raw, 0o600)
}
