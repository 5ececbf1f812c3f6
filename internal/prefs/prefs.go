// Package prefs persists the small key/value state a client hands to its
// next stage (current room, join code, role, player identity).
package prefs

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/dkeye/Lobby/internal/core"
	"gopkg.in/yaml.v3"
)

// Store is a YAML file backed core.Prefs. An empty path keeps everything in
// memory.
type Store struct {
	mu     sync.RWMutex
	path   string
	values map[string]string
}

var _ core.Prefs = (*Store)(nil)

func NewMemory() *Store {
	return &Store{values: make(map[string]string)}
}

// Open loads path if it exists. A missing file is an empty store.
func Open(path string) (*Store, error) {
	s := &Store{path: path, values: make(map[string]string)}
	if path == "" {
		return s, nil
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(raw, &s.values); err != nil {
		return nil, err
	}
	if s.values == nil {
		s.values = make(map[string]string)
	}
	return s, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) GetString(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[key]
}

func (s *Store) SetString(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// GetBool reads a value written by SetBool. Anything unparsable is false.
func (s *Store) GetBool(key string) bool {
	b, _ := strconv.ParseBool(s.GetString(key))
	return b
}

func (s *Store) SetBool(key string, value bool) {
	s.SetString(key, strconv.FormatBool(value))
}

func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

// Save writes the file atomically. It is a no-op for memory stores.
func (s *Store) Save() error {
	if s.path == "" {
		return nil
	}
	s.mu.RLock()
	raw, err := yaml.Marshal(s.values)
	s.mu.RUnlock()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
