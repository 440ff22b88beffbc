// Package prefstore persists user preferences as a flat YAML key-value file.
package prefstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"satotrack/internal/app/port"
)

// Compile-time check: *FileStore must satisfy port.PreferenceStore.
var _ port.PreferenceStore = (*FileStore)(nil)

// FileStore keeps the full preference map in memory and rewrites the file on
// every Set. Reads never touch the disk after startup.
type FileStore struct {
	path   string
	mu     sync.RWMutex
	values map[string]string
}

// NewFileStore loads the preference file, creating an empty store when the
// file does not exist yet.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, values: make(map[string]string)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read preference file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &s.values); err != nil {
		return nil, fmt.Errorf("failed to unmarshal preferences from %s: %w", path, err)
	}
	if s.values == nil {
		s.values = make(map[string]string)
	}
	return s, nil
}

// Get returns the stored value and whether the key is set. Empty stored
// values count as unset so a cleared primary wallet reads back as absent.
func (s *FileStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if v == "" {
		return "", false
	}
	return v, ok
}

// Set writes the value and persists the whole map.
func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous, hadPrevious := s.values[key]
	s.values[key] = value

	if err := s.flushLocked(); err != nil {
		// Keep memory and disk consistent on failure.
		if hadPrevious {
			s.values[key] = previous
		} else {
			delete(s.values, key)
		}
		return err
	}
	return nil
}

func (s *FileStore) flushLocked() error {
	data, err := yaml.Marshal(s.values)
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create preference directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write preference file %s: %w", s.path, err)
	}
	return nil
}
