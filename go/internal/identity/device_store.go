package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// DeviceStore persists small JSON values on the local device.
type DeviceStore interface {
	// Load decodes the value stored under key into v. It reports false when
	// the key is absent.
	Load(key string, v any) (bool, error)
	Save(key string, v any) error
	Delete(key string) error
}

// MemoryStore is a DeviceStore that lives for the lifetime of the process.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]json.RawMessage
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]json.RawMessage)}
}

func (s *MemoryStore) Load(key string, v any) (bool, error) {
	s.mu.Lock()
	raw, ok := s.values[key]
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

func (s *MemoryStore) Save(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	s.mu.Lock()
	s.values[key] = raw
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(key string) error {
	s.mu.Lock()
	delete(s.values, key)
	s.mu.Unlock()
	return nil
}

// FileStore keeps all values in a single JSON object on disk. Every Save and
// Delete rewrites the file.
type FileStore struct {
	path string
	mem  *MemoryStore
}

// DefaultDevicePath returns ~/.scoreboard/device.json.
func DefaultDevicePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".scoreboard", "device.json"), nil
}

// OpenFileStore loads path, creating an empty store when the file does not exist.
func OpenFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, mem: NewMemoryStore()}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read device file: %w", err)
	}

	if len(data) > 0 {
		if err := json.Unmarshal(data, &s.mem.values); err != nil {
			return nil, fmt.Errorf("failed to parse device file %s: %w", path, err)
		}
	}
	return s, nil
}

func (s *FileStore) Load(key string, v any) (bool, error) {
	return s.mem.Load(key, v)
}

func (s *FileStore) Save(key string, v any) error {
	if err := s.mem.Save(key, v); err != nil {
		return err
	}
	return s.flush()
}

func (s *FileStore) Delete(key string) error {
	if err := s.mem.Delete(key); err != nil {
		return err
	}
	return s.flush()
}

func (s *FileStore) flush() error {
	s.mem.mu.Lock()
	data, err := json.MarshalIndent(s.mem.values, "", "  ")
	s.mem.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to encode device file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create device directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write device file: %w", err)
	}
	return os.Rename(tmp, s.path)
}
