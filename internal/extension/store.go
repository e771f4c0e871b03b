package extension

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Keys persisted by the extension
const (
	KeyToken        = "token"
	KeyRefreshToken = "refreshToken"
	KeyUser         = "user"
	KeyPrefillText  = "prefillText"
	KeyLatestResult = "latestResult"
)

// Store is the extension's local key/value storage.
type Store interface {
	// Get decodes the value under key into out and reports whether it was present.
	Get(key string, out any) (bool, error)
	Set(key string, value any) error
	Remove(keys ...string) error
}

// FileStore keeps all keys in a single JSON document on disk.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Get(key string, out any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return false, err
	}

	raw, ok := values[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

func (s *FileStore) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	values[key] = raw
	return s.save(values)
}

func (s *FileStore) Remove(keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	for _, key := range keys {
		delete(values, key)
	}
	return s.save(values)
}

func (s *FileStore) load() (map[string]json.RawMessage, error) {
	values := make(map[string]json.RawMessage)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return values, nil
		}
		return nil, fmt.Errorf("failed to read store: %w", err)
	}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse store: %w", err)
	}
	return values, nil
}

// save writes to a temp file in the same directory and renames it over the
// store so a crash never leaves a truncated document behind.
func (s *FileStore) save(values map[string]json.RawMessage) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode store: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".store-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write store: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace store: %w", err)
	}
	return nil
}

// take reads key and removes it, for one-shot hand-off values.
func take(store Store, key string, out any) (bool, error) {
	ok, err := store.Get(key, out)
	if err != nil || !ok {
		return ok, err
	}
	if err := store.Remove(key); err != nil {
		return true, err
	}
	return true, nil
}

// TokenStore adapts a Store to session.TokenStore.
type TokenStore struct {
	Store Store
}

func (t TokenStore) Token() (string, bool, error) {
	var token string
	ok, err := t.Store.Get(KeyToken, &token)
	if err != nil {
		return "", false, err
	}
	return token, ok && token != "", nil
}

func (t TokenStore) SetToken(token string) error {
	return t.Store.Set(KeyToken, token)
}

func (t TokenStore) ClearToken() error {
	return t.Store.Remove(KeyToken, KeyRefreshToken, KeyUser)
}
