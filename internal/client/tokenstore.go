package client

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// TokenStore persists the session token between runs, the way the
// browser frontend keeps it in localStorage.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

type MemTokenStore struct {
	mu    sync.Mutex
	token string
}

func NewMemTokenStore() *MemTokenStore {
	return &MemTokenStore{}
}

func (s *MemTokenStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

func (s *MemTokenStore) Save(token string) error {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}

func (s *MemTokenStore) Clear() error {
	return s.Save("")
}

type FileTokenStore struct {
	path string
}

// NewFileTokenStore keeps the token under the user config directory
// unless an explicit path is given.
func NewFileTokenStore(path string) (*FileTokenStore, error) {
	if path == "" {
		dir, err := os.UserConfigDir()

		if err != nil {
			return nil, err
		}

		path = filepath.Join(dir, "marketdash", "token")
	}

	err := os.MkdirAll(filepath.Dir(path), 0o700)

	if err != nil {
		return nil, err
	}

	return &FileTokenStore{path: path}, nil
}

func (s *FileTokenStore) Load() (string, error) {
	b, err := os.ReadFile(s.path)

	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}

		return "", err
	}

	return strings.TrimSpace(string(b)), nil
}

func (s *FileTokenStore) Save(token string) error {
	return os.WriteFile(s.path, []byte(token), 0o600)
}

func (s *FileTokenStore) Clear() error {
	err := os.Remove(s.path)

	if err != nil && !os.IsNotExist(err) {
		return err
	}

	return nil
}
