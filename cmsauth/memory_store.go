package cmsauth

import (
	"strings"
	"sync"

	"github.com/jrsteele09/go-insta-auth/internal/errors"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore holds the CMS token in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	token string
}

// NewMemoryStore returns a store seeded with token, which may be empty.
func NewMemoryStore(token string) *MemoryStore {
	return &MemoryStore{token: strings.TrimSpace(token)}
}

func (m *MemoryStore) Token() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.token == "" {
		return "", errors.ErrNotAuthenticated
	}
	return m.token, nil
}

func (m *MemoryStore) Set(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.Wrapf(errors.ErrInvalidRequest, "empty CMS token")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}
