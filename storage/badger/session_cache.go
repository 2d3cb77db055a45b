package badger

import (
	"github.com/jrsteele09/go-insta-auth/internal/errors"
	"github.com/jrsteele09/go-insta-auth/sessions"
	"github.com/timshannon/badgerhold/v4"
)

var _ sessions.Cache = (*SessionCache)(nil)

// SessionCache is the single-slot session cache kept under sessions.CacheKey.
type SessionCache struct {
	db *DB
}

func NewSessionCache(db *DB) *SessionCache {
	return &SessionCache{db: db}
}

func (c *SessionCache) Load() ([]byte, error) {
	raw, err := c.db.get(sessions.CacheKey)
	if err == badgerhold.ErrNotFound {
		return nil, errors.ErrCacheEmpty
	}
	return raw, err
}

func (c *SessionCache) Save(raw []byte) error {
	return c.db.put(sessions.CacheKey, raw)
}

func (c *SessionCache) Clear() error {
	return c.db.remove(sessions.CacheKey)
}
