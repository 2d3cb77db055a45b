package sessions

import "context"

// CacheKey is the single slot under which the serialized session is kept.
const CacheKey = "instagram_session"

// Cache is the local persistent copy of the session. It holds at most one
// serialized session and is never authoritative over the backend.
type Cache interface {
	// Load returns the cached bytes or errors.ErrCacheEmpty
	Load() ([]byte, error)

	// Save replaces the cached bytes
	Save(data []byte) error

	// Clear empties the slot; clearing an empty slot is not an error
	Clear() error
}

// Backend is the authoritative session record held by the CMS backend.
type Backend interface {
	// GetSession returns errors.ErrSessionNotFound when no session exists
	GetSession(ctx context.Context) (*Session, error)

	// DeleteSession removes the backend record
	DeleteSession(ctx context.Context) error
}
