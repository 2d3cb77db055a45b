package badger

import (
	"bytes"
	"testing"

	"github.com/jrsteele09/go-insta-auth/internal/config"
	"github.com/jrsteele09/go-insta-auth/internal/errors"
	"github.com/jrsteele09/go-insta-auth/sessions"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T, options ...Option) *DB {
	t.Helper()
	options = append([]Option{WithInMemory(), WithLogger(zerolog.Nop())}, options...)
	db, err := Open(config.Storage{}, options...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSessionCache(t *testing.T) {
	cache := NewSessionCache(openTestDB(t))

	_, err := cache.Load()
	require.ErrorIs(t, err, errors.ErrCacheEmpty)

	raw := []byte(`{"id":42,"username":"alice"}`)
	require.NoError(t, cache.Save(raw))
	got, err := cache.Load()
	require.NoError(t, err)
	require.Equal(t, raw, got)

	replacement := []byte(`{"id":43,"username":"bob"}`)
	require.NoError(t, cache.Save(replacement))
	got, err = cache.Load()
	require.NoError(t, err)
	require.Equal(t, replacement, got)

	require.NoError(t, cache.Clear())
	_, err = cache.Load()
	require.ErrorIs(t, err, errors.ErrCacheEmpty)

	require.NoError(t, cache.Clear())
}

func TestTokenStore(t *testing.T) {
	store := NewTokenStore(openTestDB(t))

	_, err := store.Token()
	require.ErrorIs(t, err, errors.ErrNotAuthenticated)

	require.ErrorIs(t, store.Set("   "), errors.ErrInvalidRequest)
	require.NoError(t, store.Set(" abc123 "))

	token, err := store.Token()
	require.NoError(t, err)
	require.Equal(t, "abc123", token)

	require.NoError(t, store.Clear())
	_, err = store.Token()
	require.ErrorIs(t, err, errors.ErrNotAuthenticated)
}

func TestSealedValues(t *testing.T) {
	db := openTestDB(t, WithCacheKey("correct horse battery staple"))
	raw := []byte(`{"id":42,"username":"alice","session_data":{"cookies":{"sessionid":"x"}}}`)
	require.NoError(t, NewSessionCache(db).Save(raw))

	var rec record
	require.NoError(t, db.store.Get(sessions.CacheKey, &rec))
	require.True(t, rec.Sealed)
	require.False(t, bytes.Contains(rec.Value, []byte("sessionid")))

	got, err := NewSessionCache(db).Load()
	require.NoError(t, err)
	require.Equal(t, raw, got)

	t.Run("wrong key", func(t *testing.T) {
		other, err := newSealer("another secret")
		require.NoError(t, err)
		db.sealer = other
		_, err = NewSessionCache(db).Load()
		require.Error(t, err)
		require.NotErrorIs(t, err, errors.ErrCacheEmpty)
	})

	t.Run("no key", func(t *testing.T) {
		db.sealer = nil
		_, err := NewSessionCache(db).Load()
		require.ErrorIs(t, err, errSealed)
	})
}

func TestSealerBindsRecordKey(t *testing.T) {
	s, err := newSealer("secret")
	require.NoError(t, err)

	sealed, err := s.seal([]byte("token"), []byte(TokenKey))
	require.NoError(t, err)

	_, err = s.open(sealed, []byte(sessions.CacheKey))
	require.Error(t, err)
	_, err = s.open(sealed[:4], []byte(TokenKey))
	require.ErrorIs(t, err, errShortSealed)

	plain, err := s.open(sealed, []byte(TokenKey))
	require.NoError(t, err)
	require.Equal(t, "token", string(plain))
}

func TestNewSealer_EmptySecretDisablesSealing(t *testing.T) {
	s, err := newSealer("")
	require.NoError(t, err)
	require.Nil(t, s)
}
