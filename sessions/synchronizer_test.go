package sessions_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-insta-auth/internal/errors"
	"github.com/jrsteele09/go-insta-auth/internal/utils"
	"github.com/jrsteele09/go-insta-auth/sessions"
	"github.com/jrsteele09/go-insta-auth/sessions/cachefake"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu        sync.Mutex
	session   *sessions.Session
	getErr    error
	deleteErr error
	deletes   int
}

func (fb *fakeBackend) GetSession(ctx context.Context) (*sessions.Session, error) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if fb.getErr != nil {
		return nil, fb.getErr
	}
	if fb.session == nil {
		return nil, errors.ErrSessionNotFound
	}
	return fb.session.Clone(), nil
}

func (fb *fakeBackend) DeleteSession(ctx context.Context) error {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.deletes++
	if fb.deleteErr != nil {
		return fb.deleteErr
	}
	fb.session = nil
	return nil
}

func testSession(id int64, username string) *sessions.Session {
	return &sessions.Session{
		ID:          id,
		Username:    username,
		DisplayName: "Alice Travels",
		Payload:     json.RawMessage(`{"user_agent":"Instagram 269.0.0.18.75 Android","locale":"en_US","timezone_offset":3600,"device_settings":{"manufacturer":"OnePlus","model":"devitron"},"cookies":{}}`),
		CreatedAt:   time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		UpdatedAt:   time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC),
	}
}

func newSynchronizer(t *testing.T, cache sessions.Cache, backend sessions.Backend) *sessions.Synchronizer {
	t.Helper()
	s, err := sessions.NewSynchronizer(cache, backend, sessions.WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	return s
}

func TestNewSynchronizer_RequiresDependencies(t *testing.T) {
	_, err := sessions.NewSynchronizer(nil, &fakeBackend{})
	require.Error(t, err)
	_, err = sessions.NewSynchronizer(cachefake.NewFakeCache(), nil)
	require.Error(t, err)
}

func TestStore_KeepsMemoryAndCacheInLockstep(t *testing.T) {
	cache := cachefake.NewFakeCache()
	s := newSynchronizer(t, cache, &fakeBackend{})

	require.NoError(t, s.Store(testSession(1, "alice")))

	memory, err := json.Marshal(s.Current())
	require.NoError(t, err)
	require.JSONEq(t, string(cache.Raw()), string(memory))
	require.Equal(t, cache.Raw(), s.Snapshot())
}

func TestStore_CacheFailureLeavesMemoryUntouched(t *testing.T) {
	cache := cachefake.NewFakeCache()
	s := newSynchronizer(t, cache, &fakeBackend{})
	require.NoError(t, s.Store(testSession(1, "alice")))

	cache.SaveErr = errors.New("disk full")
	require.Error(t, s.Store(testSession(2, "bob")))

	require.Equal(t, "alice", s.Current().Username)
	require.Equal(t, cache.Raw(), s.Snapshot())
}

func TestStore_NilSession(t *testing.T) {
	s := newSynchronizer(t, cachefake.NewFakeCache(), &fakeBackend{})
	require.ErrorIs(t, s.Store(nil), errors.ErrInvalidRequest)
}

func TestCurrent_ReturnsCopy(t *testing.T) {
	s := newSynchronizer(t, cachefake.NewFakeCache(), &fakeBackend{})
	require.NoError(t, s.Store(testSession(1, "alice")))

	c := s.Current()
	c.Username = "mallory"
	c.Payload[0] = 'X'

	require.Equal(t, "alice", s.Current().Username)
	require.Equal(t, byte('{'), s.Current().Payload[0])
}

func TestLoadCached(t *testing.T) {
	t.Run("empty cache", func(t *testing.T) {
		s := newSynchronizer(t, cachefake.NewFakeCache(), &fakeBackend{})
		got, err := s.LoadCached()
		require.NoError(t, err)
		require.Nil(t, got)
		require.Nil(t, s.Current())
	})

	t.Run("cached session is available without network", func(t *testing.T) {
		cache := cachefake.NewFakeCache()
		raw, _ := json.Marshal(testSession(3, "alice"))
		require.NoError(t, cache.Save(raw))

		backend := &fakeBackend{getErr: errors.New("must not be called")}
		s := newSynchronizer(t, cache, backend)
		got, err := s.LoadCached()
		require.NoError(t, err)
		require.Equal(t, int64(3), got.ID)
		require.Equal(t, raw, s.Snapshot())
	})

	t.Run("corrupt cache is discarded", func(t *testing.T) {
		cache := cachefake.NewFakeCache()
		require.NoError(t, cache.Save([]byte("{not json")))

		s := newSynchronizer(t, cache, &fakeBackend{})
		got, err := s.LoadCached()
		require.NoError(t, err)
		require.Nil(t, got)
		require.Nil(t, cache.Raw())
	})
}

func TestReconcile_BackendWins(t *testing.T) {
	cache := cachefake.NewFakeCache()
	raw, _ := json.Marshal(testSession(1, "alice"))
	require.NoError(t, cache.Save(raw))

	s := newSynchronizer(t, cache, &fakeBackend{}) // backend reports 404
	got, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Nil(t, got)
	require.Nil(t, s.Current())
	require.Nil(t, cache.Raw())
}

func TestReconcile_BackendSessionReplacesCache(t *testing.T) {
	cache := cachefake.NewFakeCache()
	raw, _ := json.Marshal(testSession(1, "alice"))
	require.NoError(t, cache.Save(raw))

	s := newSynchronizer(t, cache, &fakeBackend{session: testSession(9, "alice_new")})
	got, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(9), got.ID)
	require.Equal(t, cache.Raw(), s.Snapshot())
}

func TestReconcile_TransportFailureKeepsCache(t *testing.T) {
	cache := cachefake.NewFakeCache()
	raw, _ := json.Marshal(testSession(1, "alice"))
	require.NoError(t, cache.Save(raw))

	s := newSynchronizer(t, cache, &fakeBackend{getErr: errors.New("connection refused")})
	got, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, "alice", got.Username)
	require.Equal(t, raw, cache.Raw())
}

func TestClear_AlwaysClearsLocalState(t *testing.T) {
	cache := cachefake.NewFakeCache()
	backend := &fakeBackend{deleteErr: errors.New("gateway timeout")}
	s := newSynchronizer(t, cache, backend)
	require.NoError(t, s.Store(testSession(1, "alice")))

	err := s.Clear(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "gateway timeout")

	require.Nil(t, s.Current())
	require.Nil(t, s.Snapshot())
	require.Nil(t, cache.Raw())
	require.Equal(t, 1, backend.deletes)
}

func TestReconcile_CacheClearFailureKeepsLockstep(t *testing.T) {
	cache := cachefake.NewFakeCache()
	s := newSynchronizer(t, cache, &fakeBackend{})
	require.NoError(t, s.Store(testSession(1, "alice")))

	cache.ClearErr = errors.New("disk full")
	err := s.Reconcile(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "disk full")

	require.NotNil(t, s.Current())
	require.Equal(t, s.Snapshot(), cache.Raw())

	cache.ClearErr = nil
	require.NoError(t, s.Reconcile(context.Background()))
	require.Nil(t, s.Current())
	require.Nil(t, cache.Raw())
}

func TestClear_CacheFailureIsReported(t *testing.T) {
	cache := cachefake.NewFakeCache()
	backend := &fakeBackend{session: testSession(1, "alice")}
	s := newSynchronizer(t, cache, backend)
	require.NoError(t, s.Store(testSession(1, "alice")))

	cache.ClearErr = errors.New("disk full")
	err := s.Clear(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "disk full")
	require.Nil(t, s.Current())
	require.Nil(t, backend.session)

	backend.deleteErr = errors.New("gateway timeout")
	err = s.Clear(context.Background())
	require.Contains(t, err.Error(), "gateway timeout")
	require.Contains(t, err.Error(), "disk full")
}

func TestClear_Success(t *testing.T) {
	cache := cachefake.NewFakeCache()
	backend := &fakeBackend{session: testSession(1, "alice")}
	s := newSynchronizer(t, cache, backend)
	require.NoError(t, s.Store(testSession(1, "alice")))

	require.NoError(t, s.Clear(context.Background()))
	require.Nil(t, cache.Raw())
	require.Nil(t, backend.session)

	_, err := s.Require()
	require.ErrorIs(t, err, errors.ErrNoSession)
}

func TestClear_BackendAlreadyGone(t *testing.T) {
	backend := &fakeBackend{deleteErr: errors.ErrSessionNotFound}
	s := newSynchronizer(t, cachefake.NewFakeCache(), backend)
	require.NoError(t, s.Clear(context.Background()))
}

func TestMetadata(t *testing.T) {
	md := testSession(1, "alice").Metadata()
	require.Equal(t, "en_US", md.Locale)
	require.Equal(t, utils.Ptr(3600), md.TimezoneOffset)
	require.NotNil(t, md.Device)
	require.Equal(t, "OnePlus", md.Device.Manufacturer)

	require.Equal(t, sessions.SessionMetadata{}, (&sessions.Session{Payload: json.RawMessage(`[1,2]`)}).Metadata())
	require.Equal(t, sessions.SessionMetadata{}, (*sessions.Session)(nil).Metadata())
}
