package sessions

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/jrsteele09/go-insta-auth/internal/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Synchronizer keeps the in-memory session and the local cache in lockstep and
// reconciles both against the backend, which always wins.
type Synchronizer struct {
	mu      sync.RWMutex
	cache   Cache
	backend Backend
	logger  zerolog.Logger

	current *Session
	raw     []byte // serialized form of current, identical to the cache content
}

// SynchronizerOption defines a function type to modify the Synchronizer instance.
type SynchronizerOption func(*Synchronizer)

// WithLogger sets the logger used for best-effort failures.
func WithLogger(logger zerolog.Logger) SynchronizerOption {
	return func(s *Synchronizer) {
		s.logger = logger
	}
}

// NewSynchronizer initializes a Synchronizer. Nothing is read until LoadCached or Load.
func NewSynchronizer(cache Cache, backend Backend, options ...SynchronizerOption) (*Synchronizer, error) {
	if cache == nil {
		return nil, errors.New("[NewSynchronizer] cache is required")
	}
	if backend == nil {
		return nil, errors.New("[NewSynchronizer] backend is required")
	}

	s := &Synchronizer{
		cache:   cache,
		backend: backend,
		logger:  log.Logger,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Load reads the cached session for immediate use, then reconciles it with the backend.
func (s *Synchronizer) Load(ctx context.Context) (*Session, error) {
	if _, err := s.LoadCached(); err != nil {
		s.logger.Warn().Err(err).Msg("Reading cached instagram session failed")
	}
	if err := s.Reconcile(ctx); err != nil {
		return s.Current(), err
	}
	return s.Current(), nil
}

// LoadCached copies the locally cached session into memory without any network call.
// Undecodable cache content is discarded.
func (s *Synchronizer) LoadCached() (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.cache.Load()
	if errors.Is(err, errors.ErrCacheEmpty) {
		s.current, s.raw = nil, nil
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "LoadCached cache.Load")
	}

	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		s.logger.Warn().Err(err).Msg("Discarding undecodable cached instagram session")
		s.current, s.raw = nil, nil
		if clearErr := s.cache.Clear(); clearErr != nil {
			return nil, errors.Wrapf(clearErr, "LoadCached cache.Clear")
		}
		return nil, nil
	}

	s.current = &session
	s.raw = raw
	return session.Clone(), nil
}

// Reconcile fetches the backend session. A missing backend session clears the
// local state. Any other failure is logged and the local cache is left in place.
func (s *Synchronizer) Reconcile(ctx context.Context) error {
	session, err := s.backend.GetSession(ctx)
	switch {
	case errors.Is(err, errors.ErrSessionNotFound):
		s.logger.Debug().Msg("Backend has no instagram session, clearing local copy")
		return s.clearLocal(false)
	case err != nil:
		s.logger.Warn().Err(err).Msg("Instagram session reconciliation failed, keeping cached copy")
		return nil
	}
	return s.Store(session)
}

// Store writes session to the cache and then to memory. If the cache write
// fails, memory is left untouched.
func (s *Synchronizer) Store(session *Session) error {
	if session == nil {
		return errors.Wrapf(errors.ErrInvalidRequest, "Store nil session")
	}
	raw, err := json.Marshal(session)
	if err != nil {
		return errors.Wrapf(err, "Store json.Marshal")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.cache.Save(raw); err != nil {
		return errors.Wrapf(err, "Store cache.Save")
	}
	s.current = session.Clone()
	s.raw = raw
	return nil
}

// Clear logs the account out: the backend record is deleted first, then the
// local state is cleared whatever the backend outcome. Memory is emptied even
// when the cache cannot be cleared. Backend and cache errors are both returned.
func (s *Synchronizer) Clear(ctx context.Context) error {
	backendErr := s.backend.DeleteSession(ctx)
	if errors.Is(backendErr, errors.ErrSessionNotFound) {
		backendErr = nil
	}
	if backendErr != nil {
		s.logger.Warn().Err(backendErr).Msg("Deleting backend instagram session failed, clearing local copy anyway")
	}

	localErr := s.clearLocal(true)
	if localErr != nil {
		s.logger.Error().Err(localErr).Msg("Clearing cached instagram session failed")
	}
	if backendErr != nil {
		return errors.Join(errors.Wrapf(backendErr, "Clear backend.DeleteSession"), localErr)
	}
	return localErr
}

// clearLocal empties the cache and then memory. If the cache cannot be
// cleared, memory is kept so both still agree, unless force is set.
func (s *Synchronizer) clearLocal(force bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.cache.Clear(); err != nil {
		if force {
			s.current, s.raw = nil, nil
		}
		return errors.Wrapf(err, "clearLocal cache.Clear")
	}
	s.current, s.raw = nil, nil
	return nil
}

// Current returns a copy of the in-memory session, or nil.
func (s *Synchronizer) Current() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Snapshot returns the serialized in-memory session, or nil.
func (s *Synchronizer) Snapshot() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.raw == nil {
		return nil
	}
	return append([]byte(nil), s.raw...)
}

// Require returns the current session or errors.ErrNoSession. Consumers such
// as post scheduling call this before acting on the account.
func (s *Synchronizer) Require() (*Session, error) {
	if current := s.Current(); current != nil {
		return current, nil
	}
	return nil, errors.ErrNoSession
}
