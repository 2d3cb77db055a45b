package cachefake

import (
	"sync"

	"github.com/jrsteele09/go-insta-auth/internal/errors"
	"github.com/jrsteele09/go-insta-auth/sessions"
)

var _ sessions.Cache = (*FakeCache)(nil)

// FakeCache is an in-memory single-slot session cache. While an *Err field is
// set, every matching call fails with it; set it back to nil to recover.
type FakeCache struct {
	lock sync.RWMutex
	data []byte

	LoadErr  error
	SaveErr  error
	ClearErr error
}

func NewFakeCache() *FakeCache {
	return &FakeCache{}
}

func (fc *FakeCache) Load() ([]byte, error) {
	fc.lock.RLock()
	defer fc.lock.RUnlock()

	if fc.LoadErr != nil {
		return nil, fc.LoadErr
	}
	if fc.data == nil {
		return nil, errors.ErrCacheEmpty
	}
	return append([]byte(nil), fc.data...), nil
}

func (fc *FakeCache) Save(data []byte) error {
	fc.lock.Lock()
	defer fc.lock.Unlock()

	if fc.SaveErr != nil {
		return fc.SaveErr
	}
	fc.data = append([]byte(nil), data...)
	return nil
}

func (fc *FakeCache) Clear() error {
	fc.lock.Lock()
	defer fc.lock.Unlock()

	if fc.ClearErr != nil {
		return fc.ClearErr
	}
	fc.data = nil
	return nil
}

// Raw returns the stored bytes without the Load error hook.
func (fc *FakeCache) Raw() []byte {
	fc.lock.RLock()
	defer fc.lock.RUnlock()
	if fc.data == nil {
		return nil
	}
	return append([]byte(nil), fc.data...)
}
