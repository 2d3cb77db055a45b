package cachefake_test

import (
	"testing"

	"github.com/jrsteele09/go-insta-auth/internal/errors"
	"github.com/jrsteele09/go-insta-auth/sessions/cachefake"
	"github.com/stretchr/testify/require"
)

func TestFakeCache_ErrorsPersistUntilReset(t *testing.T) {
	fc := cachefake.NewFakeCache()
	require.NoError(t, fc.Save([]byte(`{"id":1}`)))

	fc.ClearErr = errors.New("disk full")
	require.Error(t, fc.Clear())
	require.Error(t, fc.Clear())
	require.NotNil(t, fc.Raw())

	fc.ClearErr = nil
	require.NoError(t, fc.Clear())
	_, err := fc.Load()
	require.ErrorIs(t, err, errors.ErrCacheEmpty)
}
