package cmsauth

import (
	"github.com/jrsteele09/go-insta-auth/internal/errors"
)

type chain []TokenSource

// Chain returns a TokenSource that yields the first token found, in order.
// Sources reporting ErrNotAuthenticated are skipped; any other error stops the search.
func Chain(sources ...TokenSource) TokenSource {
	return chain(sources)
}

func (c chain) Token() (string, error) {
	for _, src := range c {
		if src == nil {
			continue
		}
		token, err := src.Token()
		if err == nil {
			return token, nil
		}
		if !errors.Is(err, errors.ErrNotAuthenticated) {
			return "", err
		}
	}
	return "", errors.ErrNotAuthenticated
}
