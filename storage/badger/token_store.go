package badger

import (
	"strings"

	"github.com/jrsteele09/go-insta-auth/cmsauth"
	"github.com/jrsteele09/go-insta-auth/internal/errors"
	"github.com/timshannon/badgerhold/v4"
)

// TokenKey is where the CMS API token is kept.
const TokenKey = "cms_token"

var _ cmsauth.Store = (*TokenStore)(nil)

// TokenStore persists the CMS API token.
type TokenStore struct {
	db *DB
}

func NewTokenStore(db *DB) *TokenStore {
	return &TokenStore{db: db}
}

func (t *TokenStore) Token() (string, error) {
	raw, err := t.db.get(TokenKey)
	if err == badgerhold.ErrNotFound {
		return "", errors.ErrNotAuthenticated
	}
	if err != nil {
		return "", err
	}
	token := strings.TrimSpace(string(raw))
	if token == "" {
		return "", errors.ErrNotAuthenticated
	}
	return token, nil
}

func (t *TokenStore) Set(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.Wrapf(errors.ErrInvalidRequest, "empty CMS token")
	}
	return t.db.put(TokenKey, []byte(token))
}

func (t *TokenStore) Clear() error {
	return t.db.remove(TokenKey)
}
