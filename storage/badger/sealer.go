package badger

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"

	"github.com/jrsteele09/go-insta-auth/internal/errors"
	"golang.org/x/crypto/chacha20poly1305"
)

var (
	errSealed      = errors.New("value is sealed but no cache key is configured")
	errShortSealed = errors.New("sealed value is truncated")
)

// sealer encrypts values at rest with XChaCha20-Poly1305. The record key is
// bound as additional data so sealed values cannot be swapped between keys.
type sealer struct {
	aead cipher.AEAD
}

// newSealer returns nil for an empty secret.
func newSealer(secret string) (*sealer, error) {
	if secret == "" {
		return nil, nil
	}
	key := sha256.Sum256([]byte(secret))
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, errors.Wrapf(err, "newSealer")
	}
	return &sealer{aead: aead}, nil
}

func (s *sealer) seal(plain, ad []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plain)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return s.aead.Seal(nonce, nonce, plain, ad), nil
}

func (s *sealer) open(sealed, ad []byte) ([]byte, error) {
	n := s.aead.NonceSize()
	if len(sealed) < n+s.aead.Overhead() {
		return nil, errShortSealed
	}
	return s.aead.Open(nil, sealed[:n], sealed[n:], ad)
}
