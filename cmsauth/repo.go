package cmsauth

// TokenSource supplies the CMS token that authenticates staff calls to the
// CMS backend. Token returns errors.ErrNotAuthenticated when no token is held.
type TokenSource interface {
	Token() (string, error)
}

// Store is a TokenSource that can also be written, e.g. after a CMS login.
type Store interface {
	TokenSource

	// Set replaces the held token
	Set(token string) error

	// Clear removes the held token
	Clear() error
}
