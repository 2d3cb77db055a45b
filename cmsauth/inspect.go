package cmsauth

import (
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-insta-auth/internal/errors"
)

// TokenInfo describes what can be learned about a CMS token without contacting
// the backend. Opaque (non-JWT) tokens only report Present.
type TokenInfo struct {
	Present   bool
	JWT       bool
	Subject   string
	ExpiresAt *time.Time
}

// Expired reports whether the token carries an expiry that has passed.
func (ti TokenInfo) Expired(now time.Time) bool {
	return ti.ExpiresAt != nil && !ti.ExpiresAt.After(now)
}

// Inspect parses the token as an unverified JWT when it looks like one. The
// signature is never checked here; the backend remains the authority.
func Inspect(rawToken string) TokenInfo {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return TokenInfo{}
	}
	info := TokenInfo{Present: true}
	if strings.Count(rawToken, ".") != 2 {
		return info
	}

	claims := jwtlib.RegisteredClaims{}
	if _, _, err := jwtlib.NewParser().ParseUnverified(rawToken, &claims); err != nil {
		return info
	}
	info.JWT = true
	info.Subject = claims.Subject
	if claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Time
		info.ExpiresAt = &exp
	}
	return info
}

type checked struct {
	src TokenSource
	now func() time.Time
}

// Checked wraps src so that JWT tokens past their expiry are reported as absent.
func Checked(src TokenSource, now func() time.Time) TokenSource {
	if now == nil {
		now = time.Now
	}
	return checked{src: src, now: now}
}

func (c checked) Token() (string, error) {
	token, err := c.src.Token()
	if err != nil {
		return "", err
	}
	if Inspect(token).Expired(c.now()) {
		return "", errors.Wrapf(errors.ErrNotAuthenticated, "CMS token expired")
	}
	return token, nil
}
