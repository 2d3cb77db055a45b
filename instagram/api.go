package instagram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/go-insta-auth/internal/errors"
	"github.com/jrsteele09/go-insta-auth/sessions"
)

const (
	pathLogin           = "/instagram/login/"
	pathChallengeStatus = "/instagram/challenge-status/%s/"
	pathSubmitChallenge = "/instagram/submit-challenge/"
	pathSession         = "/instagram/session/"
)

var _ sessions.Backend = (*Client)(nil)

// Login submits Instagram credentials. The backend may take longer than the
// request budget while Instagram completes the login, so callers should treat
// transport failures here as inconclusive rather than fatal.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "username and password are required")
	}

	var raw json.RawMessage
	if err := c.post(ctx, pathLogin, loginRequest{Username: username, Password: password}, &raw); err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return &LoginResponse{}, nil
	}
	resp, err := decodeLoginResponse(raw, username)
	if err != nil {
		return nil, errors.Wrapf(err, "decode login response")
	}
	return resp, nil
}

// ChallengeStatus asks whether Instagram raised a verification challenge for username.
// It has no side effects on this side and may be called repeatedly.
func (c *Client) ChallengeStatus(ctx context.Context, username string) (*sessions.ChallengeInfo, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "username is required")
	}

	var resp challengeStatusResponse
	if err := c.get(ctx, challengeStatusPath(username), &resp); err != nil {
		return nil, err
	}
	return resp.challenge(username), nil
}

// SubmitChallenge sends the verification code. On success the returned session
// is the new authoritative session.
func (c *Client) SubmitChallenge(ctx context.Context, username, code string) (*sessions.Session, error) {
	username = strings.TrimSpace(username)
	code = strings.TrimSpace(code)
	if username == "" || code == "" {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "username and challenge code are required")
	}

	var session sessions.Session
	if err := c.post(ctx, pathSubmitChallenge, submitChallengeRequest{Username: username, ChallengeCode: code}, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// GetSession fetches the backend's session record. A 404 maps to errors.ErrSessionNotFound.
func (c *Client) GetSession(ctx context.Context) (*sessions.Session, error) {
	var session sessions.Session
	if err := c.get(ctx, pathSession, &session); err != nil {
		return nil, notFoundAsSessionMissing(err)
	}
	return &session, nil
}

// DeleteSession removes the backend's session record.
func (c *Client) DeleteSession(ctx context.Context) error {
	if err := c.delete(ctx, pathSession); err != nil {
		return notFoundAsSessionMissing(err)
	}
	return nil
}

func challengeStatusPath(username string) string {
	return fmt.Sprintf(pathChallengeStatus, url.PathEscape(username))
}

func notFoundAsSessionMissing(err error) error {
	if apiErr, ok := IsAPIError(err); ok && apiErr.StatusCode == http.StatusNotFound {
		return errors.Wrapf(errors.ErrSessionNotFound, "%s", apiErr.Error())
	}
	return err
}
