package instagram

import (
	"encoding/json"
	"strings"

	"github.com/jrsteele09/go-insta-auth/sessions"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type submitChallengeRequest struct {
	Username      string `json:"username"`
	ChallengeCode string `json:"challenge_code"`
}

type challengeInfoWire struct {
	Username string          `json:"username"`
	Choice   json.RawMessage `json:"choice,omitempty"`
}

type challengeStatusResponse struct {
	HasActiveChallenge bool               `json:"has_active_challenge"`
	ChallengeRequired  bool               `json:"challenge_required"`
	ChallengeInfo      *challengeInfoWire `json:"challenge_info,omitempty"`
	Message            string             `json:"message,omitempty"`
}

func (r challengeStatusResponse) challenge(username string) *sessions.ChallengeInfo {
	info := &sessions.ChallengeInfo{
		Active:   r.HasActiveChallenge || r.ChallengeRequired,
		Username: username,
		Message:  r.Message,
	}
	if r.ChallengeInfo != nil {
		if r.ChallengeInfo.Username != "" {
			info.Username = r.ChallengeInfo.Username
		}
		info.Choice = choiceString(r.ChallengeInfo.Choice)
	}
	return info
}

// choiceString keeps the choice opaque: numbers and strings are both accepted.
func choiceString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

// LoginResponse is the outcome of a login call that returned a response.
// Exactly one of Session or Challenge is set when the backend was explicit.
type LoginResponse struct {
	Session   *sessions.Session
	Challenge *sessions.ChallengeInfo
	Message   string
}

// NeedsChallenge reports whether the backend indicated a pending challenge.
func (lr *LoginResponse) NeedsChallenge() bool {
	return lr != nil && lr.Challenge != nil && lr.Challenge.Active
}

type loginResponseWire struct {
	challengeStatusResponse
	Session *sessions.Session `json:"session,omitempty"`
	ID      int64             `json:"id"`
	User    string            `json:"username"`
}

func decodeLoginResponse(body []byte, username string) (*LoginResponse, error) {
	var wire loginResponseWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, err
	}

	resp := &LoginResponse{Message: wire.Message}
	challenge := wire.challenge(username)
	if challenge.Active {
		resp.Challenge = challenge
		return resp, nil
	}

	switch {
	case wire.Session != nil:
		resp.Session = wire.Session
	case wire.ID != 0 || wire.User != "":
		var session sessions.Session
		if err := json.Unmarshal(body, &session); err != nil {
			return nil, err
		}
		resp.Session = &session
	}
	return resp, nil
}
