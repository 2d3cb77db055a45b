package config

import "time"

type FlowConfig interface {
	GetLoginGraceDelay() time.Duration
	GetPollInterval() time.Duration
	GetResolveAttempts() int
	GetResolveMaxBackoff() time.Duration
	GetReturnURL() string
}

type Flow struct {
	source
}

var _ FlowConfig = Flow{}

// GetLoginGraceDelay is how long to wait after the login call before asking
// whether a challenge was raised.
func (f Flow) GetLoginGraceDelay() time.Duration {
	return f.getDuration("LOGIN_GRACE_DELAY", 2*time.Second)
}

func (f Flow) GetPollInterval() time.Duration {
	return f.getDuration("POLL_INTERVAL", 5*time.Second)
}

// GetResolveAttempts is the number of challenge/session checks made after a
// login that did not return a session. 1 means a single check.
func (f Flow) GetResolveAttempts() int {
	return f.getInt("RESOLVE_ATTEMPTS", 1)
}

func (f Flow) GetResolveMaxBackoff() time.Duration {
	return f.getDuration("RESOLVE_MAX_BACKOFF", 16*time.Second)
}

func (f Flow) GetReturnURL() string {
	return f.getString("RETURN_URL", "/dashboard")
}
