package sessions

// ChallengeInfo is the transient result of a challenge status query. It is
// never written to storage.
type ChallengeInfo struct {
	Active   bool   `json:"has_active_challenge"` // An Instagram verification challenge is pending
	Choice   string `json:"choice,omitempty"`     // Opaque challenge choice code, e.g. "1" for email
	Username string `json:"username"`
	Message  string `json:"message,omitempty"`
}
