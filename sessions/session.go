package sessions

import (
	"encoding/json"
	"time"
)

// Session is the linked Instagram account as persisted by the CMS backend.
// Payload is the backend's opaque settings blob (device ids, cookies, locale,
// user agent). It is stored and forwarded verbatim.
type Session struct {
	ID          int64           `json:"id"`                     // Backend-assigned identifier
	Username    string          `json:"username"`               // Instagram username
	DisplayName string          `json:"display_name,omitempty"` // Instagram display name
	Payload     json.RawMessage `json:"session_data,omitempty"` // Opaque session settings
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Clone returns a deep copy so callers never share the payload buffer.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.Payload != nil {
		c.Payload = append(json.RawMessage(nil), s.Payload...)
	}
	return &c
}

// SessionMetadata is a partial, display-only view of the payload. Every field
// is optional; absent or malformed payloads produce the zero value.
type SessionMetadata struct {
	UserAgent      string          `json:"user_agent,omitempty"`
	Locale         string          `json:"locale,omitempty"`
	Country        string          `json:"country,omitempty"`
	TimezoneOffset *int            `json:"timezone_offset,omitempty"`
	LastLogin      *float64        `json:"last_login,omitempty"`
	Device         *DeviceSettings `json:"device_settings,omitempty"`
}

type DeviceSettings struct {
	Manufacturer   string `json:"manufacturer,omitempty"`
	Model          string `json:"model,omitempty"`
	AndroidRelease string `json:"android_release,omitempty"`
}

// Metadata decodes the known optional fields of the payload.
func (s *Session) Metadata() SessionMetadata {
	var md SessionMetadata
	if s == nil || len(s.Payload) == 0 {
		return md
	}
	if err := json.Unmarshal(s.Payload, &md); err != nil {
		return SessionMetadata{}
	}
	return md
}
