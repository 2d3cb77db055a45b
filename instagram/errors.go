package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-insta-auth/internal/errors"
	"github.com/jrsteele09/go-insta-auth/internal/utils"
)

// GenericErrorMessage is used when a failed response carries no readable message.
const GenericErrorMessage = "Request failed"

// APIError is a non-2xx response from the backend.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Message is the most specific message found in the body, or empty.
	Message string
	// Body is the raw response body.
	Body []byte
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s (status %d)", GenericErrorMessage, e.StatusCode)
}

// Unwrap maps 401 responses onto errors.ErrNotAuthenticated.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return errors.ErrNotAuthenticated
	}
	return nil
}

// IsNotFound returns true if the error is a not found error.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsValidationError returns true for 400 and 422 responses.
func (e *APIError) IsValidationError() bool {
	return e.StatusCode == http.StatusBadRequest || e.StatusCode == http.StatusUnprocessableEntity
}

// TransportError is a failure to obtain any response: DNS, connection, timeout, cancellation.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was a deadline rather than a refusal.
func (e *TransportError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// IsTransportError reports whether err is a *TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsAPIError checks if an error is an API error and returns it.
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// ErrorMessage returns the human-readable message of err for notifications:
// the backend message for API errors, otherwise err.Error(). fallback is used
// when nothing better is available.
func ErrorMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	if apiErr, ok := IsAPIError(err); ok {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return fallback
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}

// messageFields are checked in order for a readable error message.
var messageFields = []string{"detail", "message", "error"}

// parseError builds an APIError from a failed response.
func parseError(statusCode int, body []byte) error {
	return &APIError{
		StatusCode: statusCode,
		Message:    extractMessage(body),
		Body:       body,
	}
}

func extractMessage(body []byte) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return ""
	}
	for _, name := range messageFields {
		raw, ok := fields[name]
		if !ok {
			continue
		}
		if msg := messageText(raw); msg != "" {
			return msg
		}
	}
	return ""
}

// messageText accepts a string or a list of strings (DRF validation style).
func messageText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var list []any
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.TrimSpace(strings.Join(utils.ToStringSlice(list), " "))
	}
	return ""
}
