package errors

import (
	"errors"
	"fmt"
)

// Common error types for the Instagram account link
var (
	// Precondition errors
	ErrNotAuthenticated = errors.New("not authenticated: CMS token missing")

	// Session errors
	ErrSessionNotFound = errors.New("instagram session not found")
	ErrNoSession       = errors.New("no instagram session linked")
	ErrCacheEmpty      = errors.New("session cache empty")

	// Login / challenge errors
	ErrChallengeRejected = errors.New("verification code rejected")
	ErrLoginUnresolved   = errors.New("login did not complete and no challenge was raised")

	// Flow errors
	ErrSubmissionInProgress = errors.New("a login submission is already in progress")
	ErrInvalidState         = errors.New("operation not allowed in the current flow state")
	ErrFlowClosed           = errors.New("login flow closed")

	// General errors
	ErrInvalidRequest = errors.New("invalid request")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New is errors.New, re-exported so callers need a single errors import
func New(text string) error {
	return errors.New(text)
}

// Join combines errors, skipping nils
func Join(errs ...error) error {
	return errors.Join(errs...)
}
