package loginflow

import (
	"context"
	"strings"
	"time"

	"github.com/jrsteele09/go-insta-auth/instagram"
	apperrors "github.com/jrsteele09/go-insta-auth/internal/errors"
	"github.com/jrsteele09/go-insta-auth/notifications"
	"github.com/jrsteele09/go-insta-auth/sessions"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultGraceDelay gives the backend time to register a challenge after a login call.
	DefaultGraceDelay = 2 * time.Second
	// DefaultMaxBackoff caps the wait between resolve attempts.
	DefaultMaxBackoff = 16 * time.Second

	submitFallbackMessage = "Failed to verify the code. Please try again."
	loginFallbackMessage  = "Instagram login failed. Please try again."
)

// Authenticator is the subset of the backend API the login flow needs.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*instagram.LoginResponse, error)
	ChallengeStatus(ctx context.Context, username string) (*sessions.ChallengeInfo, error)
	SubmitChallenge(ctx context.Context, username, code string) (*sessions.Session, error)
	GetSession(ctx context.Context) (*sessions.Session, error)
}

// SessionStore is where obtained sessions are kept; *sessions.Synchronizer satisfies it.
type SessionStore interface {
	Store(session *sessions.Session) error
	Reconcile(ctx context.Context) error
	Current() *sessions.Session
}

// Result is the outcome of a credential submission.
type Result struct {
	NeedsChallenge bool
	ChallengeInfo  *sessions.ChallengeInfo
	Session        *sessions.Session
}

// UserError carries the message shown to the user alongside the underlying cause.
type UserError struct {
	Message string
	Err     error
	kind    error
}

func (e *UserError) Error() string {
	return e.Message
}

func (e *UserError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.kind != nil {
		errs = append(errs, e.kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Service performs the login, challenge and verification steps. It holds no
// per-attempt state; Flow layers the state machine on top.
type Service struct {
	api      Authenticator
	store    SessionStore
	notifier notifications.Notifier
	logger   zerolog.Logger

	graceDelay      time.Duration
	resolveAttempts int
	initialBackoff  time.Duration
	maxBackoff      time.Duration
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithGraceDelay sets the wait between an inconclusive login call and the first challenge check.
func WithGraceDelay(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d >= 0 {
			s.graceDelay = d
		}
	}
}

// WithResolveBackoff makes login keep checking for a challenge or a session
// up to attempts times, doubling the wait from initial up to max.
func WithResolveBackoff(attempts int, initial, max time.Duration) ServiceOption {
	return func(s *Service) {
		if attempts > 0 {
			s.resolveAttempts = attempts
		}
		if initial > 0 {
			s.initialBackoff = initial
		}
		if max > 0 {
			s.maxBackoff = max
		}
	}
}

// WithServiceLogger sets the logger.
func WithServiceLogger(logger zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService initializes a Service with required dependencies.
func NewService(api Authenticator, store SessionStore, notifier notifications.Notifier, options ...ServiceOption) (*Service, error) {
	if api == nil {
		return nil, errors.New("[NewService] api is required")
	}
	if store == nil {
		return nil, errors.New("[NewService] session store is required")
	}
	if notifier == nil {
		return nil, errors.New("[NewService] notifier is required")
	}

	s := &Service{
		api:             api,
		store:           store,
		notifier:        notifier,
		logger:          log.Logger,
		graceDelay:      DefaultGraceDelay,
		resolveAttempts: 1,
		initialBackoff:  DefaultGraceDelay,
		maxBackoff:      DefaultMaxBackoff,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Login submits the credentials and works out whether the account is linked
// or a challenge is pending. A login call that fails or times out is not fatal:
// the outcome is decided by the challenge and session checks that follow it.
func (s *Service) Login(ctx context.Context, username, password string) (*Result, error) {
	return s.login(ctx, username, password, nil)
}

func (s *Service) login(ctx context.Context, username, password string, onStage func(Stage)) (*Result, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, errors.Wrap(apperrors.ErrInvalidRequest, "[Login] username and password are required")
	}
	stage := func(st Stage) {
		if onStage != nil {
			onStage(st)
		}
	}

	stage(StageLoggingIn)
	resp, loginErr := s.api.Login(ctx, username, password)
	if loginErr != nil {
		if errors.Is(loginErr, apperrors.ErrNotAuthenticated) {
			s.notifyError("Not signed in", "Sign in to the CMS before linking Instagram.")
			return nil, loginErr
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.logger.Warn().Err(loginErr).Str("username", username).Msg("Instagram login call did not complete, checking for a challenge")
	}

	if loginErr == nil && resp != nil && resp.Session != nil && !resp.NeedsChallenge() {
		if err := s.store.Store(resp.Session); err != nil {
			return nil, errors.Wrap(err, "[Login] storing session")
		}
		s.notifySuccess(resp.Session)
		return &Result{Session: s.store.Current()}, nil
	}

	stage(StageCheckingChallenge)
	if err := sleep(ctx, s.graceDelay); err != nil {
		return nil, err
	}

	result, err := s.resolve(ctx, username)
	if err != nil {
		return nil, err
	}
	if result != nil {
		return result, nil
	}

	if resp.NeedsChallenge() {
		return &Result{NeedsChallenge: true, ChallengeInfo: resp.Challenge}, nil
	}

	msg := loginFallbackMessage
	if loginErr != nil {
		if apiErr, ok := instagram.IsAPIError(loginErr); ok && apiErr.Message != "" {
			msg = apiErr.Message
		}
	}
	s.notifyError("Instagram login failed", msg)
	return nil, &UserError{Message: msg, Err: loginErr, kind: apperrors.ErrLoginUnresolved}
}

// resolve checks for a pending challenge, then for a linked session, retrying
// with backoff when configured. A nil result with nil error means neither appeared.
func (s *Service) resolve(ctx context.Context, username string) (*Result, error) {
	backoff := s.initialBackoff
	var statusErr error

	for attempt := 0; attempt < s.resolveAttempts; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, backoff); err != nil {
				return nil, err
			}
			backoff = min(backoff*2, s.maxBackoff)
		}

		info, err := s.api.ChallengeStatus(ctx, username)
		switch {
		case err == nil && info.Active:
			return &Result{NeedsChallenge: true, ChallengeInfo: info}, nil
		case err != nil:
			if errors.Is(err, apperrors.ErrNotAuthenticated) || ctx.Err() != nil {
				return nil, err
			}
			statusErr = err
			s.logger.Warn().Err(err).Int("attempt", attempt+1).Msg("Challenge status check failed")
			continue
		}
		statusErr = nil

		session, err := s.api.GetSession(ctx)
		switch {
		case err == nil && !strings.EqualFold(session.Username, username):
			// a session left over from another account does not link this one
			s.logger.Debug().Str("username", username).Str("session_username", session.Username).Msg("Backend session belongs to another account")
		case err == nil:
			if err := s.store.Store(session); err != nil {
				return nil, errors.Wrap(err, "[Login] storing session")
			}
			s.notifySuccess(session)
			return &Result{Session: s.store.Current()}, nil
		case errors.Is(err, apperrors.ErrSessionNotFound):
		default:
			s.logger.Warn().Err(err).Int("attempt", attempt+1).Msg("Session lookup after login failed")
		}
	}

	if statusErr != nil {
		msg := instagram.ErrorMessage(statusErr, "Could not check for a verification challenge.")
		s.notifyError("Challenge check failed", msg)
		return nil, errors.Wrap(statusErr, "[Login] challenge status")
	}
	return nil, nil
}

// CheckChallenge queries the challenge status once. Failures are shown to the user.
func (s *Service) CheckChallenge(ctx context.Context, username string) (*sessions.ChallengeInfo, error) {
	info, err := s.api.ChallengeStatus(ctx, username)
	if err != nil {
		if ctx.Err() == nil {
			s.notifyError("Challenge check failed", instagram.ErrorMessage(err, "Could not check the challenge status."))
		}
		return nil, errors.Wrap(err, "[CheckChallenge]")
	}
	return info, nil
}

// SubmitChallenge sends the verification code. On success the session is stored;
// on failure the most specific backend message is shown and returned.
func (s *Service) SubmitChallenge(ctx context.Context, username, code string) (*sessions.Session, error) {
	session, err := s.api.SubmitChallenge(ctx, username, code)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		msg := instagram.ErrorMessage(err, submitFallbackMessage)
		s.notifyError("Verification failed", msg)

		var kind error
		if _, ok := instagram.IsAPIError(err); ok && !errors.Is(err, apperrors.ErrNotAuthenticated) {
			kind = apperrors.ErrChallengeRejected
		}
		return nil, &UserError{Message: msg, Err: err, kind: kind}
	}

	if err := s.store.Store(session); err != nil {
		s.notifyError("Instagram session not saved", err.Error())
		return nil, errors.Wrap(err, "[SubmitChallenge] storing session")
	}
	s.notifySuccess(session)
	return s.store.Current(), nil
}

func (s *Service) notifySuccess(session *sessions.Session) {
	s.notifier.Notify(notifications.Notification{
		Level:   notifications.LevelSuccess,
		Title:   "Instagram connected",
		Message: "Logged in as @" + session.Username,
	})
}

func (s *Service) notifyError(title, message string) {
	s.notifier.Notify(notifications.Notification{
		Level:   notifications.LevelError,
		Title:   title,
		Message: message,
	})
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
