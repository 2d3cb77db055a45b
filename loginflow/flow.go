package loginflow

import (
	"context"
	"strings"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/go-insta-auth/internal/errors"
	"github.com/jrsteele09/go-insta-auth/sessions"
	"github.com/rs/zerolog"
)

const (
	// DefaultPollInterval is the auto-poll period while a challenge is pending.
	DefaultPollInterval = 5 * time.Second
	// DefaultReturnURL is where a resolved flow redirects when no return URL was given.
	DefaultReturnURL = "/dashboard"
)

// State is the flow's position in the login state machine.
type State int

const (
	StateCredentials State = iota
	StateChallenge
	StateResolved
)

func (s State) String() string {
	switch s {
	case StateCredentials:
		return "credentials"
	case StateChallenge:
		return "challenge"
	case StateResolved:
		return "resolved"
	}
	return "unknown"
}

// Stage is the advisory progress indicator used to refuse double submission.
type Stage int

const (
	StageIdle Stage = iota
	StageLoggingIn
	StageCheckingChallenge
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageLoggingIn:
		return "logging-in"
	case StageCheckingChallenge:
		return "checking-challenge"
	}
	return "unknown"
}

// Navigator performs the redirect once the flow resolves.
type Navigator interface {
	Redirect(url string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(url string)

func (f NavigatorFunc) Redirect(url string) { f(url) }

// Event describes the flow after a change, for UIs that render progress.
type Event struct {
	State     State
	Stage     Stage
	Challenge *sessions.ChallengeInfo
}

// Flow is the credentials → challenge → resolved state machine for one login
// view. It is not persisted: a new Flow always starts at StateCredentials.
type Flow struct {
	svc          *Service
	navigator    Navigator
	listener     func(Event)
	logger       zerolog.Logger
	returnURL    string
	pollInterval time.Duration

	mu         sync.Mutex
	state      State
	stage      Stage
	username   string
	challenge  *sessions.ChallengeInfo
	generation uint64 // bumped on every state change; results from older generations are dropped
	closed     bool

	baseCtx    context.Context
	baseCancel context.CancelFunc
	pollCancel context.CancelFunc
	pollDone   chan struct{}
}

// FlowOption defines a function type to modify the Flow instance.
type FlowOption func(*Flow)

// WithReturnURL sets the redirect target used on resolution.
func WithReturnURL(url string) FlowOption {
	return func(f *Flow) {
		if strings.TrimSpace(url) != "" {
			f.returnURL = url
		}
	}
}

// WithPollInterval sets the challenge auto-poll period.
func WithPollInterval(d time.Duration) FlowOption {
	return func(f *Flow) {
		if d > 0 {
			f.pollInterval = d
		}
	}
}

// WithNavigator sets the redirect handler.
func WithNavigator(n Navigator) FlowOption {
	return func(f *Flow) {
		f.navigator = n
	}
}

// WithListener registers a callback invoked after every state or challenge change.
// It is called without the flow lock held.
func WithListener(fn func(Event)) FlowOption {
	return func(f *Flow) {
		f.listener = fn
	}
}

// WithFlowLogger sets the logger.
func WithFlowLogger(logger zerolog.Logger) FlowOption {
	return func(f *Flow) {
		f.logger = logger
	}
}

// NewFlow creates a flow in StateCredentials.
func NewFlow(svc *Service, options ...FlowOption) (*Flow, error) {
	if svc == nil {
		return nil, apperrors.New("[NewFlow] service is required")
	}
	ctx, cancel := context.WithCancel(context.Background())
	f := &Flow{
		svc:          svc,
		navigator:    NavigatorFunc(func(string) {}),
		logger:       svc.logger,
		returnURL:    DefaultReturnURL,
		pollInterval: DefaultPollInterval,
		state:        StateCredentials,
		baseCtx:      ctx,
		baseCancel:   cancel,
	}
	for _, opt := range options {
		opt(f)
	}
	return f, nil
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Flow) Stage() Stage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stage
}

// Challenge returns the latest challenge information, or nil outside StateChallenge.
func (f *Flow) Challenge() *sessions.ChallengeInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.challenge == nil {
		return nil
	}
	c := *f.challenge
	return &c
}

func (f *Flow) Username() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.username
}

func (f *Flow) ReturnURL() string {
	return f.returnURL
}

// SubmitCredentials runs the login. On success the flow resolves and redirects;
// when a challenge is pending it moves to StateChallenge and starts polling.
func (f *Flow) SubmitCredentials(ctx context.Context, username, password string) (*Result, error) {
	f.mu.Lock()
	if err := f.checkLocked(StateCredentials); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	if f.stage != StageIdle {
		f.mu.Unlock()
		return nil, apperrors.ErrSubmissionInProgress
	}
	f.stage = StageLoggingIn
	gen := f.generation
	f.mu.Unlock()
	f.emit()

	reqCtx, cancel := f.requestContext(ctx)
	defer cancel()

	result, err := f.svc.login(reqCtx, username, password, func(st Stage) { f.setStage(gen, st) })

	f.mu.Lock()
	if gen == f.generation {
		f.stage = StageIdle
	}
	if f.closed {
		f.mu.Unlock()
		return nil, apperrors.ErrFlowClosed
	}
	if gen != f.generation {
		f.mu.Unlock()
		return nil, apperrors.ErrInvalidState
	}
	if err != nil {
		f.mu.Unlock()
		f.emit()
		return nil, err
	}

	if result.NeedsChallenge {
		f.state = StateChallenge
		f.username = strings.TrimSpace(username)
		if result.ChallengeInfo != nil && result.ChallengeInfo.Username != "" {
			f.username = result.ChallengeInfo.Username
		}
		f.challenge = result.ChallengeInfo
		f.generation++
		f.startPollerLocked()
		f.mu.Unlock()
		f.emit()
		return result, nil
	}

	done, url := f.resolveLocked()
	f.mu.Unlock()
	f.finish(done, url)
	return result, nil
}

// SubmitCode sends the verification code. A rejected code keeps the flow in
// StateChallenge so the user can retry.
func (f *Flow) SubmitCode(ctx context.Context, code string) (*sessions.Session, error) {
	f.mu.Lock()
	if err := f.checkLocked(StateChallenge); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	username, gen := f.username, f.generation
	f.mu.Unlock()

	reqCtx, cancel := f.requestContext(ctx)
	defer cancel()

	session, err := f.svc.SubmitChallenge(reqCtx, username, code)

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, apperrors.ErrFlowClosed
	}
	if gen != f.generation {
		f.mu.Unlock()
		return nil, apperrors.ErrInvalidState
	}
	if err != nil {
		f.mu.Unlock()
		return nil, err
	}
	done, url := f.resolveLocked()
	f.mu.Unlock()
	f.finish(done, url)
	return session, nil
}

// CheckStatus queries the challenge status on demand.
func (f *Flow) CheckStatus(ctx context.Context) (*sessions.ChallengeInfo, error) {
	f.mu.Lock()
	if err := f.checkLocked(StateChallenge); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	username, gen := f.username, f.generation
	f.mu.Unlock()

	reqCtx, cancel := f.requestContext(ctx)
	defer cancel()

	info, err := f.svc.CheckChallenge(reqCtx, username)
	if err != nil {
		return nil, err
	}
	f.applyStatus(reqCtx, gen, username, info, false)
	return info, nil
}

// Cancel abandons the challenge and returns to StateCredentials.
func (f *Flow) Cancel() error {
	f.mu.Lock()
	if err := f.checkLocked(StateChallenge); err != nil {
		f.mu.Unlock()
		return err
	}
	f.state = StateCredentials
	f.stage = StageIdle
	f.username = ""
	f.challenge = nil
	f.generation++
	done := f.stopPollerLocked()
	f.mu.Unlock()

	wait(done)
	f.emit()
	return nil
}

// Close tears the flow down: polling stops, in-flight requests are cancelled
// and late results are dropped. Close is idempotent.
func (f *Flow) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	f.generation++
	done := f.stopPollerLocked()
	f.baseCancel()
	f.mu.Unlock()

	wait(done)
}

func (f *Flow) checkLocked(want State) error {
	if f.closed {
		return apperrors.ErrFlowClosed
	}
	if f.state != want {
		return apperrors.Wrapf(apperrors.ErrInvalidState, "flow is in %s, want %s", f.state, want)
	}
	return nil
}

func (f *Flow) setStage(gen uint64, st Stage) {
	f.mu.Lock()
	if gen != f.generation {
		f.mu.Unlock()
		return
	}
	f.stage = st
	f.mu.Unlock()
	f.emit()
}

// requestContext derives a context that is also cancelled when the flow closes.
func (f *Flow) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	reqCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(f.baseCtx, cancel)
	return reqCtx, func() {
		stop()
		cancel()
	}
}

// resolveLocked moves to StateResolved. The caller must release the lock and
// then call finish with the returned values.
func (f *Flow) resolveLocked() (chan struct{}, string) {
	f.state = StateResolved
	f.stage = StageIdle
	f.challenge = nil
	f.generation++
	return f.stopPollerLocked(), f.returnURL
}

func (f *Flow) finish(done chan struct{}, url string) {
	wait(done)
	f.emit()
	f.navigator.Redirect(url)
}

func (f *Flow) emit() {
	if f.listener == nil {
		return
	}
	f.mu.Lock()
	ev := Event{State: f.state, Stage: f.stage}
	if f.challenge != nil {
		c := *f.challenge
		ev.Challenge = &c
	}
	f.mu.Unlock()
	f.listener(ev)
}

func wait(done chan struct{}) {
	if done != nil {
		<-done
	}
}
