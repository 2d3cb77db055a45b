package cli

import (
	"bufio"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jrsteele09/go-insta-auth/cmsauth"
	"github.com/jrsteele09/go-insta-auth/instagram"
	"github.com/jrsteele09/go-insta-auth/internal/config"
	"github.com/jrsteele09/go-insta-auth/internal/errors"
	"github.com/jrsteele09/go-insta-auth/internal/logging"
	"github.com/jrsteele09/go-insta-auth/loginflow"
	"github.com/jrsteele09/go-insta-auth/notifications"
	"github.com/jrsteele09/go-insta-auth/sessions"
	"github.com/jrsteele09/go-insta-auth/storage/badger"
	"github.com/rs/zerolog"
)

// App holds the dependencies shared by every command. They are built once the
// global flags are parsed.
type App struct {
	in     *bufio.Reader
	stdin  io.Reader
	out    io.Writer
	errOut io.Writer

	configFile string
	logLevel   string
	jsonOut    bool

	storageOptions []badger.Option
	readPassword   func(label string) (string, error)

	cfg      config.Config
	logger   zerolog.Logger
	db       *badger.DB
	tokens   *badger.TokenStore
	client   *instagram.Client
	sessions *sessions.Synchronizer
	notifier notifications.Notifier
	service  *loginflow.Service
}

// AppOption defines a function type to modify the App instance.
type AppOption func(*App)

// WithIO replaces stdin, stdout and stderr.
func WithIO(in io.Reader, out, errOut io.Writer) AppOption {
	return func(a *App) {
		a.stdin, a.out, a.errOut = in, out, errOut
	}
}

// WithStorageOptions passes options through to badger.Open.
func WithStorageOptions(options ...badger.Option) AppOption {
	return func(a *App) {
		a.storageOptions = append(a.storageOptions, options...)
	}
}

// WithPasswordReader replaces the terminal password prompt.
func WithPasswordReader(fn func(label string) (string, error)) AppOption {
	return func(a *App) {
		a.readPassword = fn
	}
}

func newApp(options ...AppOption) *App {
	a := &App{
		stdin:  os.Stdin,
		out:    os.Stdout,
		errOut: os.Stderr,
	}
	for _, opt := range options {
		opt(a)
	}
	a.in = bufio.NewReader(a.stdin)
	if a.readPassword == nil {
		a.readPassword = a.promptPassword
	}
	return a
}

// init loads configuration and wires storage, the backend client, the session
// synchronizer and the login service.
func (a *App) init() error {
	cfg, err := config.New(a.configFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := a.logLevel
	if level == "" {
		level = cfg.GetLogLevel()
	}
	a.logger = logging.Setup(level, a.jsonOut || cfg.GetLogJSON(), a.errOut)

	db, err := badger.Open(cfg, append([]badger.Option{badger.WithLogger(a.logger)}, a.storageOptions...)...)
	if err != nil {
		return errors.Wrapf(err, "opening local storage")
	}
	a.db = db
	a.tokens = badger.NewTokenStore(db)

	// each source is checked on its own so an expired env token falls through
	var sources []cmsauth.TokenSource
	if t := cfg.GetCMSToken(); t != "" {
		sources = append(sources, cmsauth.Checked(cmsauth.NewMemoryStore(t), time.Now))
	}
	sources = append(sources, cmsauth.Checked(a.tokens, time.Now))
	tokens := cmsauth.Chain(sources...)

	a.client = instagram.NewClient(cfg.GetAPIBaseURL(), tokens,
		instagram.WithTimeout(cfg.GetRequestTimeout()),
		instagram.WithLogger(a.logger),
		instagram.WithUserAgent(cfg.GetAppName()),
	)

	a.sessions, err = sessions.NewSynchronizer(badger.NewSessionCache(db), a.client, sessions.WithLogger(a.logger))
	if err != nil {
		return err
	}

	a.notifier = notifications.Multi(
		notifications.NewWriterNotifier(a.errOut),
		notifications.NewLogNotifier(a.logger),
	)
	if a.jsonOut {
		a.notifier = notifications.NewLogNotifier(a.logger)
	}

	a.service, err = loginflow.NewService(a.client, a.sessions, a.notifier,
		loginflow.WithGraceDelay(cfg.GetLoginGraceDelay()),
		loginflow.WithResolveBackoff(cfg.GetResolveAttempts(), cfg.GetLoginGraceDelay(), cfg.GetResolveMaxBackoff()),
		loginflow.WithServiceLogger(a.logger),
	)
	return err
}

func (a *App) close() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

// readLine reads one line from stdin with surrounding whitespace removed.
func (a *App) readLine(label string) (string, error) {
	line, err := a.readRawLine(label)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// readRawLine reads one line from stdin and strips only the line terminator.
func (a *App) readRawLine(label string) (string, error) {
	if label != "" {
		a.printf(a.errOut, "%s: ", label)
	}
	line, err := a.in.ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
