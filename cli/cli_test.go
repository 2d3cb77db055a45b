package cli_test

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-insta-auth/cli"
	"github.com/jrsteele09/go-insta-auth/instagram/backendfake"
	"github.com/jrsteele09/go-insta-auth/internal/errors"
	"github.com/jrsteele09/go-insta-auth/storage/badger"
	"github.com/stretchr/testify/require"
)

const testToken = "9944b09199c62bcf9418ad846dd0e4bbdfc6ee4b"

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type run struct {
	out    *syncBuffer
	errOut *syncBuffer
	err    error
}

func setupEnv(t *testing.T, backend *backendfake.Backend, token string) {
	t.Helper()
	t.Setenv("IGAUTH_API_BASE_URL", backend.URL())
	t.Setenv("IGAUTH_CMS_TOKEN", token)
	t.Setenv("IGAUTH_LOGIN_GRACE_DELAY", "10ms")
	t.Setenv("IGAUTH_POLL_INTERVAL", "1h")
	t.Setenv("IGAUTH_CACHE_KEY", "")
	t.Setenv("IGAUTH_CACHE_PATH", t.TempDir())
}

func newBackend(t *testing.T) *backendfake.Backend {
	t.Helper()
	backend := backendfake.New(testToken)
	t.Cleanup(backend.Close)
	return backend
}

func execute(t *testing.T, stdin string, args ...string) run {
	t.Helper()
	r := run{out: &syncBuffer{}, errOut: &syncBuffer{}}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	r.err = cli.Execute(ctx, args,
		cli.WithIO(strings.NewReader(stdin), r.out, r.errOut),
		cli.WithPasswordReader(func(string) (string, error) { return "pw1", nil }),
	)
	return r
}

func executeInMemory(t *testing.T, stdin string, args ...string) run {
	t.Helper()
	r := run{out: &syncBuffer{}, errOut: &syncBuffer{}}
	r.err = cli.Execute(context.Background(), args,
		cli.WithIO(strings.NewReader(stdin), r.out, r.errOut),
		cli.WithStorageOptions(badger.WithInMemory()),
		cli.WithPasswordReader(func(string) (string, error) { return "pw1", nil }),
	)
	return r
}

func TestLogin_Direct(t *testing.T) {
	backend := newBackend(t)
	setupEnv(t, backend, testToken)

	r := executeInMemory(t, "", "login", "alice")
	require.NoError(t, r.err)
	require.Contains(t, r.out.String(), "Instagram account linked. Continue at /dashboard")
	require.Contains(t, r.out.String(), "Username:   @alice")
	require.Contains(t, r.errOut.String(), "[success] Instagram connected: Logged in as @alice")
}

func TestLogin_PromptsForUsername(t *testing.T) {
	backend := newBackend(t)
	setupEnv(t, backend, testToken)

	r := executeInMemory(t, "alice\n", "login")
	require.NoError(t, r.err)
	require.Contains(t, r.errOut.String(), "Instagram username: ")
	require.Contains(t, r.out.String(), "@alice")
}

func TestLogin_PasswordKeepsSurroundingSpaces(t *testing.T) {
	backend := newBackend(t)
	setupEnv(t, backend, testToken)

	out, errOut := &syncBuffer{}, &syncBuffer{}
	err := cli.Execute(context.Background(), []string{"login"},
		cli.WithIO(strings.NewReader(" alice \n  pass word \r\n"), out, errOut),
		cli.WithStorageOptions(badger.WithInMemory()),
	)
	require.NoError(t, err)
	require.Contains(t, errOut.String(), "Instagram password: ")
	require.Equal(t, "  pass word ", backend.LastPassword())
	require.Contains(t, out.String(), "Username:   @alice")
}

func TestLogin_ChallengeWithRetry(t *testing.T) {
	backend := newBackend(t)
	setupEnv(t, backend, testToken)
	backend.SetLoginMode(backendfake.LoginRaisesChallenge, "")

	r := executeInMemory(t, "000000\n123456\n", "login", "alice")
	require.NoError(t, r.err)
	require.Contains(t, r.out.String(), "Challenge pending for @alice (method 1)")
	require.Contains(t, r.errOut.String(), "[error] Verification failed: Invalid code")
	require.Contains(t, r.out.String(), "Instagram account linked")
	require.NotNil(t, backend.Session())
}

func TestLogin_Cancel(t *testing.T) {
	backend := newBackend(t)
	setupEnv(t, backend, testToken)
	backend.SetLoginMode(backendfake.LoginRaisesChallenge, "")

	r := executeInMemory(t, "cancel\n", "login", "alice")
	require.NoError(t, r.err)
	require.Contains(t, r.out.String(), "Login cancelled")
	require.Nil(t, backend.Session())
}

func TestLogin_WithoutCMSToken(t *testing.T) {
	backend := newBackend(t)
	setupEnv(t, backend, "")

	r := executeInMemory(t, "", "login", "alice")
	require.ErrorIs(t, r.err, errors.ErrNotAuthenticated)
	require.Zero(t, backend.TotalRequests())
}

func TestLogin_RejectedPassword(t *testing.T) {
	backend := newBackend(t)
	setupEnv(t, backend, testToken)
	backend.SetLoginMode(backendfake.LoginRejects, "The password you entered is incorrect.")

	r := executeInMemory(t, "", "login", "alice")
	require.ErrorIs(t, r.err, errors.ErrLoginUnresolved)
	require.Contains(t, r.errOut.String(), "Error: The password you entered is incorrect.")
}

func TestChallengeCommands(t *testing.T) {
	backend := newBackend(t)
	setupEnv(t, backend, testToken)
	backend.SetChallenge("alice", "1")

	r := executeInMemory(t, "", "challenge", "status", "alice")
	require.NoError(t, r.err)
	require.Contains(t, r.out.String(), "Enter the code sent to your email")

	r = executeInMemory(t, "", "--json", "challenge", "status", "alice")
	require.NoError(t, r.err)
	require.Contains(t, r.out.String(), `"has_active_challenge": true`)

	r = executeInMemory(t, "", "challenge", "submit", "alice", "123456")
	require.NoError(t, r.err)
	require.Contains(t, r.out.String(), "Username:   @alice")

	r = executeInMemory(t, "", "challenge", "status", "alice")
	require.NoError(t, r.err)
	require.Contains(t, r.out.String(), "No active challenge")
}

func TestSessionShowAndLogout(t *testing.T) {
	backend := newBackend(t)
	setupEnv(t, backend, testToken)

	r := execute(t, "", "session", "show")
	require.NoError(t, r.err)
	require.Contains(t, r.out.String(), "No Instagram account linked")

	backend.SetSession(backendfake.NewSession("alice"))
	r = execute(t, "", "--json", "session", "show")
	require.NoError(t, r.err)
	require.Contains(t, r.out.String(), `"linked": true`)
	require.Contains(t, r.out.String(), `"user_agent": "Instagram 269.0.0.18.75 Android"`)

	r = execute(t, "", "session", "show", "--offline")
	require.NoError(t, r.err)
	require.Contains(t, r.out.String(), "Username:   @alice")

	r = execute(t, "", "logout")
	require.NoError(t, r.err)
	require.Contains(t, r.out.String(), "Instagram account unlinked")
	require.Nil(t, backend.Session())

	r = execute(t, "", "session", "show", "--offline")
	require.NoError(t, r.err)
	require.Contains(t, r.out.String(), "No Instagram account linked")
}

func TestLogout_BackendFailureStillClearsLocalCopy(t *testing.T) {
	backend := newBackend(t)
	setupEnv(t, backend, testToken)
	backend.SetSession(backendfake.NewSession("alice"))

	require.NoError(t, execute(t, "", "session", "show").err)

	backend.FailDelete(500)
	r := execute(t, "", "logout")
	require.Error(t, r.err)

	r = execute(t, "", "session", "show", "--offline")
	require.NoError(t, r.err)
	require.Contains(t, r.out.String(), "No Instagram account linked")
}

func TestExpiredEnvTokenFallsBackToStoredToken(t *testing.T) {
	backend := newBackend(t)
	expired, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.RegisteredClaims{
		Subject:   "editor@tourism.example",
		ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(-time.Hour)),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	setupEnv(t, backend, expired)

	r := execute(t, "", "cms-token", "set", testToken)
	require.NoError(t, r.err)

	backend.SetSession(backendfake.NewSession("alice"))
	r = execute(t, "", "session", "show")
	require.NoError(t, r.err)
	require.Contains(t, r.out.String(), "Username:   @alice")
}

func TestCMSTokenCommands(t *testing.T) {
	backend := newBackend(t)
	setupEnv(t, backend, "")

	r := execute(t, "", "cms-token", "status")
	require.NoError(t, r.err)
	require.Contains(t, r.out.String(), "No CMS token stored")

	expired, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.RegisteredClaims{
		Subject:   "editor@tourism.example",
		ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(-time.Hour)),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	r = execute(t, "", "cms-token", "set", expired)
	require.ErrorIs(t, r.err, errors.ErrNotAuthenticated)

	r = execute(t, "", "cms-token", "set", testToken)
	require.NoError(t, r.err)
	require.Contains(t, r.out.String(), "CMS token stored")

	backend.SetSession(backendfake.NewSession("alice"))
	r = execute(t, "", "session", "show")
	require.NoError(t, r.err)
	require.Contains(t, r.out.String(), "@alice")

	r = execute(t, "", "cms-token", "clear")
	require.NoError(t, r.err)

	requests := backend.TotalRequests()
	r = execute(t, "", "login", "alice")
	require.ErrorIs(t, r.err, errors.ErrNotAuthenticated)
	require.Equal(t, requests, backend.TotalRequests())
}
