package backendfake

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/go-insta-auth/sessions"
)

// LoginMode selects how the fake answers POST /instagram/login/.
type LoginMode int

const (
	// LoginReturnsSession answers immediately with a session.
	LoginReturnsSession LoginMode = iota
	// LoginRaisesChallenge registers a challenge and answers with a challenge indicator.
	LoginRaisesChallenge
	// LoginHangsThenChallenge registers a challenge and never answers before the client gives up.
	LoginHangsThenChallenge
	// LoginRejects answers 400 with {"detail": LoginError}.
	LoginRejects
)

// Backend is an httptest server mimicking the CMS backend's Instagram endpoints.
type Backend struct {
	Server *httptest.Server

	mu          sync.Mutex
	token       string
	loginMode   LoginMode
	loginError  string
	validCode   string
	session     *sessions.Session
	challenge   map[string]string // username -> choice
	statusErr   int
	deleteErr   int
	hang        chan struct{}
	requests    map[string]int
	lastHeaders http.Header
	password    string
}

// New starts a fake backend that accepts "Token <token>".
func New(token string) *Backend {
	b := &Backend{
		token:     token,
		validCode: "123456",
		challenge: make(map[string]string),
		requests:  make(map[string]int),
		hang:      make(chan struct{}),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /instagram/login/", b.login)
	mux.HandleFunc("GET /instagram/challenge-status/{username}/", b.challengeStatus)
	mux.HandleFunc("POST /instagram/submit-challenge/", b.submitChallenge)
	mux.HandleFunc("GET /instagram/session/", b.getSession)
	mux.HandleFunc("DELETE /instagram/session/", b.deleteSession)
	b.Server = httptest.NewServer(b.authorized(mux))
	return b
}

// URL is the base URL to hand to instagram.NewClient.
func (b *Backend) URL() string {
	return b.Server.URL
}

// Close releases hanging handlers and stops the server.
func (b *Backend) Close() {
	b.mu.Lock()
	select {
	case <-b.hang:
	default:
		close(b.hang)
	}
	b.mu.Unlock()
	b.Server.Close()
}

func (b *Backend) SetLoginMode(mode LoginMode, loginError string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.loginMode = mode
	b.loginError = loginError
}

func (b *Backend) SetValidCode(code string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.validCode = code
}

func (b *Backend) SetSession(s *sessions.Session) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.session = s.Clone()
}

func (b *Backend) Session() *sessions.Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.session.Clone()
}

// LastPassword returns the password sent with the most recent login call.
func (b *Backend) LastPassword() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.password
}

func (b *Backend) SetChallenge(username, choice string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.challenge[username] = choice
}

// ResolveChallenge clears a pending challenge as if approved elsewhere and links a session.
func (b *Backend) ResolveChallenge(username string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.challenge, username)
	b.session = NewSession(username)
}

// FailStatus makes challenge-status answer with the given HTTP status (0 restores).
func (b *Backend) FailStatus(status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statusErr = status
}

// FailDelete makes session deletion answer with the given HTTP status (0 restores).
func (b *Backend) FailDelete(status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleteErr = status
}

// Requests returns how many requests hit the given "METHOD /path" key, e.g.
// "GET /instagram/challenge-status/".
func (b *Backend) Requests(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requests[key]
}

// TotalRequests counts every request that reached the server.
func (b *Backend) TotalRequests() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	total := 0
	for _, n := range b.requests {
		total += n
	}
	return total
}

// LastHeaders returns the headers of the most recent request.
func (b *Backend) LastHeaders() http.Header {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastHeaders.Clone()
}

// NewSession builds a session record like the backend stores.
func NewSession(username string) *sessions.Session {
	now := time.Now().UTC().Truncate(time.Second)
	return &sessions.Session{
		ID:          42,
		Username:    username,
		DisplayName: strings.ToUpper(username[:1]) + username[1:],
		Payload:     json.RawMessage(`{"user_agent":"Instagram 269.0.0.18.75 Android","locale":"en_US","cookies":{"sessionid":"x"}}`),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (b *Backend) authorized(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		if strings.HasPrefix(r.URL.Path, "/instagram/challenge-status/") {
			key = r.Method + " /instagram/challenge-status/"
		}
		b.mu.Lock()
		b.requests[key]++
		b.lastHeaders = r.Header.Clone()
		b.mu.Unlock()

		if r.Header.Get("Authorization") != "Token "+b.token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Authentication credentials were not provided."})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}

	b.mu.Lock()
	b.password = req.Password
	mode, loginError := b.loginMode, b.loginError
	switch mode {
	case LoginReturnsSession:
		b.session = NewSession(req.Username)
	case LoginRaisesChallenge, LoginHangsThenChallenge:
		b.challenge[req.Username] = "1"
	}
	session := b.session.Clone()
	hang := b.hang
	b.mu.Unlock()

	switch mode {
	case LoginReturnsSession:
		writeJSON(w, http.StatusOK, session)
	case LoginRaisesChallenge:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"has_active_challenge": true,
			"challenge_info":       map[string]interface{}{"username": req.Username, "choice": 1},
			"message":              "Challenge required",
		})
	case LoginHangsThenChallenge:
		select {
		case <-r.Context().Done():
		case <-hang:
		}
	case LoginRejects:
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": loginError})
	}
}

func (b *Backend) challengeStatus(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")

	b.mu.Lock()
	statusErr := b.statusErr
	choice, active := b.challenge[username]
	b.mu.Unlock()

	if statusErr != 0 {
		writeJSON(w, statusErr, map[string]string{"message": "challenge lookup failed"})
		return
	}
	if !active {
		writeJSON(w, http.StatusOK, map[string]interface{}{"has_active_challenge": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"has_active_challenge": true,
		"challenge_info":       map[string]interface{}{"username": username, "choice": json.RawMessage(choice)},
		"message":              "Enter the code sent to your email",
	})
}

func (b *Backend) submitChallenge(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username      string `json:"username"`
		ChallengeCode string `json:"challenge_code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.challenge[req.Username]; !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "No active challenge"})
		return
	}
	if req.ChallengeCode != b.validCode {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Invalid code"})
		return
	}
	delete(b.challenge, req.Username)
	b.session = NewSession(req.Username)
	writeJSON(w, http.StatusOK, b.session)
}

func (b *Backend) getSession(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	session := b.session.Clone()
	b.mu.Unlock()

	if session == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (b *Backend) deleteSession(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.deleteErr != 0 {
		writeJSON(w, b.deleteErr, map[string]string{"detail": "delete failed"})
		return
	}
	b.session = nil
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
