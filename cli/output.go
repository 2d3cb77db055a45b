package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jrsteele09/go-insta-auth/instagram"
	"github.com/jrsteele09/go-insta-auth/internal/utils"
	"github.com/jrsteele09/go-insta-auth/sessions"
	"golang.org/x/term"
)

func (a *App) printf(w io.Writer, format string, args ...interface{}) {
	_, _ = fmt.Fprintf(w, format, args...)
}

func (a *App) printJSON(v interface{}) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *App) printError(err error) {
	a.printf(a.errOut, "Error: %s\n", instagram.ErrorMessage(err, err.Error()))
}

func (a *App) printSession(s *sessions.Session) error {
	if a.jsonOut {
		if s == nil {
			return a.printJSON(map[string]interface{}{"linked": false})
		}
		return a.printJSON(map[string]interface{}{
			"linked":   true,
			"session":  s,
			"metadata": s.Metadata(),
		})
	}

	if s == nil {
		a.printf(a.out, "No Instagram account linked\n")
		return nil
	}
	a.printf(a.out, "Username:   @%s\n", s.Username)
	if s.DisplayName != "" {
		a.printf(a.out, "Name:       %s\n", s.DisplayName)
	}
	a.printf(a.out, "Session ID: %d\n", s.ID)
	if !s.UpdatedAt.IsZero() {
		a.printf(a.out, "Updated:    %s\n", s.UpdatedAt.Format("2006-01-02 15:04:05 MST"))
	}
	md := s.Metadata()
	if md.UserAgent != "" {
		a.printf(a.out, "User agent: %s\n", md.UserAgent)
	}
	if md.Locale != "" {
		a.printf(a.out, "Locale:     %s\n", md.Locale)
	}
	if last := utils.Value(md.LastLogin); last > 0 {
		a.printf(a.out, "Last login: %s\n", time.Unix(int64(last), 0).UTC().Format("2006-01-02 15:04:05 MST"))
	}
	if md.Device != nil && md.Device.Model != "" {
		a.printf(a.out, "Device:     %s %s\n", md.Device.Manufacturer, md.Device.Model)
	}
	return nil
}

func (a *App) printChallenge(info *sessions.ChallengeInfo) error {
	if a.jsonOut {
		return a.printJSON(info)
	}
	if info == nil || !info.Active {
		a.printf(a.out, "No active challenge\n")
		return nil
	}
	a.printf(a.out, "Challenge pending for @%s", info.Username)
	if info.Choice != "" {
		a.printf(a.out, " (method %s)", info.Choice)
	}
	a.printf(a.out, "\n")
	if info.Message != "" {
		a.printf(a.out, "%s\n", info.Message)
	}
	return nil
}

// promptPassword reads without echo when stdin is a terminal and falls back
// to a plain line read for piped input.
func (a *App) promptPassword(label string) (string, error) {
	if f, ok := a.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		a.printf(a.errOut, "%s: ", label)
		b, err := term.ReadPassword(int(f.Fd()))
		a.printf(a.errOut, "\n")
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	return a.readRawLine(label)
}
