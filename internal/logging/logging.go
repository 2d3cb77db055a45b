// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ParseLevel normalizes a log level string. Unknown or empty values map to info.
func ParseLevel(s string) zerolog.Level {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "warning":
		s = "warn"
	case "err":
		s = "error"
	}
	level, err := zerolog.ParseLevel(s)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// Setup installs the global logger. Console output is used unless jsonOutput
// is set. w defaults to stderr.
func Setup(level string, jsonOutput bool, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	if !jsonOutput {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	logger := zerolog.New(w).Level(ParseLevel(level)).With().Timestamp().Logger()
	log.Logger = logger
	return logger
}
