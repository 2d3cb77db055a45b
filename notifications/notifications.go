package notifications

import (
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is a short user-facing message, shown as a toast by the UI.
type Notification struct {
	Level   Level
	Title   string
	Message string
}

// Notifier delivers notifications to the user.
type Notifier interface {
	Notify(n Notification)
}

// LogNotifier writes notifications to a zerolog logger.
type LogNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(n Notification) {
	var ev *zerolog.Event
	switch n.Level {
	case LevelError:
		ev = l.logger.Error()
	default:
		ev = l.logger.Info()
	}
	ev.Str("notification_level", string(n.Level)).Str("title", n.Title).Msg(n.Message)
}

// WriterNotifier prints notifications as single lines, e.g. to a terminal.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

func (wn *WriterNotifier) Notify(n Notification) {
	wn.mu.Lock()
	defer wn.mu.Unlock()
	if n.Title == "" {
		fmt.Fprintf(wn.w, "[%s] %s\n", n.Level, n.Message)
		return
	}
	fmt.Fprintf(wn.w, "[%s] %s: %s\n", n.Level, n.Title, n.Message)
}

// Recorder keeps every notification in memory.
type Recorder struct {
	mu   sync.Mutex
	sent []Notification
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

// Sent returns a copy of the recorded notifications.
func (r *Recorder) Sent() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.sent...)
}

// Errors returns only the error-level notifications.
func (r *Recorder) Errors() []Notification {
	var errs []Notification
	for _, n := range r.Sent() {
		if n.Level == LevelError {
			errs = append(errs, n)
		}
	}
	return errs
}

type multi []Notifier

// Multi fans a notification out to every notifier.
func Multi(notifiers ...Notifier) Notifier {
	return multi(notifiers)
}

func (m multi) Notify(n Notification) {
	for _, notifier := range m {
		if notifier != nil {
			notifier.Notify(n)
		}
	}
}
