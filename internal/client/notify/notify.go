// Package notify delivers transient user feedback (the "toast" of the UI layer).
package notify

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/fatih/color"
)

// Severity of a notification
type Severity string

const (
	Success Severity = "success"
	Warning Severity = "warning"
	Error   Severity = "error"
	Info    Severity = "info"
)

//go:generate moq -out sink_mock.go . Sink

// Sink presents a message to the user. Implementations must not block for long.
type Sink interface {
	Notify(severity Severity, message string)
}

// Console prints coloured notifications to a writer (normally the CLI IO)
type Console struct {
	w      io.Writer
	styles map[Severity]*color.Color
	mu     sync.Mutex
}

// NewConsole creates a console sink. Colours are disabled when noColor is set
// or when fatih/color detects a non-terminal output.
func NewConsole(w io.Writer, noColor bool) *Console {
	styles := map[Severity]*color.Color{
		Success: color.New(color.FgGreen, color.Bold),
		Warning: color.New(color.FgYellow),
		Error:   color.New(color.FgRed, color.Bold),
		Info:    color.New(color.FgCyan),
	}
	if noColor {
		for _, c := range styles {
			c.DisableColor()
		}
	}
	return &Console{w: w, styles: styles}
}

var prefixes = map[Severity]string{
	Success: "✔",
	Warning: "!",
	Error:   "✖",
	Info:    "i",
}

func (c *Console) Notify(severity Severity, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	style, ok := c.styles[severity]
	if !ok {
		style = c.styles[Info]
	}
	style.Fprintf(c.w, "%s %s\n", prefixes[severity], message) //nolint:errcheck
}

// Logger writes notifications to a structured log, used in watch mode
type Logger struct {
	logger *slog.Logger
}

// NewLogger creates a slog-backed sink
func NewLogger(logger *slog.Logger) *Logger {
	return &Logger{logger: logger}
}

func (l *Logger) Notify(severity Severity, message string) {
	level := slog.LevelInfo
	switch severity {
	case Warning:
		level = slog.LevelWarn
	case Error:
		level = slog.LevelError
	}
	l.logger.Log(context.Background(), level, message, "severity", string(severity))
}

// Multi fans a notification out to several sinks
type Multi []Sink

func (m Multi) Notify(severity Severity, message string) {
	for _, s := range m {
		s.Notify(severity, message)
	}
}

// Discard drops every notification
type Discard struct{}

func (Discard) Notify(Severity, string) {}
