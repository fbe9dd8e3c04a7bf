// Package logger provides structured logging for the face server.
// Every state change published by the face store should be traceable through this.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"
)

const (
	// EnvLogLevel selects the minimum level (trace, debug, info, warn, error).
	EnvLogLevel = "PARABOT_LOG_LEVEL"
	// EnvJSONLog switches the output to JSON lines when set to "1".
	EnvJSONLog = "PARABOT_JSON_LOG"
)

// Options configures a Logger.
type Options struct {
	Name   string
	Level  string
	JSON   bool
	Output io.Writer
}

// Logger provides structured logging with context.
type Logger struct {
	hl hclog.Logger
}

// NewLogger creates a logger configured from the environment.
func NewLogger() *Logger {
	return New(Options{
		Name:  "parabot",
		Level: LevelFromEnv(),
		JSON:  os.Getenv(EnvJSONLog) == "1",
	})
}

// New creates a logger with explicit options.
func New(opts Options) *Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	level := opts.Level
	if level == "" {
		level = "info"
	}

	hl := hclog.New(&hclog.LoggerOptions{
		Name:       opts.Name,
		Level:      hclog.LevelFromString(level),
		JSONFormat: opts.JSON,
		Output:     out,
		TimeFormat: "2006-01-02T15:04:05.000Z",
		TimeFn: func() time.Time {
			return time.Now().UTC()
		},
	})
	return &Logger{hl: hl}
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *Logger {
	return &Logger{hl: hclog.NewNullLogger()}
}

// LevelFromEnv returns the configured log level, defaulting to info.
func LevelFromEnv() string {
	level := os.Getenv(EnvLogLevel)
	if level == "" {
		level = "info"
	}
	return level
}

// Named returns a sub-logger scoped to a component.
func (l *Logger) Named(name string) *Logger {
	return &Logger{hl: l.hl.Named(name)}
}

// With returns a logger that always attaches the given key/value pairs.
func (l *Logger) With(args ...interface{}) *Logger {
	return &Logger{hl: l.hl.With(args...)}
}

// Debug logs diagnostic messages.
func (l *Logger) Debug(msg string, args ...interface{}) {
	l.hl.Debug(msg, args...)
}

// Info logs informational messages.
func (l *Logger) Info(msg string, args ...interface{}) {
	l.hl.Info(msg, args...)
}

// Warn logs warning messages.
func (l *Logger) Warn(msg string, args ...interface{}) {
	l.hl.Warn(msg, args...)
}

// Error logs error messages.
func (l *Logger) Error(msg string, args ...interface{}) {
	l.hl.Error(msg, args...)
}

// Event logs a face event with the actor that caused it.
func (l *Logger) Event(eventType string, actorID string, details string) {
	l.hl.Debug("event", "type", eventType, "actor", actorID, "details", details)
}
