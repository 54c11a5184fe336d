// Package logging holds the structured logger shared by the engine packages.
package logging

import (
	"context"
	"log/slog"
	"os"
)

type ctxKey string

const ctxKeySession ctxKey = "session_id"

// basic global logger, JSON to stderr so that child processes keep stdout free.
var logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))

// Logger returns the package logger.
func Logger() *slog.Logger {
	return logger
}

// SetLogger replaces the package logger; nil is ignored.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// WithFields returns a logger with additional fields.
func WithFields(kv ...any) *slog.Logger {
	return logger.With(kv...)
}

// WithSessionID stores a session id in the context.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, ctxKeySession, sessionID)
}

// FromContext adds session_id if present.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return logger
	}
	id, _ := ctx.Value(ctxKeySession).(string)
	if id == "" {
		return logger
	}
	return logger.With("session_id", id)
}
