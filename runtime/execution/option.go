package execution

import (
	"log/slog"

	"github.com/viant/afs"
)

// Option customises a session.
type Option func(session *Session)

// WithRunID sets the run the session belongs to.
func WithRunID(runID string) Option {
	return func(session *Session) {
		session.RunID = runID
	}
}

// WithSessionID overrides the generated session id.
func WithSessionID(id string) Option {
	return func(session *Session) {
		session.ID = id
	}
}

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(session *Session) {
		session.logger = logger
	}
}

// WithFS sets the file system used for temp dir and artifact handling.
func WithFS(fs afs.Service) Option {
	return func(session *Session) {
		session.fs = fs
	}
}
