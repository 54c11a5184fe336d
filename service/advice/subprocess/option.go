package subprocess

import (
	"log/slog"

	"github.com/viant/afs"
)

// Option customises the subprocess advice.
type Option func(a *Advice)

// WithExchangeDir sets the exchange root shared by sessions.
func WithExchangeDir(dir string) Option {
	return func(a *Advice) {
		a.exchangeDir = dir
	}
}

// WithCompression gzips exchange files.
func WithCompression(compress bool) Option {
	return func(a *Advice) {
		a.compress = compress
	}
}

// WithFS sets the exchange file system.
func WithFS(fs afs.Service) Option {
	return func(a *Advice) {
		a.fs = fs
	}
}

// WithLauncher overrides the launcher selected by the interpreter.
func WithLauncher(launcher Launcher) Option {
	return func(a *Advice) {
		a.launcher = launcher
	}
}

// WithLogger sets the logger receiving child output.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Advice) {
		a.logger = logger
	}
}
