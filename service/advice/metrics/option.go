package metrics

import "github.com/viant/afs"

// Option customises the metrics advice.
type Option func(a *Advice)

// WithFormat sets the record format.
func WithFormat(format Format) Option {
	return func(a *Advice) {
		a.format = format
	}
}

// WithDir writes records to dir instead of the session temp dir.
func WithDir(dir string) Option {
	return func(a *Advice) {
		a.dir = dir
	}
}

// WithCollector sets the measurement collector.
func WithCollector(collector *Collector) Option {
	return func(a *Advice) {
		a.collector = collector
	}
}

// WithFS sets the file system used to persist records.
func WithFS(fs afs.Service) Option {
	return func(a *Advice) {
		a.fs = fs
	}
}
