// Package metrics provides an advice bracketing the remainder of the chain
// with a timing measurement persisted as a session attachment.
package metrics

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/viant/advice/runtime/execution"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/toolbox"
)

const (
	// Name identifies the advice and its task parameters.
	Name = "metrics"
	// ContextKey holds the live measurement between Before and After.
	ContextKey = "metrics.measurement"
	// TagsParameter lists caller supplied tags in task parameters.
	TagsParameter = "tags"
)

// Advice measures the wrapped chain. It always proceeds.
type Advice struct {
	format    Format
	dir       string
	collector *Collector
	fs        afs.Service
}

func (a *Advice) Name() string { return Name }

// Format returns the record format.
func (a *Advice) Format() Format { return a.format }

// Before starts a measurement keyed by the session id.
func (a *Advice) Before(session *execution.Session) error {
	tags := a.tags(session)
	session.Context[ContextKey] = a.collector.Start(session.ID, tags)
	return session.Proceed()
}

// After stops the measurement and attaches its record, also when the session
// failed.
func (a *Advice) After(session *execution.Session) error {
	value, ok := session.Context[ContextKey]
	delete(session.Context, ContextKey)
	if !ok {
		return nil
	}
	measurement, ok := value.(*Measurement)
	if !ok {
		return fmt.Errorf("unexpected %v type: %T", ContextKey, value)
	}
	ctx := session.Ctx()
	record := measurement.Stop(ctx)
	dir := a.dir
	if dir == "" {
		var err error
		if dir, err = session.TempDir(); err != nil {
			return err
		}
	}
	buffer := new(bytes.Buffer)
	if err := a.format.Encode(buffer, record); err != nil {
		return fmt.Errorf("failed to encode metrics %v: %w", record.Identifier, err)
	}
	location := filepath.Join(dir, record.Identifier+"."+a.format.Ext())
	if err := a.fs.Upload(ctx, location, file.DefaultFileOsMode, buffer); err != nil {
		return fmt.Errorf("failed to write metrics %v: %w", location, err)
	}
	session.Attach(Name+"."+a.format.Ext(), location)
	return nil
}

// tags merges caller supplied tags with the session ids; ids win.
func (a *Advice) tags(session *execution.Session) map[string]string {
	ret := map[string]string{}
	if value, ok := session.Task.Parameters.Value(Name, TagsParameter); ok && toolbox.IsMap(value) {
		for k, v := range toolbox.AsMap(value) {
			ret[k] = toolbox.AsString(v)
		}
	}
	ret["run_id"] = session.RunID
	ret["task_id"] = session.Task.ID
	ret["execution_id"] = session.Execution.ID
	ret["session_id"] = session.ID
	return ret
}

// New creates a metrics advice; the format defaults to JSON and records are
// written to the session temp dir unless WithDir is used.
func New(options ...Option) (*Advice, error) {
	ret := &Advice{}
	for _, opt := range options {
		opt(ret)
	}
	if ret.format == nil {
		ret.format = JSON()
	}
	if ret.fs == nil {
		ret.fs = afs.New()
	}
	if ret.collector == nil {
		collector, err := NewCollector(nil)
		if err != nil {
			return nil, err
		}
		ret.collector = collector
	}
	return ret, nil
}
