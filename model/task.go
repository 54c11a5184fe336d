package model

import (
	"context"

	"github.com/viant/advice/internal/idgen"
)

// Task describes a registered function call together with the advice
// specific configuration. A task is immutable once created.
type Task struct {
	ID         string                 `json:"id" yaml:"id"`
	Function   string                 `json:"function" yaml:"function"`
	Args       []interface{}          `json:"args,omitempty" yaml:"args,omitempty"`
	Kwargs     map[string]interface{} `json:"kwargs,omitempty" yaml:"kwargs,omitempty"`
	Parameters Parameters             `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	// Bind exposes the task to the function through its context.
	Bind bool `json:"bind,omitempty" yaml:"bind,omitempty"`
}

// TaskOption customises a task at creation time.
type TaskOption func(t *Task)

// WithTaskID overrides the generated task id.
func WithTaskID(id string) TaskOption {
	return func(t *Task) {
		t.ID = id
	}
}

// WithArgs sets positional arguments.
func WithArgs(args ...interface{}) TaskOption {
	return func(t *Task) {
		t.Args = append(t.Args, args...)
	}
}

// WithKwargs sets keyword arguments.
func WithKwargs(kwargs map[string]interface{}) TaskOption {
	return func(t *Task) {
		if t.Kwargs == nil {
			t.Kwargs = make(map[string]interface{}, len(kwargs))
		}
		for k, v := range kwargs {
			t.Kwargs[k] = v
		}
	}
}

// WithParameters sets advice parameters keyed by advice name.
func WithParameters(params Parameters) TaskOption {
	return func(t *Task) {
		t.Parameters = params.Clone()
	}
}

// WithBind makes the task available to the function via TaskFromContext.
func WithBind(bind bool) TaskOption {
	return func(t *Task) {
		t.Bind = bind
	}
}

// NewTask creates a task for the registered function name.
func NewTask(function string, options ...TaskOption) *Task {
	ret := &Task{Function: function}
	for _, opt := range options {
		opt(ret)
	}
	ret.ID = idgen.Ensure(ret.ID)
	if ret.Parameters == nil {
		ret.Parameters = Parameters{}
	}
	return ret
}

type taskKey struct{}

// WithTask returns a context carrying the task.
func WithTask(ctx context.Context, task *Task) context.Context {
	return context.WithValue(ctx, taskKey{}, task)
}

// TaskFromContext returns the task bound to ctx, if any.
func TaskFromContext(ctx context.Context) (*Task, bool) {
	if ctx == nil {
		return nil, false
	}
	t, ok := ctx.Value(taskKey{}).(*Task)
	return t, ok && t != nil
}
