package execution

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyInitiated   = errors.New("session already initiated")
	ErrNotRunning         = errors.New("session is not running")
	ErrAlreadyConcluded   = errors.New("session already concluded")
	ErrInvalidProceed     = errors.New("proceed is allowed once, from within the current advice before")
	ErrNoTransition       = errors.New("advice before returned without proceed or conclude")
	ErrTempDirUnavailable = errors.New("temp dir is only available while the session runs")
	ErrNoTask             = errors.New("session has no task")
	ErrNoConfiguration    = errors.New("session has no configuration")
)

// TaskError reports a failure raised by the task function.
type TaskError struct {
	TaskID   string
	Function string
	Err      error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %v (%v) failed: %v", e.TaskID, e.Function, e.Err)
}

func (e *TaskError) Unwrap() error { return e.Err }

// AdviceError reports a failure raised by an advice hook.
type AdviceError struct {
	Advice string
	Phase  string
	Err    error
}

func (e *AdviceError) Error() string {
	return fmt.Sprintf("advice %v %v failed: %v", e.Advice, e.Phase, e.Err)
}

func (e *AdviceError) Unwrap() error { return e.Err }

// ResourceError reports a scoped directory that could not be created,
// moved or removed. It is logged and never replaces the session result.
type ResourceError struct {
	Op   string
	Path string
	Err  error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("failed to %v %v: %v", e.Op, e.Path, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }

// ExitCoder is implemented by failures that carry a child process exit code.
type ExitCoder interface {
	ExitCode() int
}

// ExitCodeOf returns the exit code carried by err, if any.
func ExitCodeOf(err error) (int, bool) {
	var coder ExitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode(), true
	}
	return 0, false
}
