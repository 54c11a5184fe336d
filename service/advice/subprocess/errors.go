package subprocess

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoResult is reported when the child exits without writing a result.
	ErrNoResult = errors.New("child process produced no result")
	// ErrVersion is reported for an envelope of an unsupported version.
	ErrVersion = errors.New("unsupported envelope version")
)

// ExitError reports a child process that exited non-zero or produced no
// valid result.
type ExitError struct {
	Code   int
	Stderr string
	Err    error
}

func (e *ExitError) Error() string {
	builder := new(strings.Builder)
	fmt.Fprintf(builder, "child process exited with code %d", e.Code)
	if e.Err != nil {
		builder.WriteString(": ")
		builder.WriteString(e.Err.Error())
	}
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		builder.WriteString("\nstderr: ")
		builder.WriteString(stderr)
	}
	return builder.String()
}

// ExitCode returns the child exit code.
func (e *ExitError) ExitCode() int { return e.Code }

func (e *ExitError) Unwrap() error { return e.Err }

// RemoteError is a task failure raised inside the child process.
type RemoteError struct {
	Type    string `json:"type" yaml:"type"`
	Message string `json:"message" yaml:"message"`
}

func (e *RemoteError) Error() string {
	if e.Type == "" {
		return e.Message
	}
	return e.Type + ": " + e.Message
}

func newRemoteError(err error) *RemoteError {
	root := err
	for {
		next := errors.Unwrap(root)
		if next == nil {
			break
		}
		root = next
	}
	return &RemoteError{Type: fmt.Sprintf("%T", root), Message: err.Error()}
}
