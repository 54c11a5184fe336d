package subprocess

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/viant/advice/service/stream"
	"github.com/viant/gosh"
	"github.com/viant/gosh/runner"
	"github.com/viant/gosh/runner/local"
)

const (
	outputBufferSize = 4 * 1024
	waitDelay        = time.Second
)

// Command describes a child process launch.
type Command struct {
	Path string
	Args []string
	// Env holds variables set for the child.
	Env map[string]string
	// Isolated drops the caller environment.
	Isolated bool
	Timeout  time.Duration
	Stdout   io.Writer
	Stderr   io.Writer
}

// Launcher starts a child process and waits for it. A non-zero exit is
// reported through the exit code; err is reserved for launches that could not
// complete.
type Launcher interface {
	Launch(ctx context.Context, command *Command) (exitCode int, err error)
}

// ExecLauncher launches the child directly with os/exec.
type ExecLauncher struct{}

func (ExecLauncher) Launch(ctx context.Context, command *Command) (int, error) {
	if command.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, command.Timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, command.Path, command.Args...)
	cmd.Env = environ(command)
	// a grandchild inheriting the output must not hold Wait past the child
	cmd.WaitDelay = waitDelay
	stdout, stdoutWriter := io.Pipe()
	stderr, stderrWriter := io.Pipe()
	cmd.Stdout, cmd.Stderr = stdoutWriter, stderrWriter
	if err := cmd.Start(); err != nil {
		return -1, fmt.Errorf("failed to start %v: %w", command.Path, err)
	}
	wg := sync.WaitGroup{}
	wg.Add(2)
	go func() {
		defer wg.Done()
		drain(stdout, command.Stdout)
	}()
	go func() {
		defer wg.Done()
		drain(stderr, command.Stderr)
	}()
	waitErr := cmd.Wait()
	_ = stdoutWriter.Close()
	_ = stderrWriter.Close()
	wg.Wait()
	if waitErr == nil || errors.Is(waitErr, exec.ErrWaitDelay) {
		return 0, nil
	}
	code := exitCodeForError(waitErr)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return code, ctxErr
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return code, nil
	}
	return code, waitErr
}

// drain consumes a child pipe chunk-wise until EOF.
func drain(r io.Reader, w io.Writer) {
	for chunk, err := range stream.Chunks(r, outputBufferSize) {
		if err != nil {
			return
		}
		if w != nil {
			_, _ = w.Write(chunk)
		}
	}
}

func exitCodeForError(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			if status.Signaled() {
				return 128 + int(status.Signal())
			}
			return status.ExitStatus()
		}
		return exitErr.ExitCode()
	}
	return -1
}

func environ(command *Command) []string {
	var ret []string
	if !command.Isolated {
		ret = os.Environ()
	}
	keys := make([]string, 0, len(command.Env))
	for k := range command.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		ret = append(ret, k+"="+command.Env[k])
	}
	if ret == nil {
		ret = []string{}
	}
	return ret
}

const defaultShellTimeout = 10 * time.Minute

// ShellLauncher runs the child in a local gosh shell session. Variables are
// passed on the command line through env. The shell merges child stdout and
// stderr; the output goes to Stdout on success and to Stderr otherwise.
type ShellLauncher struct{}

func (ShellLauncher) Launch(ctx context.Context, command *Command) (int, error) {
	service, err := gosh.New(ctx, local.New())
	if err != nil {
		return -1, fmt.Errorf("failed to start shell: %w", err)
	}
	defer service.Close()

	timeout := command.Timeout
	if timeout <= 0 {
		timeout = defaultShellTimeout
	}
	started := time.Now()
	output, status, err := service.Run(ctx, shellLine(command), runner.WithTimeout(int(timeout.Milliseconds())))
	if elapsed := time.Since(started); elapsed > timeout && err == nil {
		err = fmt.Errorf("command %v timed out after: %s", command.Path, elapsed)
	}
	sink := command.Stdout
	if status != 0 {
		sink = command.Stderr
	}
	drain(strings.NewReader(output), sink)
	if err != nil && status == 0 {
		status = -1
	}
	return status, err
}

func shellLine(command *Command) string {
	var parts []string
	if command.Isolated || len(command.Env) > 0 {
		parts = append(parts, "env")
		if command.Isolated {
			parts = append(parts, "-i")
		}
		keys := make([]string, 0, len(command.Env))
		for k := range command.Env {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			parts = append(parts, shellQuote(k+"="+command.Env[k]))
		}
	}
	parts = append(parts, shellQuote(command.Path))
	for _, arg := range command.Args {
		parts = append(parts, shellQuote(arg))
	}
	return strings.Join(parts, " ")
}

func shellQuote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", `'\''`) + "'"
}

// launcherFor returns the launcher named by the interpreter.
func launcherFor(name string) (Launcher, error) {
	switch name {
	case "", LauncherExec:
		return ExecLauncher{}, nil
	case LauncherShell:
		return ShellLauncher{}, nil
	}
	return nil, fmt.Errorf("unsupported launcher: %v", name)
}
