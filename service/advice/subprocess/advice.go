// Package subprocess provides an advice running the task function in a child
// process. Parent and child exchange versioned request and response envelopes
// through files in a session private folder.
package subprocess

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/viant/advice/internal/logging"
	"github.com/viant/advice/runtime/execution"
	"github.com/viant/advice/service/serializer"
	"github.com/viant/advice/tracing"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
)

const (
	// Name identifies the advice and its task parameters.
	Name = "subprocess"
	// FolderKey holds the session exchange folder between Before and After.
	FolderKey = "subprocess.folder"
)

const stderrTailSize = 8 * 1024

// Advice is a terminal advice: it concludes the session with the result
// produced by the child and never proceeds.
type Advice struct {
	interpreter *Interpreter
	exchangeDir string
	compress    bool
	fs          afs.Service
	launcher    Launcher
	logger      *slog.Logger
}

func (a *Advice) Name() string { return Name }

// ExchangeDir returns the exchange root.
func (a *Advice) ExchangeDir() string { return a.exchangeDir }

// Before writes the request, runs the child and concludes with its result.
func (a *Advice) Before(session *execution.Session) error {
	ctx := session.Ctx()
	folder := filepath.Join(a.exchangeDir, session.ID)
	if err := a.fs.Create(ctx, folder, file.DefaultDirOsMode, true); err != nil {
		return &execution.ResourceError{Op: "create", Path: folder, Err: err}
	}
	session.Context[FolderKey] = folder
	ex := &exchange{fs: a.fs, serializer: session.Configuration.Serializer(), compress: a.compress, folder: folder}
	if err := ex.write(ctx, ex.requestURL(), newRequest(session)); err != nil {
		return err
	}
	value, err := a.run(ctx, session, ex)
	return session.Conclude(value, err)
}

// After removes the session exchange folder.
func (a *Advice) After(session *execution.Session) error {
	value, ok := session.Context[FolderKey]
	delete(session.Context, FolderKey)
	if !ok {
		return nil
	}
	folder, _ := value.(string)
	if folder == "" {
		return nil
	}
	if err := a.fs.Delete(context.Background(), folder); err != nil {
		return &execution.ResourceError{Op: "remove", Path: folder, Err: err}
	}
	return nil
}

func (a *Advice) run(ctx context.Context, session *execution.Session, ex *exchange) (interface{}, error) {
	logger := a.logger.With("session_id", session.ID, "function", session.Task.Function)
	env := tracing.Inject(ctx)
	env[EnvRequestURL] = ex.requestURL()
	env[EnvSerializer] = ex.serializer.Name()
	stderr := &tail{limit: stderrTailSize}
	command := &Command{
		Path:     a.interpreter.Path,
		Args:     a.interpreter.Args,
		Env:      a.interpreter.Environment(env),
		Isolated: a.interpreter.Isolated,
		Timeout:  a.interpreter.Timeout(),
		Stdout:   &logWriter{logger: logger, stream: "stdout"},
		Stderr:   io.MultiWriter(stderr, &logWriter{logger: logger, stream: "stderr"}),
	}
	logger.Debug("launching child", "path", command.Path)
	code, err := a.launcher.Launch(ctx, command)
	if err != nil || code != 0 {
		return nil, &ExitError{Code: code, Stderr: stderr.String(), Err: err}
	}
	location := ex.resultURL()
	if !ex.exists(ctx, location) {
		return nil, &ExitError{Code: code, Stderr: stderr.String(), Err: ErrNoResult}
	}
	response := &Response{}
	if err = ex.read(ctx, location, response); err != nil {
		return nil, &ExitError{Code: code, Stderr: stderr.String(), Err: err}
	}
	if response.Version != Version {
		return nil, &ExitError{Code: code, Stderr: stderr.String(), Err: fmt.Errorf("%w: %v", ErrVersion, response.Version)}
	}
	if response.Error != nil {
		return nil, &execution.TaskError{TaskID: session.Task.ID, Function: session.Task.Function, Err: response.Error}
	}
	value, err := session.Configuration.Registry().Convert(session.Task.Function, response.Value)
	if err != nil {
		return nil, &serializer.Error{Serializer: ex.serializer.Name(), Op: "convert", Err: err}
	}
	return value, nil
}

func newRequest(session *execution.Session) *Request {
	task := session.Task
	ret := &Request{
		Version:    Version,
		Function:   task.Function,
		Args:       task.Args,
		Kwargs:     task.Kwargs,
		Parameters: task.Parameters.Without(Name),
		TaskID:     task.ID,
		SessionID:  session.ID,
		RunID:      session.RunID,
		Bind:       task.Bind,
	}
	if session.Execution != nil {
		ret.ExecutionID = session.Execution.ID
	}
	return ret
}

// tail keeps the last limit bytes written.
type tail struct {
	limit int
	data  []byte
}

func (t *tail) Write(p []byte) (int, error) {
	t.data = append(t.data, p...)
	if len(t.data) > t.limit {
		t.data = append([]byte(nil), t.data[len(t.data)-t.limit:]...)
	}
	return len(p), nil
}

func (t *tail) String() string {
	return string(t.data)
}

type logWriter struct {
	logger *slog.Logger
	stream string
}

func (w *logWriter) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		if line != "" {
			w.logger.Debug("child output", "stream", w.stream, "line", line)
		}
	}
	return len(p), nil
}

// New creates a subprocess advice. Without WithExchangeDir a fresh temporary
// exchange root is created.
func New(interpreter *Interpreter, options ...Option) (*Advice, error) {
	if interpreter == nil {
		interpreter = &Interpreter{}
	}
	if err := interpreter.Init(); err != nil {
		return nil, err
	}
	ret := &Advice{interpreter: interpreter}
	for _, opt := range options {
		opt(ret)
	}
	if ret.fs == nil {
		ret.fs = afs.New()
	}
	if ret.logger == nil {
		ret.logger = logging.Logger()
	}
	if ret.launcher == nil {
		launcher, err := launcherFor(interpreter.Launcher)
		if err != nil {
			return nil, err
		}
		ret.launcher = launcher
	}
	if ret.exchangeDir == "" {
		dir, err := os.MkdirTemp("", "advice-exchange-")
		if err != nil {
			return nil, &execution.ResourceError{Op: "create", Path: os.TempDir(), Err: err}
		}
		ret.exchangeDir = dir
	}
	return ret, nil
}
