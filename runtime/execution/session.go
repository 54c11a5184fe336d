package execution

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/viant/advice/internal/clock"
	"github.com/viant/advice/internal/idgen"
	"github.com/viant/advice/internal/logging"
	"github.com/viant/advice/model"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
)

// Session drives one task execution attempt through the configuration advice
// chain. A session is driven by exactly one goroutine and must be initiated
// once.
type Session struct {
	ID            string
	RunID         string
	Task          *model.Task
	Execution     *model.Execution
	Configuration *Configuration
	// Context is scratch space; an advice pops in After what it pushed in Before.
	Context map[string]interface{}
	// Attachments maps artifact names to file paths.
	Attachments map[string]string
	Result      *model.Result

	state     State
	chain     []Advice
	index     int
	entered   int
	inBefore  bool
	proceeded bool
	concluded bool
	finished  bool
	tempDir   string
	startedAt time.Time
	endedAt   time.Time
	ctx       context.Context
	fs        afs.Service
	logger    *slog.Logger
}

// State returns the session state.
func (s *Session) State() State {
	return s.state
}

// Concluded reports whether the forward phase has ended.
func (s *Session) Concluded() bool {
	return s.concluded
}

// Entered returns the number of advices whose Before was entered.
func (s *Session) Entered() int {
	return s.entered
}

// StartedAt returns when the session was initiated.
func (s *Session) StartedAt() time.Time {
	return s.startedAt
}

// EndedAt returns when the session finished.
func (s *Session) EndedAt() time.Time {
	return s.endedAt
}

// Ctx returns the context flowing through the chain.
func (s *Session) Ctx() context.Context {
	if s.ctx == nil {
		return context.Background()
	}
	return s.ctx
}

// SetCtx replaces the context seen by subsequent advices and the task.
func (s *Session) SetCtx(ctx context.Context) {
	if ctx != nil {
		s.ctx = ctx
	}
}

// Logger returns the session scoped logger.
func (s *Session) Logger() *slog.Logger {
	return s.logger
}

// FS returns the session file system.
func (s *Session) FS() afs.Service {
	return s.fs
}

// Attach registers an artifact; a later write under the same name wins.
func (s *Session) Attach(name, location string) {
	s.Attachments[name] = location
}

// Initiate runs the chain synchronously to completion. Task and advice
// failures are captured into Result; the returned error only reports misuse.
func (s *Session) Initiate(ctx context.Context) error {
	if s.state != StateNotStarted {
		return ErrAlreadyInitiated
	}
	if s.Task == nil {
		return ErrNoTask
	}
	if s.Configuration == nil {
		return ErrNoConfiguration
	}
	if ctx == nil {
		ctx = context.Background()
	}
	s.ctx = WithSession(logging.WithSessionID(ctx, s.ID), s)
	s.state = StateRunning
	s.startedAt = clock.Now()
	s.logger.Debug("session initiated", "chain", len(s.chain))

	defer s.finish()
	s.forward()
	s.unwind()
	return nil
}

// Proceed advances to the next advice once the current Before returns. It is
// valid only once, from within the current advice's Before.
func (s *Session) Proceed() error {
	if s.state != StateRunning {
		if s.concluded {
			return ErrAlreadyConcluded
		}
		return ErrNotRunning
	}
	if !s.inBefore || s.proceeded {
		return ErrInvalidProceed
	}
	s.proceeded = true
	return nil
}

// Conclude ends the forward phase with value or err. Remaining Before hooks and
// the task function are skipped; the After hooks of entered advices run next.
func (s *Session) Conclude(value interface{}, err error) error {
	if s.concluded {
		return ErrAlreadyConcluded
	}
	if s.state != StateRunning {
		return ErrNotRunning
	}
	if s.inBefore && s.proceeded {
		return ErrInvalidProceed
	}
	s.conclude(value, err)
	return nil
}

// TempDir returns the session scoped directory, creating it on first use. It is
// removed when the session finishes.
func (s *Session) TempDir() (string, error) {
	if s.state == StateNotStarted || s.finished {
		return "", ErrTempDirUnavailable
	}
	if s.tempDir == "" {
		dir, err := os.MkdirTemp("", "advice-session-")
		if err != nil {
			return "", &ResourceError{Op: "create", Path: os.TempDir(), Err: err}
		}
		s.tempDir = dir
	}
	return s.tempDir, nil
}

func (s *Session) conclude(value interface{}, err error) {
	s.concluded = true
	s.Result = &model.Result{Value: value, Err: err}
	if err != nil {
		s.state = StateFailed
		s.logger.Debug("session failed", "error", err)
		return
	}
	s.state = StateConcluded
}

// forward enters Before hooks by index until an advice concludes or the chain
// is exhausted, in which case the task function is invoked.
func (s *Session) forward() {
	for !s.concluded {
		if s.index >= len(s.chain) {
			s.invoke()
			return
		}
		advice := s.chain[s.index]
		s.index++
		s.entered = s.index
		s.inBefore, s.proceeded = true, false
		err := s.before(advice)
		s.inBefore = false
		switch {
		case err != nil:
			if s.concluded {
				s.logger.Warn("advice failed after concluding", "advice", advice.Name(), "error", err)
				return
			}
			s.conclude(nil, &AdviceError{Advice: advice.Name(), Phase: "before", Err: err})
			return
		case s.concluded:
			return
		case !s.proceeded:
			s.conclude(nil, &AdviceError{Advice: advice.Name(), Phase: "before", Err: ErrNoTransition})
			return
		}
	}
}

func (s *Session) before(advice Advice) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return advice.Before(s)
}

func (s *Session) after(advice Advice) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return advice.After(s)
}

// unwind calls After on every entered advice in reverse order.
func (s *Session) unwind() {
	for i := s.entered - 1; i >= 0; i-- {
		advice := s.chain[i]
		if err := s.after(advice); err != nil {
			s.logger.Error("advice after failed", "advice", advice.Name(), "error", err)
		}
	}
}

func (s *Session) invoke() {
	value, err := s.call()
	if err != nil {
		err = &TaskError{TaskID: s.Task.ID, Function: s.Task.Function, Err: err}
	}
	s.conclude(value, err)
}

func (s *Session) call() (value interface{}, err error) {
	fn, err := s.Configuration.Registry().Resolve(s.Task.Function)
	if err != nil {
		return nil, err
	}
	ctx := s.Ctx()
	if s.Task.Bind {
		ctx = model.WithTask(ctx, s.Task)
	}
	defer func() {
		if r := recover(); r != nil {
			value, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx, s.Task.Args, s.Task.Kwargs)
}

func (s *Session) finish() {
	ctx := context.Background()
	if s.tempDir != "" {
		s.harvestAttachments(ctx)
		if err := s.fs.Delete(ctx, s.tempDir); err != nil {
			s.logger.Error("temp dir cleanup failed", "error", &ResourceError{Op: "remove", Path: s.tempDir, Err: err})
		}
	}
	s.finished = true
	s.endedAt = clock.Now()
	s.logger.Debug("session finished", "state", string(s.state), "elapsed", s.endedAt.Sub(s.startedAt).String())
}

// harvestAttachments moves attachments living in the temp dir to the artifact
// dir so that they outlive the session.
func (s *Session) harvestAttachments(ctx context.Context) {
	dest := filepath.Join(s.Configuration.ArtifactDir(), s.ID)
	for name, location := range s.Attachments {
		rel, err := filepath.Rel(s.tempDir, location)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			continue
		}
		target := filepath.Join(dest, rel)
		if err = s.fs.Create(ctx, filepath.Dir(target), file.DefaultDirOsMode, true); err != nil {
			s.logger.Error("artifact dir create failed", "error", &ResourceError{Op: "create", Path: filepath.Dir(target), Err: err})
			continue
		}
		if err = s.fs.Move(ctx, location, target); err != nil {
			s.logger.Error("attachment move failed", "attachment", name, "error", &ResourceError{Op: "move", Path: location, Err: err})
			continue
		}
		s.Attachments[name] = target
	}
}

// Record returns the persistable summary of the session.
func (s *Session) Record() *model.Record {
	ret := &model.Record{
		ID:          s.ID,
		RunID:       s.RunID,
		State:       string(s.state),
		Attachments: make(map[string]string, len(s.Attachments)),
		StartedAt:   s.startedAt,
		EndedAt:     s.endedAt,
	}
	if s.Task != nil {
		ret.TaskID = s.Task.ID
		ret.Function = s.Task.Function
	}
	if s.Execution != nil {
		ret.ExecutionID = s.Execution.ID
	}
	for k, v := range s.Attachments {
		ret.Attachments[k] = v
	}
	if s.Result != nil {
		ret.Value = s.Result.Value
		if s.Result.Err != nil {
			ret.Error = s.Result.Err.Error()
			if code, ok := ExitCodeOf(s.Result.Err); ok {
				ret.ExitCode = &code
			}
		}
	}
	return ret
}

// NewSession creates a session for one execution attempt of task.
func NewSession(task *model.Task, exec *model.Execution, configuration *Configuration, options ...Option) *Session {
	ret := &Session{
		ID:            idgen.New(),
		Task:          task,
		Execution:     exec,
		Configuration: configuration,
		Context:       make(map[string]interface{}),
		Attachments:   make(map[string]string),
		state:         StateNotStarted,
	}
	for _, opt := range options {
		opt(ret)
	}
	ret.RunID = idgen.Ensure(ret.RunID)
	if ret.Execution == nil {
		ret.Execution = model.NewExecution(task)
	}
	if configuration != nil {
		ret.chain = configuration.Chain()
	}
	if ret.fs == nil {
		ret.fs = afs.New()
	}
	if ret.logger == nil {
		ret.logger = logging.Logger()
	}
	ret.logger = ret.logger.With("session_id", ret.ID, "run_id", ret.RunID)
	if task != nil {
		ret.logger = ret.logger.With("task_id", task.ID, "function", task.Function)
	}
	return ret
}
