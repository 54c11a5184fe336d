package advice

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/viant/advice/internal/idgen"
	"github.com/viant/advice/internal/logging"
	"github.com/viant/advice/model"
	"github.com/viant/advice/progress"
	"github.com/viant/advice/runtime/execution"
	"github.com/viant/advice/service/dao"
	smemory "github.com/viant/advice/service/dao/session/memory"
	sfs "github.com/viant/advice/service/dao/session/fs"
	"github.com/viant/advice/service/registry"
	"github.com/viant/advice/service/serializer"
	"github.com/viant/advice/tracing"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
)

// Service runs tasks through the configured advice chain and keeps records of
// finished sessions.
type Service struct {
	config           *Config
	configuration    *execution.Configuration
	advices          []execution.Advice
	registry         *registry.Registry
	serializer       serializer.Serializer
	sessions         dao.Service[string, model.Record]
	progress         *progress.Progress
	progressListener func(progress.Progress)
	runID            string
	logger           *slog.Logger
}

func (s *Service) init(options []Option) error {
	for _, option := range options {
		option(s)
	}
	if s.config == nil {
		s.config = DefaultConfig()
	}
	s.config.Init()
	if err := s.config.Validate(); err != nil {
		return err
	}
	if s.logger == nil {
		s.logger = logging.Logger()
	}
	s.runID = idgen.Ensure(s.runID)
	if s.registry == nil {
		s.registry = registry.Default()
	}
	if s.serializer == nil {
		ser, err := serializer.Lookup(s.config.Serializer)
		if err != nil {
			return err
		}
		s.serializer = ser
	}
	if s.advices == nil {
		advices, err := s.config.Advices()
		if err != nil {
			return err
		}
		s.advices = advices
	}
	if t := s.config.Tracing; t != nil {
		if err := tracing.Init(t.ServiceName, t.ServiceVersion, t.OutputFile); err != nil {
			return fmt.Errorf("failed to init tracing: %w", err)
		}
	}
	if err := s.ensureStore(); err != nil {
		return err
	}
	s.configuration = execution.NewConfiguration(
		execution.WithRegistry(s.registry),
		execution.WithSerializer(s.serializer),
		execution.WithArtifactDir(s.config.ArtifactDir),
	).AddAdviceChain(s.advices...)
	s.progress = progress.New(s.runID, s.progressListener)
	return nil
}

func (s *Service) ensureStore() error {
	if s.sessions != nil {
		return nil
	}
	switch s.config.Store.Kind {
	case StoreFS:
		store, err := sfs.New(s.config.Store.Path, s.serializer)
		if err != nil {
			return err
		}
		s.sessions = store
	default:
		s.sessions = smemory.New()
	}
	return nil
}

// Run executes the task in a new session and stores its record. The session
// is returned even when it failed; the error is the session failure, reported
// after the full unwind.
func (s *Service) Run(ctx context.Context, task *model.Task, options ...execution.Option) (*execution.Session, error) {
	if task == nil {
		return nil, execution.ErrNoTask
	}
	options = append([]execution.Option{execution.WithRunID(s.runID), execution.WithLogger(s.logger)}, options...)
	session := execution.NewSession(task, model.NewExecution(task), s.configuration, options...)
	return session, s.initiate(ctx, session)
}

// Retry runs a new attempt of the task executed by a previous session.
func (s *Service) Retry(ctx context.Context, previous *execution.Session, options ...execution.Option) (*execution.Session, error) {
	if previous == nil || previous.Task == nil {
		return nil, execution.ErrNoTask
	}
	options = append([]execution.Option{execution.WithRunID(s.runID), execution.WithLogger(s.logger)}, options...)
	session := execution.NewSession(previous.Task, previous.Execution.Next(), s.configuration, options...)
	return session, s.initiate(ctx, session)
}

func (s *Service) initiate(ctx context.Context, session *execution.Session) error {
	ctx = progress.WithTracker(ctx, s.progress)
	s.progress.Started()
	if err := session.Initiate(ctx); err != nil {
		s.progress.Update(progress.Delta{Running: -1, Total: -1})
		return err
	}
	s.progress.Finished(session.Result.Failed())
	if err := s.sessions.Save(ctx, session.Record()); err != nil {
		s.logger.Error("failed to save session record", "session_id", session.ID, "error", err)
	}
	return session.Result.Err
}

// PruneArtifacts removes session artifact folders last modified before
// cutoff and returns how many were removed. Attachments are kept under
// <artifactDir>/<sessionID> until pruned.
func (s *Service) PruneArtifacts(ctx context.Context, cutoff time.Time) (int, error) {
	dir := url.Normalize(s.configuration.ArtifactDir(), file.Scheme)
	fs := afs.New()
	if ok, _ := fs.Exists(ctx, dir); !ok {
		return 0, nil
	}
	objects, err := fs.List(ctx, dir)
	if err != nil {
		return 0, fmt.Errorf("failed to list artifacts %v: %w", dir, err)
	}
	removed := 0
	for _, object := range objects {
		if !object.IsDir() || url.Equals(dir, object.URL()) || !object.ModTime().Before(cutoff) {
			continue
		}
		if err = fs.Delete(ctx, object.URL()); err != nil {
			return removed, fmt.Errorf("failed to remove artifacts %v: %w", object.URL(), err)
		}
		removed++
	}
	s.logger.Debug("artifacts pruned", "dir", dir, "removed", removed)
	return removed, nil
}

// Session returns the record of a finished session.
func (s *Service) Session(ctx context.Context, id string) (*model.Record, error) {
	return s.sessions.Load(ctx, id)
}

// Sessions lists finished session records.
func (s *Service) Sessions(ctx context.Context, parameters ...*dao.Parameter) ([]*model.Record, error) {
	return s.sessions.List(ctx, parameters...)
}

// Progress returns a snapshot of the session counters.
func (s *Service) Progress() progress.Progress {
	return s.progress.Snapshot()
}

// RunID returns the run shared by the service sessions.
func (s *Service) RunID() string {
	return s.runID
}

// Registry returns the function registry.
func (s *Service) Registry() *registry.Registry {
	return s.registry
}

// Configuration returns the advice chain configuration shared by sessions.
func (s *Service) Configuration() *execution.Configuration {
	return s.configuration
}

// New creates a service.
func New(options ...Option) (*Service, error) {
	ret := &Service{}
	if err := ret.init(options); err != nil {
		return nil, err
	}
	return ret, nil
}
