package fs

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/viant/advice/internal/logging"
	"github.com/viant/advice/model"
	"github.com/viant/advice/service/dao"
	"github.com/viant/advice/service/dao/criteria"
	"github.com/viant/advice/service/serializer"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"
	"github.com/viant/afs/url"
)

// Service implements a filesystem-based session record storage, one file per
// record encoded with the configured serializer.
type Service struct {
	basePath   string
	fs         afs.Service
	serializer serializer.Serializer
	mu         sync.RWMutex
}

// Ensure Service implements dao.Service
var _ dao.Service[string, model.Record] = (*Service)(nil)

// Save persists a record to the filesystem
func (s *Service) Save(ctx context.Context, record *model.Record) error {
	if record == nil {
		return dao.ErrNilEntity
	}
	if record.ID == "" {
		return dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.serializer.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	filePath := s.recordPath(record.ID)
	if err = s.fs.Upload(ctx, filePath, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to save record to file %s: %w", filePath, err)
	}
	return nil
}

// Load retrieves a record from the filesystem
func (s *Service) Load(ctx context.Context, id string) (*model.Record, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	filePath := s.recordPath(id)
	exists, err := s.fs.Exists(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to check if record exists: %w", err)
	}
	if !exists {
		return nil, dao.ErrNotFound
	}
	data, err := s.fs.DownloadWithURL(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read record file: %w", err)
	}
	record := &model.Record{}
	if err := s.serializer.Unmarshal(data, record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record data: %w", err)
	}
	return record, nil
}

// Delete removes a record from the filesystem
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	filePath := s.recordPath(id)
	exists, err := s.fs.Exists(ctx, filePath)
	if err != nil {
		return fmt.Errorf("failed to check if record exists: %w", err)
	}
	if !exists {
		return dao.ErrNotFound
	}
	if err := s.fs.Delete(ctx, filePath); err != nil {
		return fmt.Errorf("failed to delete record file: %w", err)
	}
	return nil
}

// List returns matching records ordered by start time.
func (s *Service) List(ctx context.Context, parameters ...*dao.Parameter) ([]*model.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	objects, err := s.fs.List(ctx, s.basePath, option.NewRecursive(true))
	if err != nil {
		return nil, fmt.Errorf("failed to list record files: %w", err)
	}
	logger := logging.FromContext(ctx)
	var records []*model.Record
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), "."+s.serializer.Ext()) {
			continue
		}
		data, err := s.fs.Download(ctx, object)
		if err != nil {
			logger.Warn("failed to read record file", "url", object.URL(), "error", err)
			continue
		}
		record := &model.Record{}
		if err := s.serializer.Unmarshal(data, record); err != nil {
			logger.Warn("failed to unmarshal record", "url", object.URL(), "error", err)
			continue
		}
		if criteria.Match(record, parameters) {
			records = append(records, record)
		}
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].StartedAt.Before(records[j].StartedAt)
	})
	return records, nil
}

func (s *Service) recordPath(id string) string {
	return path.Join(s.basePath, fmt.Sprintf("%s.%s", id, s.serializer.Ext()))
}

// New creates a filesystem record storage; a nil serializer selects JSON.
func New(basePath string, s serializer.Serializer) (*Service, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}
	if s == nil {
		s = serializer.JSON()
	}
	fs := afs.New()
	ctx := context.Background()
	exists, _ := fs.Exists(ctx, basePath)
	if !exists {
		if err := fs.Create(ctx, basePath, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("failed to create base directory: %w", err)
		}
	}
	basePath = url.Normalize(basePath, file.Scheme)
	return &Service{
		basePath:   basePath,
		fs:         fs,
		serializer: s,
	}, nil
}
