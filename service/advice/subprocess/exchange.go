package subprocess

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/viant/advice/model"
	"github.com/viant/advice/service/serializer"
	"github.com/viant/advice/service/stream"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
)

// Version of the request and response envelopes.
const Version = 1

const gzipExt = ".gz"

// Request is the envelope written for the child.
type Request struct {
	Version     int                    `json:"version" yaml:"version"`
	Function    string                 `json:"function" yaml:"function"`
	Args        []interface{}          `json:"args,omitempty" yaml:"args,omitempty"`
	Kwargs      map[string]interface{} `json:"kwargs,omitempty" yaml:"kwargs,omitempty"`
	Parameters  model.Parameters       `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	TaskID      string                 `json:"taskId" yaml:"taskId"`
	ExecutionID string                 `json:"executionId,omitempty" yaml:"executionId,omitempty"`
	SessionID   string                 `json:"sessionId" yaml:"sessionId"`
	RunID       string                 `json:"runId,omitempty" yaml:"runId,omitempty"`
	Bind        bool                   `json:"bind,omitempty" yaml:"bind,omitempty"`
}

// Task rebuilds the task seen by a bound function in the child.
func (r *Request) Task() *model.Task {
	return &model.Task{
		ID:         r.TaskID,
		Function:   r.Function,
		Args:       r.Args,
		Kwargs:     r.Kwargs,
		Parameters: r.Parameters,
		Bind:       r.Bind,
	}
}

// Response is the envelope written by the child: either a value or an error.
type Response struct {
	Version int          `json:"version" yaml:"version"`
	Value   interface{}  `json:"value,omitempty" yaml:"value,omitempty"`
	Error   *RemoteError `json:"error,omitempty" yaml:"error,omitempty"`
}

// exchange reads and writes envelopes in a session folder.
type exchange struct {
	fs         afs.Service
	serializer serializer.Serializer
	compress   bool
	folder     string
}

func (e *exchange) location(name string) string {
	location := filepath.Join(e.folder, name+"."+e.serializer.Ext())
	if e.compress {
		location += gzipExt
	}
	return location
}

func (e *exchange) requestURL() string {
	return e.location("request")
}

func (e *exchange) resultURL() string {
	return e.location("result")
}

// write encodes v and streams it to location, gzipping on the fly when
// compression is enabled.
func (e *exchange) write(ctx context.Context, location string, v interface{}) error {
	data, err := e.serializer.Marshal(v)
	if err != nil {
		return err
	}
	chunks := stream.Chunks(bytes.NewReader(data), stream.DefaultBufferSize)
	if e.compress {
		chunks = stream.Compress(chunks)
	}
	reader := stream.NewReader(chunks)
	defer reader.Close()
	if err = e.fs.Upload(ctx, location, file.DefaultFileOsMode, reader); err != nil {
		return fmt.Errorf("failed to write %v: %w", location, err)
	}
	return nil
}

func (e *exchange) exists(ctx context.Context, location string) bool {
	ok, _ := e.fs.Exists(ctx, location)
	return ok
}

func (e *exchange) read(ctx context.Context, location string, v interface{}) error {
	rc, err := e.fs.OpenURL(ctx, location)
	if err != nil {
		return fmt.Errorf("failed to open %v: %w", location, err)
	}
	defer rc.Close()
	var reader io.Reader = rc
	if strings.HasSuffix(location, gzipExt) {
		gz, err := gzip.NewReader(rc)
		if err != nil {
			return &serializer.Error{Serializer: e.serializer.Name(), Op: "unmarshal", Err: err}
		}
		defer gz.Close()
		reader = gz
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("failed to read %v: %w", location, err)
	}
	return e.serializer.Unmarshal(data, v)
}

// exchangeFor returns the exchange owning the request location.
func exchangeFor(fs afs.Service, s serializer.Serializer, requestURL string) *exchange {
	return &exchange{
		fs:         fs,
		serializer: s,
		compress:   strings.HasSuffix(requestURL, gzipExt),
		folder:     filepath.Dir(requestURL),
	}
}
