package subprocess

import (
	"context"
	"fmt"
	"os"

	"github.com/viant/advice/internal/logging"
	"github.com/viant/advice/model"
	"github.com/viant/advice/service/registry"
	"github.com/viant/advice/service/serializer"
	"github.com/viant/advice/tracing"
	"github.com/viant/afs"
)

const (
	// EnvRequestURL points the child at its request envelope.
	EnvRequestURL = "ADVICE_REQUEST_URL"
	// EnvSerializer names the envelope serializer.
	EnvSerializer = "ADVICE_SERIALIZER"
)

const (
	// ExitOK is returned whenever a response envelope was written, including
	// task failures.
	ExitOK = 0
	// ExitProtocol is returned when no response envelope could be written.
	ExitProtocol = 2
)

// Serve runs the pending request and exits the process when started as an
// advice child; otherwise it returns false. Call it early in main (or
// TestMain) after registering functions.
func Serve(ctx context.Context, r *registry.Registry) bool {
	requestURL := os.Getenv(EnvRequestURL)
	if requestURL == "" {
		return false
	}
	os.Exit(Run(ctx, r, requestURL))
	return true
}

// Run executes the request at requestURL and writes the response next to it.
func Run(ctx context.Context, r *registry.Registry, requestURL string) int {
	logger := logging.WithFields("request", requestURL, "pid", os.Getpid())
	s, err := serializer.Lookup(os.Getenv(EnvSerializer))
	if err != nil {
		logger.Error("invalid serializer", "error", err)
		return ExitProtocol
	}
	ex := exchangeFor(afs.New(), s, requestURL)
	request := &Request{}
	if err = ex.read(ctx, requestURL, request); err != nil {
		logger.Error("failed to read request", "error", err)
		return ExitProtocol
	}
	if request.Version != Version {
		logger.Error("failed to read request", "error", fmt.Errorf("%w: %v", ErrVersion, request.Version))
		return ExitProtocol
	}
	ctx = tracing.Extract(ctx, nil)
	ctx = logging.WithSessionID(ctx, request.SessionID)

	response := &Response{Version: Version}
	value, err := invoke(ctx, r, request)
	if err != nil {
		response.Error = newRemoteError(err)
	} else {
		response.Value = value
	}
	if err = ex.write(ctx, ex.resultURL(), response); err != nil {
		logger.Error("failed to write result", "error", err)
		if response.Error != nil {
			return ExitProtocol
		}
		// the value could not be encoded: report it as the task failure
		response = &Response{Version: Version, Error: newRemoteError(err)}
		if err = ex.write(ctx, ex.resultURL(), response); err != nil {
			return ExitProtocol
		}
	}
	return ExitOK
}

func invoke(ctx context.Context, r *registry.Registry, request *Request) (value interface{}, err error) {
	fn, err := r.Resolve(request.Function)
	if err != nil {
		return nil, err
	}
	if request.Bind {
		ctx = model.WithTask(ctx, request.Task())
	}
	defer func() {
		if p := recover(); p != nil {
			value, err = nil, fmt.Errorf("panic: %v", p)
		}
	}()
	return fn(ctx, request.Args, request.Kwargs)
}
