package advice

import (
	"log/slog"

	"github.com/viant/advice/model"
	"github.com/viant/advice/progress"
	"github.com/viant/advice/runtime/execution"
	"github.com/viant/advice/service/dao"
	"github.com/viant/advice/service/registry"
	"github.com/viant/advice/service/serializer"
	"github.com/viant/advice/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option customises the Service.
type Option func(s *Service)

// WithConfig sets the declarative configuration.
func WithConfig(config *Config) Option {
	return func(s *Service) {
		s.config = config
	}
}

// WithAdvices sets the advice chain, replacing the configured one.
func WithAdvices(advices ...execution.Advice) Option {
	return func(s *Service) {
		s.advices = advices
	}
}

// WithRegistry sets the function registry.
func WithRegistry(r *registry.Registry) Option {
	return func(s *Service) {
		s.registry = r
	}
}

// WithSerializer overrides the configured serializer.
func WithSerializer(ser serializer.Serializer) Option {
	return func(s *Service) {
		s.serializer = ser
	}
}

// WithSessionDAO sets the session record store.
func WithSessionDAO(sessions dao.Service[string, model.Record]) Option {
	return func(s *Service) {
		s.sessions = sessions
	}
}

// WithRunID sets the run shared by the service sessions.
func WithRunID(runID string) Option {
	return func(s *Service) {
		s.runID = runID
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithProgressListener registers a callback for session counter changes.
func WithProgressListener(listener func(progress.Progress)) Option {
	return func(s *Service) {
		s.progressListener = listener
	}
}

// WithTracing configures OpenTelemetry tracing for the service. If outputFile
// is empty the stdout exporter writes to stderr; otherwise traces are written
// to the supplied file path. The first successful initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		_ = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom
// SpanExporter, e.g. OTLP, Jaeger or Zipkin.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		_ = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}
