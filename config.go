package advice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/viant/advice/internal/env"
	"github.com/viant/advice/runtime/execution"
	"github.com/viant/advice/service/advice/metrics"
	"github.com/viant/advice/service/advice/subprocess"
	"github.com/viant/advice/service/advice/trace"
	"github.com/viant/advice/service/serializer"
	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"gopkg.in/yaml.v3"
)

// Advice kinds accepted in Config.Chain.
const (
	KindMetrics    = "metrics"
	KindSubprocess = "subprocess"
	KindTracing    = "tracing"
)

// Store kinds.
const (
	StoreMemory = "memory"
	StoreFS     = "fs"
)

// Config is a serialisable representation of the engine configuration. The
// zero-value is useful: Init fills package defaults.
type Config struct {
	// Serializer encodes subprocess envelopes and fs store records (json, yaml).
	Serializer  string         `json:"serializer,omitempty" yaml:"serializer,omitempty"`
	ArtifactDir string         `json:"artifactDir,omitempty" yaml:"artifactDir,omitempty"`
	Chain       []AdviceConfig `json:"chain,omitempty" yaml:"chain,omitempty"`
	Store       StoreConfig    `json:"store,omitempty" yaml:"store,omitempty"`
	Tracing     *TracingConfig `json:"tracing,omitempty" yaml:"tracing,omitempty"`
}

// AdviceConfig describes one chain element.
type AdviceConfig struct {
	Kind       string            `json:"kind" yaml:"kind"`
	Metrics    *MetricsConfig    `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Subprocess *SubprocessConfig `json:"subprocess,omitempty" yaml:"subprocess,omitempty"`
	SpanKind   string            `json:"spanKind,omitempty" yaml:"spanKind,omitempty"`
}

type MetricsConfig struct {
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
	Dir    string `json:"dir,omitempty" yaml:"dir,omitempty"`
}

type SubprocessConfig struct {
	Interpreter *subprocess.Interpreter `json:"interpreter,omitempty" yaml:"interpreter,omitempty"`
	ExchangeDir string                  `json:"exchangeDir,omitempty" yaml:"exchangeDir,omitempty"`
	Compress    bool                    `json:"compress,omitempty" yaml:"compress,omitempty"`
}

type StoreConfig struct {
	Kind string `json:"kind,omitempty" yaml:"kind,omitempty"`
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

type TracingConfig struct {
	ServiceName    string `json:"serviceName,omitempty" yaml:"serviceName,omitempty"`
	ServiceVersion string `json:"serviceVersion,omitempty" yaml:"serviceVersion,omitempty"`
	OutputFile     string `json:"outputFile,omitempty" yaml:"outputFile,omitempty"`
}

// DefaultConfig returns a Config with a metrics only chain and an in-memory
// session store.
func DefaultConfig() *Config {
	ret := &Config{Chain: []AdviceConfig{{Kind: KindMetrics}}}
	ret.Init()
	return ret
}

// Init fills defaults.
func (c *Config) Init() {
	if c.Serializer == "" {
		c.Serializer = serializer.NameJSON
	}
	if c.ArtifactDir == "" {
		c.ArtifactDir = execution.DefaultArtifactDir()
	}
	if c.Store.Kind == "" {
		c.Store.Kind = StoreMemory
	}
	if c.Tracing != nil && c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "advice"
	}
}

// Validate returns aggregated error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	var errs []error
	if _, err := serializer.Lookup(c.Serializer); err != nil {
		errs = append(errs, err)
	}
	for i, item := range c.Chain {
		switch strings.ToLower(item.Kind) {
		case KindMetrics:
			if item.Metrics != nil {
				if _, err := metrics.LookupFormat(item.Metrics.Format); err != nil {
					errs = append(errs, fmt.Errorf("chain[%d]: %w", i, err))
				}
			}
		case KindSubprocess:
			if i != len(c.Chain)-1 {
				errs = append(errs, fmt.Errorf("chain[%d]: subprocess advice concludes the chain and has to be the last one", i))
			}
			if item.Subprocess != nil && item.Subprocess.Interpreter != nil {
				switch item.Subprocess.Interpreter.Launcher {
				case "", subprocess.LauncherExec, subprocess.LauncherShell:
				default:
					errs = append(errs, fmt.Errorf("chain[%d]: unsupported launcher: %v", i, item.Subprocess.Interpreter.Launcher))
				}
			}
		case KindTracing:
		default:
			errs = append(errs, fmt.Errorf("chain[%d]: unsupported advice kind: %q", i, item.Kind))
		}
	}
	switch c.Store.Kind {
	case "", StoreMemory:
	case StoreFS:
		if c.Store.Path == "" {
			errs = append(errs, fmt.Errorf("store.path is required for fs store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported store kind: %q", c.Store.Kind))
	}
	return errors.Join(errs...)
}

// Advices builds the configured advice chain.
func (c *Config) Advices() ([]execution.Advice, error) {
	var ret []execution.Advice
	for i, item := range c.Chain {
		advice, err := item.build()
		if err != nil {
			return nil, fmt.Errorf("chain[%d]: %w", i, err)
		}
		ret = append(ret, advice)
	}
	return ret, nil
}

func (a *AdviceConfig) build() (execution.Advice, error) {
	switch strings.ToLower(a.Kind) {
	case KindMetrics:
		var options []metrics.Option
		if cfg := a.Metrics; cfg != nil {
			format, err := metrics.LookupFormat(cfg.Format)
			if err != nil {
				return nil, err
			}
			options = append(options, metrics.WithFormat(format), metrics.WithDir(cfg.Dir))
		}
		return metrics.New(options...)
	case KindSubprocess:
		cfg := a.Subprocess
		if cfg == nil {
			cfg = &SubprocessConfig{}
		}
		interpreter := &subprocess.Interpreter{}
		if cfg.Interpreter != nil {
			clone := *cfg.Interpreter
			interpreter = &clone
		}
		return subprocess.New(interpreter,
			subprocess.WithExchangeDir(cfg.ExchangeDir),
			subprocess.WithCompression(cfg.Compress))
	case KindTracing:
		return trace.New(a.SpanKind), nil
	}
	return nil, fmt.Errorf("unsupported advice kind: %q", a.Kind)
}

// LoadConfig loads a YAML (or JSON) config from URL; ${env.NAME} references
// are expanded before decoding.
func LoadConfig(ctx context.Context, URL string, options ...storage.Option) (*Config, error) {
	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, URL, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %v: %w", URL, err)
	}
	ret := &Config{}
	if err = yaml.Unmarshal([]byte(env.Expand(string(data))), ret); err != nil {
		return nil, fmt.Errorf("failed to decode config %v: %w", URL, err)
	}
	ret.Init()
	if err = ret.Validate(); err != nil {
		return nil, err
	}
	return ret, nil
}
