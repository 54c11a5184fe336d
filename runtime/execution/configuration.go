package execution

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/viant/advice/service/registry"
	"github.com/viant/advice/service/serializer"
)

// Configuration holds the ordered advice chain and the serializer. It is built
// once and shared read-only by sessions; every session snapshots the chain.
type Configuration struct {
	chain       []Advice
	serializer  serializer.Serializer
	registry    *registry.Registry
	artifactDir string
	mux         sync.RWMutex
}

// ConfigurationOption customises a configuration.
type ConfigurationOption func(c *Configuration)

// WithAdvices appends advices to the chain.
func WithAdvices(advices ...Advice) ConfigurationOption {
	return func(c *Configuration) {
		c.chain = append(c.chain, advices...)
	}
}

// WithSerializer sets the payload serializer.
func WithSerializer(s serializer.Serializer) ConfigurationOption {
	return func(c *Configuration) {
		c.serializer = s
	}
}

// WithRegistry sets the function registry.
func WithRegistry(r *registry.Registry) ConfigurationOption {
	return func(c *Configuration) {
		c.registry = r
	}
}

// WithArtifactDir sets where attachments are moved before a session temp dir
// is removed.
func WithArtifactDir(dir string) ConfigurationOption {
	return func(c *Configuration) {
		c.artifactDir = dir
	}
}

// AddAdviceChain appends advices to the end of the chain.
func (c *Configuration) AddAdviceChain(advices ...Advice) *Configuration {
	c.mux.Lock()
	defer c.mux.Unlock()
	for _, advice := range advices {
		if advice != nil {
			c.chain = append(c.chain, advice)
		}
	}
	return c
}

// SetSerializer replaces the serializer.
func (c *Configuration) SetSerializer(s serializer.Serializer) *Configuration {
	c.mux.Lock()
	defer c.mux.Unlock()
	if s != nil {
		c.serializer = s
	}
	return c
}

// SetRegistry replaces the function registry.
func (c *Configuration) SetRegistry(r *registry.Registry) *Configuration {
	c.mux.Lock()
	defer c.mux.Unlock()
	if r != nil {
		c.registry = r
	}
	return c
}

// Chain returns a copy of the advice chain in insertion order.
func (c *Configuration) Chain() []Advice {
	c.mux.RLock()
	defer c.mux.RUnlock()
	return append([]Advice(nil), c.chain...)
}

// Serializer returns the configured serializer.
func (c *Configuration) Serializer() serializer.Serializer {
	c.mux.RLock()
	defer c.mux.RUnlock()
	return c.serializer
}

// Registry returns the function registry.
func (c *Configuration) Registry() *registry.Registry {
	c.mux.RLock()
	defer c.mux.RUnlock()
	return c.registry
}

// ArtifactDir returns the directory receiving session attachments.
func (c *Configuration) ArtifactDir() string {
	return c.artifactDir
}

// DefaultArtifactDir is used when no artifact dir is configured. Session
// folders under it are never removed by a session; the owner prunes them
// (see Service.PruneArtifacts).
func DefaultArtifactDir() string {
	return filepath.Join(os.TempDir(), "advice", "artifacts")
}

// NewConfiguration creates a configuration; the serializer defaults to JSON and
// the registry to registry.Default().
func NewConfiguration(options ...ConfigurationOption) *Configuration {
	ret := &Configuration{}
	for _, opt := range options {
		opt(ret)
	}
	if ret.serializer == nil {
		ret.serializer = serializer.JSON()
	}
	if ret.registry == nil {
		ret.registry = registry.Default()
	}
	if ret.artifactDir == "" {
		ret.artifactDir = DefaultArtifactDir()
	}
	return ret
}
