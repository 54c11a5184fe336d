// Package registry maps language-neutral function names onto callables so
// that a task can be resolved both in the calling process and in a child
// process started from the same binary.
package registry

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/viant/structology/conv"
	"github.com/viant/x"
)

// ErrFunctionNotFound is returned when a name has no registered function.
var ErrFunctionNotFound = errors.New("function not found")

// Function is a task callable.
type Function func(ctx context.Context, args []interface{}, kwargs map[string]interface{}) (interface{}, error)

// Entry describes a registered function.
type Entry struct {
	Name     string
	Function Function
	// Output describes the function result type; nil for untyped functions.
	Output *x.Type
}

// Option customises a registration.
type Option func(e *Entry)

// WithOutput records the result type so that decoded values can be converted
// back to it.
func WithOutput(rType reflect.Type) Option {
	return func(e *Entry) {
		if rType != nil {
			e.Output = x.NewType(rType)
		}
	}
}

// Registry is a concurrency-safe function registry.
type Registry struct {
	entries   map[string]*Entry
	converter *conv.Converter
	mux       sync.RWMutex
}

// Register registers (or replaces) a function under name. Without WithOutput
// a result decoded from a child keeps the serializer's generic shape: maps,
// slices, strings, bool, int for integral numbers and float64 otherwise.
func (r *Registry) Register(name string, fn Function, options ...Option) {
	entry := &Entry{Name: name, Function: fn}
	for _, opt := range options {
		opt(entry)
	}
	r.mux.Lock()
	defer r.mux.Unlock()
	r.entries[name] = entry
}

// Lookup returns the entry registered under name.
func (r *Registry) Lookup(name string) *Entry {
	r.mux.RLock()
	defer r.mux.RUnlock()
	return r.entries[name]
}

// Resolve returns the callable registered under name.
func (r *Registry) Resolve(name string) (Function, error) {
	entry := r.Lookup(name)
	if entry == nil || entry.Function == nil {
		return nil, fmt.Errorf("%w: %v", ErrFunctionNotFound, name)
	}
	return entry.Function, nil
}

// Names returns registered function names in sorted order.
func (r *Registry) Names() []string {
	r.mux.RLock()
	defer r.mux.RUnlock()
	ret := make([]string, 0, len(r.entries))
	for name := range r.entries {
		ret = append(ret, name)
	}
	sort.Strings(ret)
	return ret
}

// Convert converts a decoded value (e.g. float64 read from JSON) into the
// output type registered for name. Untyped functions return value unchanged.
func (r *Registry) Convert(name string, value interface{}) (interface{}, error) {
	entry := r.Lookup(name)
	if entry == nil || entry.Output == nil || value == nil {
		return value, nil
	}
	return r.typedValue(entry.Output.Type, value)
}

func (r *Registry) typedValue(rType reflect.Type, value interface{}) (interface{}, error) {
	if reflect.TypeOf(value) == rType {
		return value, nil
	}
	target := rType
	if target.Kind() == reflect.Ptr {
		target = target.Elem()
	}
	instance := reflect.New(target)
	if err := r.converter.Convert(value, instance.Interface()); err != nil {
		return nil, fmt.Errorf("failed to convert %T to %v: %w", value, rType, err)
	}
	if rType.Kind() == reflect.Ptr {
		return instance.Interface(), nil
	}
	return instance.Elem().Interface(), nil
}

// New creates an empty registry.
func New() *Registry {
	options := conv.DefaultOptions()
	options.ClonePointerData = true
	options.IgnoreUnmapped = true
	return &Registry{
		entries:   make(map[string]*Entry),
		converter: conv.NewConverter(options),
	}
}

var defaultRegistry = New()

// Default returns the process wide registry.
func Default() *Registry {
	return defaultRegistry
}
