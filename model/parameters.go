package model

import (
	"fmt"

	"github.com/viant/structology/conv"
)

// Parameters holds advice specific configuration keyed by advice name.
type Parameters map[string]map[string]interface{}

// Lookup returns the parameters registered for the advice, nil when absent.
func (p Parameters) Lookup(advice string) map[string]interface{} {
	if p == nil {
		return nil
	}
	return p[advice]
}

// Value returns a single parameter value of the advice.
func (p Parameters) Value(advice, key string) (interface{}, bool) {
	values := p.Lookup(advice)
	if values == nil {
		return nil, false
	}
	v, ok := values[key]
	return v, ok
}

// Decode converts the advice parameters into target (a pointer to struct).
// Missing parameters leave target untouched.
func (p Parameters) Decode(advice string, target interface{}) error {
	values := p.Lookup(advice)
	if len(values) == 0 {
		return nil
	}
	if err := converter.Convert(values, target); err != nil {
		return fmt.Errorf("failed to decode %v parameters: %w", advice, err)
	}
	return nil
}

// Without returns a copy excluding the named advices.
func (p Parameters) Without(advices ...string) Parameters {
	ret := p.Clone()
	for _, name := range advices {
		delete(ret, name)
	}
	return ret
}

// Clone returns a shallow copy of every advice entry.
func (p Parameters) Clone() Parameters {
	ret := make(Parameters, len(p))
	for advice, values := range p {
		clone := make(map[string]interface{}, len(values))
		for k, v := range values {
			clone[k] = v
		}
		ret[advice] = clone
	}
	return ret
}

var converter = newConverter()

func newConverter() *conv.Converter {
	options := conv.DefaultOptions()
	options.IgnoreUnmapped = true
	return conv.NewConverter(options)
}
