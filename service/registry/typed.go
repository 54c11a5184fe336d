package registry

import (
	"context"
	"fmt"
	"reflect"
)

// RegisterFunc registers a typed function. Keyword arguments are converted
// into *I; when no keyword arguments are supplied and the first positional
// argument is a map, that map is used instead.
func RegisterFunc[I any, O any](r *Registry, name string, fn func(ctx context.Context, input *I) (O, error)) {
	var zero O
	outputType := reflect.TypeOf(zero)
	if outputType == nil {
		outputType = reflect.TypeOf((*O)(nil)).Elem()
	}
	r.Register(name, func(ctx context.Context, args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
		input := new(I)
		var source interface{}
		switch {
		case len(kwargs) > 0:
			source = kwargs
		case len(args) > 0:
			source = args[0]
		}
		if source != nil {
			if err := r.converter.Convert(source, input); err != nil {
				return nil, fmt.Errorf("invalid input for %v: %w", name, err)
			}
		}
		return fn(ctx, input)
	}, WithOutput(outputType))
}
