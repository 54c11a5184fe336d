package execution

import (
	"context"
	"reflect"
)

var SessionKey = KeyOf[*Session]()

// WithSession returns ctx carrying the session.
func WithSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, SessionKey, session)
}

// SessionFromContext returns the session driving ctx, nil when absent.
func SessionFromContext(ctx context.Context) *Session {
	return ContextValue[*Session](ctx)
}

// ContextValue returns the value of the provided type from the context
func ContextValue[T any](ctx context.Context) T {
	var t T
	if ctx == nil {
		return t
	}
	if value, ok := ctx.Value(KeyOf[T]()).(T); ok {
		return value
	}
	return t
}

// KeyOf returns the reflect.Type of the provided type
func KeyOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
