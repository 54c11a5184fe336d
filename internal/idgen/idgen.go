package idgen

import "github.com/google/uuid"

// NewFunc returns a new globally unique identifier as string.
var NewFunc = func() string { return uuid.New().String() }

// New returns a new identifier.
func New() string { return NewFunc() }

// Ensure returns id when set, otherwise a freshly generated identifier.
func Ensure(id string) string {
	if id != "" {
		return id
	}
	return New()
}
