package store

import (
	"context"
	"slices"
	"sync"

	"github.com/viant/advice/service/dao"
)

// MemoryStore is a generic in-memory implementation of dao.Service. It keeps
// copies of entities of type *T mapped by a comparable key K obtained from
// keySelector, so callers can never mutate stored state.
type MemoryStore[K comparable, T any] struct {
	mu          sync.RWMutex
	records     map[K]*T
	order       []K
	keySelector func(*T) K
	clone       func(*T) *T
	match       func(*T, []*dao.Parameter) bool
}

// Option customises a MemoryStore.
type Option[K comparable, T any] func(s *MemoryStore[K, T])

// WithClone sets the copy function applied on Save and on reads.
func WithClone[K comparable, T any](clone func(*T) *T) Option[K, T] {
	return func(s *MemoryStore[K, T]) {
		s.clone = clone
	}
}

// WithMatcher sets the List filter.
func WithMatcher[K comparable, T any](match func(*T, []*dao.Parameter) bool) Option[K, T] {
	return func(s *MemoryStore[K, T]) {
		s.match = match
	}
}

// NewMemoryStore creates a new MemoryStore.
func NewMemoryStore[K comparable, T any](keySelector func(*T) K, options ...Option[K, T]) *MemoryStore[K, T] {
	ret := &MemoryStore[K, T]{
		records:     make(map[K]*T),
		keySelector: keySelector,
		clone:       func(t *T) *T { clone := *t; return &clone },
	}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}

// Save stores or overwrites a record.
func (s *MemoryStore[K, T]) Save(_ context.Context, v *T) error {
	if v == nil {
		return dao.ErrNilEntity
	}
	key := s.keySelector(v)
	var zero K
	if key == zero {
		return dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[key]; !ok {
		s.order = append(s.order, key)
	}
	s.records[key] = s.clone(v)
	return nil
}

// Load returns a record by key.
func (s *MemoryStore[K, T]) Load(_ context.Context, key K) (*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.records[key]
	if !ok {
		return nil, dao.ErrNotFound
	}
	return s.clone(v), nil
}

// Delete removes a record.
func (s *MemoryStore[K, T]) Delete(_ context.Context, key K) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[key]; !ok {
		return dao.ErrNotFound
	}
	delete(s.records, key)
	if index := slices.Index(s.order, key); index >= 0 {
		s.order = slices.Delete(s.order, index, index+1)
	}
	return nil
}

// List returns stored records in insertion order.
func (s *MemoryStore[K, T]) List(_ context.Context, parameters ...*dao.Parameter) ([]*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*T, 0, len(s.records))
	for _, key := range s.order {
		v := s.records[key]
		if s.match != nil && !s.match(v, parameters) {
			continue
		}
		out = append(out, s.clone(v))
	}
	return out, nil
}
