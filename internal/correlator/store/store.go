// Package store provides the append-only collections that own documents and
// queries. Every appended item receives the next ordinal, starting at 0, and
// ordinals are never reused.
package store

import (
	"iter"
	"sync"

	apperrors "github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/pkg/errors"
)

// Store is an append-only, ordinal-addressed collection. Appends from
// concurrent producers are serialised so ordinals stay strictly increasing.
type Store[T any] struct {
	mu    sync.RWMutex
	items []T
	kind  string
}

// New creates an empty Store. kind names the item type in NotFound errors.
func New[T any](kind string) *Store[T] {
	return &Store[T]{kind: kind}
}

// Append stores item under the next ordinal and returns it. build receives
// the ordinal so items can embed their own id.
func (s *Store[T]) Append(build func(id uint32) T) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uint32(len(s.items))
	s.items = append(s.items, build(id))
	return id
}

// Get returns the item with the given ordinal or ErrNotFound.
func (s *Store[T]) Get(id uint32) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if int(id) >= len(s.items) {
		var zero T
		return zero, apperrors.NotFoundf("%s %d does not exist", s.kind, id)
	}
	return s.items[id], nil
}

// Len returns the number of stored items, which is also the next ordinal.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// All iterates items in ordinal order over a snapshot taken at call time.
// Items appended during iteration are not visited.
func (s *Store[T]) All() iter.Seq2[uint32, T] {
	s.mu.RLock()
	snapshot := s.items[:len(s.items):len(s.items)]
	s.mu.RUnlock()
	return func(yield func(uint32, T) bool) {
		for i, item := range snapshot {
			if !yield(uint32(i), item) {
				return
			}
		}
	}
}
