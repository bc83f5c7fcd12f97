// Package storage implements the dense sparse-set container that backs each
// registered component type.
package storage

import (
	"sync/atomic"

	"github.com/rotisserie/eris"

	"github.com/loomworks/weft/types"
)

var (
	// ErrAlreadyPresent is returned when inserting a component for an entity
	// that already has one in this storage.
	ErrAlreadyPresent = eris.New("component already present for entity")
	// ErrNotPresent is returned when removing or replacing a component for an
	// entity that has none in this storage.
	ErrNotPresent = eris.New("no component for entity")
	// ErrMisuse is returned when a structural change is attempted while an
	// iteration pass over the same storage is in flight.
	ErrMisuse = eris.New("structural change during iteration")
)

// Storage maps entities to component values of one type. Values live in a
// contiguous slice with a parallel entity slice (same index), plus a sparse
// index for O(1) lookup. Removal swap-pops, so dense order is only stable
// between structural changes, and value addresses must never be retained
// across them.
//
// Structural methods are not safe for concurrent use. Iteration passes hold
// a guard counter; a structural change while the counter is nonzero fails
// with ErrMisuse rather than corrupting the dense arrays.
type Storage[T any] struct {
	ids       []types.EntityID
	vals      []T
	sparse    map[types.EntityID]int
	iterating atomic.Int64
}

func New[T any]() *Storage[T] {
	return &Storage[T]{
		sparse: make(map[types.EntityID]int),
	}
}

// Insert appends the value for the given entity. Inserting over an existing
// entry is refused; use Replace to overwrite.
func (s *Storage[T]) Insert(id types.EntityID, v T) error {
	if s.iterating.Load() != 0 {
		return eris.Wrap(ErrMisuse, "insert")
	}
	if _, ok := s.sparse[id]; ok {
		return eris.Wrapf(ErrAlreadyPresent, "entity %d", id)
	}
	s.sparse[id] = len(s.ids)
	s.ids = append(s.ids, id)
	s.vals = append(s.vals, v)
	return nil
}

// Replace overwrites the existing value for the given entity in place.
func (s *Storage[T]) Replace(id types.EntityID, v T) error {
	idx, ok := s.sparse[id]
	if !ok {
		return eris.Wrapf(ErrNotPresent, "entity %d", id)
	}
	s.vals[idx] = v
	return nil
}

// Remove swap-pops the entity's entry and returns the removed value: the last
// dense element moves into the vacated slot and its sparse entry is fixed up.
func (s *Storage[T]) Remove(id types.EntityID) (T, error) {
	var zero T
	if s.iterating.Load() != 0 {
		return zero, eris.Wrap(ErrMisuse, "remove")
	}
	idx, ok := s.sparse[id]
	if !ok {
		return zero, eris.Wrapf(ErrNotPresent, "entity %d", id)
	}
	removed := s.vals[idx]
	last := len(s.ids) - 1
	if idx != last {
		s.ids[idx] = s.ids[last]
		s.vals[idx] = s.vals[last]
		s.sparse[s.ids[idx]] = idx
	}
	s.vals[last] = zero
	s.ids = s.ids[:last]
	s.vals = s.vals[:last]
	delete(s.sparse, id)
	return removed, nil
}

// Get returns a pointer into the dense array. The pointer is valid only until
// the next structural change on this storage.
func (s *Storage[T]) Get(id types.EntityID) (*T, bool) {
	idx, ok := s.sparse[id]
	if !ok {
		return nil, false
	}
	return &s.vals[idx], true
}

func (s *Storage[T]) Has(id types.EntityID) bool {
	_, ok := s.sparse[id]
	return ok
}

func (s *Storage[T]) Len() int {
	return len(s.ids)
}

// Dense returns the parallel entity and value slices backing the storage.
// This is what the dispatcher chunks. Callers must not grow, shrink, or
// retain them across a structural change.
func (s *Storage[T]) Dense() ([]types.EntityID, []T) {
	return s.ids, s.vals
}

// Each iterates the dense arrays in order under the iteration guard,
// stopping early when fn returns false.
func (s *Storage[T]) Each(fn func(id types.EntityID, v *T) bool) {
	s.BeginIteration()
	defer s.EndIteration()
	for i := range s.ids {
		if !fn(s.ids[i], &s.vals[i]) {
			return
		}
	}
}

// BeginIteration marks an iteration pass over the dense arrays as in flight.
// Structural changes fail with ErrMisuse until the matching EndIteration.
// Passes may nest and may span worker goroutines; the parallel dispatcher
// brackets every call with this pair.
func (s *Storage[T]) BeginIteration() {
	s.iterating.Add(1)
}

func (s *Storage[T]) EndIteration() {
	s.iterating.Add(-1)
}

// Iterating reports whether any iteration pass is currently in flight.
func (s *Storage[T]) Iterating() bool {
	return s.iterating.Load() != 0
}

// Load replaces the storage contents with the given parallel slices, copying
// them in. Used on the snapshot restore path.
func (s *Storage[T]) Load(ids []types.EntityID, vals []T) error {
	if s.iterating.Load() != 0 {
		return eris.Wrap(ErrMisuse, "load")
	}
	if len(ids) != len(vals) {
		return eris.Errorf("mismatched state: %d ids, %d values", len(ids), len(vals))
	}
	sparse := make(map[types.EntityID]int, len(ids))
	for i, id := range ids {
		if _, ok := sparse[id]; ok {
			return eris.Errorf("duplicate entity %d in state", id)
		}
		sparse[id] = i
	}
	s.ids = make([]types.EntityID, len(ids))
	copy(s.ids, ids)
	s.vals = make([]T, len(vals))
	copy(s.vals, vals)
	s.sparse = sparse
	return nil
}

// Clear drops every entry.
func (s *Storage[T]) Clear() error {
	if s.iterating.Load() != 0 {
		return eris.Wrap(ErrMisuse, "clear")
	}
	s.ids = nil
	s.vals = nil
	s.sparse = make(map[types.EntityID]int)
	return nil
}
