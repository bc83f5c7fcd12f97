package weft

import (
	"github.com/loomworks/weft/storage"
	"github.com/loomworks/weft/types"
)

// View is a non-owning handle over one component type's storage, created once
// at registration and shared by every ViewOf call. It carries the typed chunk
// runners the dispatcher needs, captured while the concrete behavior type was
// still in scope.
//
// A view must not outlive its world.
type View[T any] struct {
	world *World
	rec   *componentRecord
	store *storage.Storage[T]

	runUpdate func(vals []T, dt float64)
	runRender func(vals []T)
}

// Len returns the number of entities that currently have the component.
func (v *View[T]) Len() int {
	return v.store.Len()
}

// Each calls fn for every entity in dense order, stopping early when fn
// returns false. Iteration order is deterministic between structural changes.
// The iteration guard is held for the whole walk: structural mutation from
// inside fn fails with ErrMisuse. Single-threaded use only; EachParallel is
// the concurrent path.
func (v *View[T]) Each(fn func(id types.EntityID, comp *T) bool) {
	v.store.Each(fn)
}
