package weft

import (
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/loomworks/weft/codec"
	"github.com/loomworks/weft/lifecycle"
	"github.com/loomworks/weft/storage"
	"github.com/loomworks/weft/types"
)

// componentRecord is the world's per-type bookkeeping. The generic type is
// erased at registration: the typed view and the closures below capture it,
// so the world can operate on any storage without knowing T.
type componentRecord struct {
	id     types.ComponentID
	name   string
	schema []byte

	// store is the type-erased slice of the Storage[T] API the world needs.
	store storageHandle

	// view holds the *View[T]; ViewOf recovers the concrete type.
	view any

	// discard drops the entity's entry if it has one. Used by the destroy
	// sweep, so an absent entry is not an error.
	discard func(types.EntityID) error

	// valueJSON returns the entity's component value as raw JSON.
	valueJSON func(types.EntityID) (json.RawMessage, bool, error)

	// encodeState and decodeState are the snapshot codec for the storage's
	// dense arrays.
	encodeState func() ([]byte, error)
	decodeState func([]byte) error
}

// storageHandle is the part of Storage[T] that needs no type parameter.
type storageHandle interface {
	Len() int
	Iterating() bool
	Clear() error
}

// componentState is the snapshot wire form of one storage.
type componentState[T any] struct {
	IDs    []types.EntityID `json:"ids"`
	Values []T              `json:"values"`
}

// RegisterComponent registers the component type T with the world and
// allocates its storage. There can only be one component with a given name,
// which is declared by the user by implementing the Name() method; a
// duplicate name fails with ErrAlreadyRegistered and leaves the first
// registration untouched.
//
// The PT parameter names the pointer type implementing Behavior and is
// inferred, so calls read RegisterComponent[Position](w).
func RegisterComponent[T types.Component, PT types.BehaviorPtr[T]](w *World) error {
	var t T
	name := t.Name()

	if stage := w.stage.Current(); stage != lifecycle.Running {
		return eris.Errorf(
			"world stage is %s, expected %s to register component %q",
			stage, lifecycle.Running, name,
		)
	}
	if _, ok := w.recordsByName[name]; ok {
		return eris.Wrapf(ErrAlreadyRegistered, "component %q", name)
	}

	schema, err := types.SerializeComponentSchema(t)
	if err != nil {
		return eris.Wrapf(err, "failed to reflect schema for component %q", name)
	}

	st := storage.New[T]()
	rec := &componentRecord{
		id:     types.ComponentID(len(w.records)),
		name:   name,
		schema: schema,
		store:  st,
	}

	rec.view = &View[T]{
		world: w,
		rec:   rec,
		store: st,
		runUpdate: func(vals []T, dt float64) {
			for i := range vals {
				PT(&vals[i]).Update(dt)
			}
		},
		runRender: func(vals []T) {
			for i := range vals {
				PT(&vals[i]).Render()
			}
		},
	}
	rec.discard = func(id types.EntityID) error {
		_, err := st.Remove(id)
		if err != nil && !eris.Is(err, storage.ErrNotPresent) {
			return err
		}
		return nil
	}
	rec.valueJSON = func(id types.EntityID) (json.RawMessage, bool, error) {
		v, ok := st.Get(id)
		if !ok {
			return nil, false, nil
		}
		bz, err := codec.Encode(v)
		if err != nil {
			return nil, true, err
		}
		return bz, true, nil
	}
	rec.encodeState = func() ([]byte, error) {
		ids, vals := st.Dense()
		return codec.Encode(componentState[T]{IDs: ids, Values: vals})
	}
	rec.decodeState = func(bz []byte) error {
		state, err := codec.Decode[componentState[T]](bz)
		if err != nil {
			return err
		}
		return st.Load(state.IDs, state.Values)
	}

	w.records = append(w.records, rec)
	w.recordsByName[name] = rec
	w.logger.Debug().
		Str("component", name).
		Int("component_id", int(rec.id)).
		Msg("Registered component")
	return nil
}

// MustRegisterComponent is RegisterComponent for program setup paths where a
// registration failure is a programming error.
func MustRegisterComponent[T types.Component, PT types.BehaviorPtr[T]](w *World) {
	if err := RegisterComponent[T, PT](w); err != nil {
		panic(err)
	}
}

// viewFor resolves the registered view for T or explains why it can't.
func viewFor[T types.Component](w *World) (*View[T], error) {
	var t T
	rec, ok := w.recordsByName[t.Name()]
	if !ok {
		return nil, eris.Wrapf(ErrNotRegistered, "component %q", t.Name())
	}
	view, ok := rec.view.(*View[T])
	if !ok {
		return nil, eris.Wrapf(ErrNotRegistered, "component %q was registered with a different type", t.Name())
	}
	return view, nil
}

// ViewOf returns the view over T's storage. The second return is false when
// T was never registered with this world.
func ViewOf[T types.Component](w *World) (*View[T], bool) {
	view, err := viewFor[T](w)
	if err != nil {
		return nil, false
	}
	return view, true
}

// Insert attaches a component value to a live entity. Inserting over an
// existing value fails with ErrAlreadyPresent; Replace is the explicit
// overwrite.
func Insert[T types.Component](w *World, id types.EntityID, comp T) error {
	view, err := viewFor[T](w)
	if err != nil {
		return err
	}
	if !w.registry.Alive(id) {
		return eris.Wrapf(ErrNotFound, "entity %d", uint64(id))
	}
	return view.store.Insert(id, comp)
}

// Replace overwrites the entity's existing component value. Fails with
// ErrNotPresent when the entity does not have the component.
func Replace[T types.Component](w *World, id types.EntityID, comp T) error {
	view, err := viewFor[T](w)
	if err != nil {
		return err
	}
	if !w.registry.Alive(id) {
		return eris.Wrapf(ErrNotFound, "entity %d", uint64(id))
	}
	return view.store.Replace(id, comp)
}

// Remove detaches the component from the entity and returns the removed
// value.
func Remove[T types.Component](w *World, id types.EntityID) (T, error) {
	var zero T
	view, err := viewFor[T](w)
	if err != nil {
		return zero, err
	}
	if !w.registry.Alive(id) {
		return zero, eris.Wrapf(ErrNotFound, "entity %d", uint64(id))
	}
	return view.store.Remove(id)
}

// Get returns a pointer to the entity's component value. The pointer aliases
// the dense array and is valid only until the next structural change to the
// storage. The second return is false when the entity is dead, the type is
// unregistered, or the entity has no such component.
func Get[T types.Component](w *World, id types.EntityID) (*T, bool) {
	view, err := viewFor[T](w)
	if err != nil {
		return nil, false
	}
	if !w.registry.Alive(id) {
		return nil, false
	}
	return view.store.Get(id)
}

// Has reports whether the entity currently has the component.
func Has[T types.Component](w *World, id types.EntityID) bool {
	_, ok := Get[T](w, id)
	return ok
}
