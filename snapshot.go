package weft

import (
	"context"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/loomworks/weft/codec"
	"github.com/loomworks/weft/lifecycle"
	"github.com/loomworks/weft/snapshot"
	"github.com/loomworks/weft/types"
)

// snapshotConcurrency caps how many component blobs are in flight at once on
// the persist and restore paths.
const snapshotConcurrency = 8

func registryKey(ns string) string {
	return ns + ":registry"
}

func componentKey(ns string, name string) string {
	return ns + ":component:" + name
}

func schemaKey(ns string, name string) string {
	return ns + ":schema:" + name
}

func (w *World) snapshotGate(verb string) error {
	if stage := w.stage.Current(); stage != lifecycle.Running {
		return eris.Errorf("world stage is %s, %s requires %s", stage, verb, lifecycle.Running)
	}
	for _, rec := range w.records {
		if rec.store.Iterating() {
			return eris.Wrapf(ErrMisuse, "cannot %s while component %q is being iterated", verb, rec.name)
		}
	}
	return nil
}

// Snapshot persists the world's full state into the given store: the entity
// registry, one blob per registered component storage, and each component's
// reflected JSON schema. Keys are prefixed with the world's namespace, so
// many worlds can share one store. Component blobs are written concurrently.
//
// The world must not be mid-iteration; structural quiet is the caller's
// responsibility beyond that, per the usual single-threaded contract.
func (w *World) Snapshot(ctx context.Context, store snapshot.PrimitiveStorage[string]) error {
	if err := w.snapshotGate("snapshot"); err != nil {
		return err
	}
	ns := w.config.Namespace

	regBz, err := codec.Encode(w.registry.state())
	if err != nil {
		return eris.Wrap(err, "failed to encode registry")
	}
	if err := store.Set(ctx, registryKey(ns), regBz); err != nil {
		return eris.Wrap(err, "failed to persist registry")
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(snapshotConcurrency)
	for _, rec := range w.records {
		rec := rec
		eg.Go(func() error {
			bz, err := rec.encodeState()
			if err != nil {
				return eris.Wrapf(err, "failed to encode component %q", rec.name)
			}
			if err := store.Set(ctx, componentKey(ns, rec.name), bz); err != nil {
				return eris.Wrapf(err, "failed to persist component %q", rec.name)
			}
			if err := store.Set(ctx, schemaKey(ns, rec.name), rec.schema); err != nil {
				return eris.Wrapf(err, "failed to persist schema of component %q", rec.name)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	w.logger.Info().
		Int("components", len(w.records)).
		Int("entities", w.registry.Len()).
		Msg("Snapshot complete")
	return nil
}

// Restore replaces the world's state with a snapshot previously written under
// the same namespace. Before a component blob is loaded, the schema stored
// beside it is compared against the component's current reflected schema;
// drift fails with ErrSchemaMismatch and names the component. A component
// registered here but absent from the snapshot restores to empty. Component
// types present in the store but not registered here are ignored.
func (w *World) Restore(ctx context.Context, store snapshot.PrimitiveStorage[string]) error {
	if err := w.snapshotGate("restore"); err != nil {
		return err
	}
	ns := w.config.Namespace

	regBz, err := store.GetBytes(ctx, registryKey(ns))
	switch {
	case eris.Is(err, snapshot.ErrKeyNotFound):
		// No snapshot under this namespace: restore to an empty world.
		if err := w.registry.load(registryState{}); err != nil {
			return err
		}
	case err != nil:
		return eris.Wrap(err, "failed to read registry")
	default:
		state, err := codec.Decode[registryState](regBz)
		if err != nil {
			return eris.Wrap(err, "failed to decode registry")
		}
		if err := w.registry.load(state); err != nil {
			return err
		}
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(snapshotConcurrency)
	for _, rec := range w.records {
		rec := rec
		eg.Go(func() error {
			bz, err := store.GetBytes(ctx, componentKey(ns, rec.name))
			if eris.Is(err, snapshot.ErrKeyNotFound) {
				return rec.store.Clear()
			}
			if err != nil {
				return eris.Wrapf(err, "failed to read component %q", rec.name)
			}

			storedSchema, err := store.GetBytes(ctx, schemaKey(ns, rec.name))
			if err != nil && !eris.Is(err, snapshot.ErrKeyNotFound) {
				return eris.Wrapf(err, "failed to read schema of component %q", rec.name)
			}
			if storedSchema != nil {
				ok, err := types.IsSchemaValid(storedSchema, rec.schema)
				if err != nil {
					return eris.Wrapf(err, "failed to compare schema of component %q", rec.name)
				}
				if !ok {
					return eris.Wrapf(ErrSchemaMismatch, "component %q has changed shape since the snapshot", rec.name)
				}
			}

			if err := rec.decodeState(bz); err != nil {
				return eris.Wrapf(err, "failed to load component %q", rec.name)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	w.logger.Info().
		Int("components", len(w.records)).
		Int("entities", w.registry.Len()).
		Msg("Restore complete")
	return nil
}
