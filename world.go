// Package weft is an entity-component storage and dispatch engine. Component
// data lives in dense per-type arrays; component behavior runs across many
// entities through a shared worker pool, chunk by chunk, with no central
// per-frame scheduler.
package weft

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/loomworks/weft/lifecycle"
	"github.com/loomworks/weft/log"
	"github.com/loomworks/weft/pool"
	"github.com/loomworks/weft/statsd"
	"github.com/loomworks/weft/telemetry"
	"github.com/loomworks/weft/types"
)

var _ log.Loggable = &World{}

// World owns one storage per registered component type plus the entity
// registry that issues ids. Structural calls (create, destroy, insert,
// remove, register) are single-threaded; parallel work happens only inside
// EachParallel's barrier.
type World struct {
	config     WorldConfig
	instanceID string

	registry *Registry

	// records holds one entry per registered component type in registration
	// order; recordsByName is the name index over the same entries.
	records       []*componentRecord
	recordsByName map[string]*componentRecord

	pool      pool.Submitter
	ownedPool *pool.WorkerPool

	stage     *lifecycle.Manager
	telemetry *telemetry.Manager
	tracer    trace.Tracer

	logger     zerolog.Logger
	baseLogger *zerolog.Logger
}

// NewWorld creates a world configured from the WEFT_* environment variables,
// then applies the given options on top. Unless WithPool injects one, the
// world starts an owned worker pool sized from config and shuts it down again
// in Shutdown.
func NewWorld(opts ...WorldOption) (*World, error) {
	cfg, err := loadWorldConfig()
	if err != nil {
		return nil, eris.Wrap(err, "failed to load world config")
	}

	world := &World{
		config:        *cfg,
		instanceID:    uuid.New().String(),
		registry:      NewRegistry(),
		recordsByName: make(map[string]*componentRecord),
		stage:         lifecycle.NewManager(lifecycle.Init),
		tracer:        otel.Tracer("dispatch"),
	}

	for _, opt := range opts {
		opt(world)
	}

	// Options may have replaced config values; check the result once.
	if err := world.config.Validate(); err != nil {
		return nil, eris.Wrap(err, "invalid world config")
	}

	var base zerolog.Logger
	if world.baseLogger != nil {
		base = *world.baseLogger
	} else {
		base, err = log.NewLogger(world.config.LogLevel, world.config.LogPretty)
		if err != nil {
			return nil, err
		}
	}
	world.logger = *log.CreateWorldLogger(&base, world.config.Namespace, world.instanceID)

	if world.config.StatsdAddress != "" {
		tags := []string{"weft_namespace:" + world.config.Namespace}
		if err := statsd.Init(world.config.StatsdAddress, tags); err != nil {
			return nil, eris.Wrap(err, "unable to init statsd")
		}
	} else {
		world.logger.Debug().Msg("statsd is disabled")
	}

	if world.config.TraceEnabled || world.config.ProfilerEnabled {
		tm, err := telemetry.New(world.config.Namespace, world.config.TraceEnabled, world.config.ProfilerEnabled)
		if err != nil {
			return nil, eris.Wrap(err, "failed to start telemetry")
		}
		world.telemetry = tm
	}

	// Start the owned pool last; a construction failure must not leave
	// workers running with no Shutdown to collect them.
	if world.pool == nil {
		world.ownedPool = pool.NewWorkerPool(
			pool.WithWorkers(world.config.PoolWorkers),
			pool.WithQueueSize(world.config.PoolQueueSize),
			pool.WithLogger(world.logger),
		)
		world.pool = world.ownedPool
	}

	world.stage.Store(lifecycle.Running)
	world.logger.Info().Msg("World created")
	return world, nil
}

// Namespace returns the world's configured namespace.
func (w *World) Namespace() string {
	return w.config.Namespace
}

// InstanceID returns the uuid assigned to this world at construction.
func (w *World) InstanceID() string {
	return w.instanceID
}

// Logger returns the world's logger.
func (w *World) Logger() *zerolog.Logger {
	return &w.logger
}

// IsRunning reports whether the world accepts dispatches.
func (w *World) IsRunning() bool {
	return w.stage.Current() == lifecycle.Running
}

// GetRegisteredComponents describes every registered component storage.
func (w *World) GetRegisteredComponents() []types.ComponentInfo {
	acc := make([]types.ComponentInfo, 0, len(w.records))
	for _, rec := range w.records {
		acc = append(acc, types.ComponentInfo{
			ID:       rec.id,
			Name:     rec.name,
			Entities: rec.store.Len(),
		})
	}
	return acc
}

// EntityCount returns the number of live entities.
func (w *World) EntityCount() int {
	return w.registry.Len()
}

// Create issues a fresh entity id with no components attached.
func (w *World) Create() types.EntityID {
	id := w.registry.Create()
	log.Entity(&w.logger, zerolog.DebugLevel, id)
	return id
}

// Destroy removes the entity's components from every registered storage and
// frees its id for reuse. Fails with ErrNotFound on a stale or unknown
// handle, and with ErrMisuse, before touching anything, if any storage is
// mid-iteration.
func (w *World) Destroy(id types.EntityID) error {
	if !w.registry.Alive(id) {
		return eris.Wrapf(ErrNotFound, "entity %d", uint64(id))
	}
	for _, rec := range w.records {
		if rec.store.Iterating() {
			return eris.Wrapf(ErrMisuse, "cannot destroy entity %d while component %q is being iterated",
				uint64(id), rec.name)
		}
	}
	for _, rec := range w.records {
		if err := rec.discard(id); err != nil {
			return eris.Wrapf(err, "failed to discard component %q of entity %d", rec.name, uint64(id))
		}
	}
	return w.registry.Destroy(id)
}

// Alive reports whether the handle refers to a live entity.
func (w *World) Alive(id types.EntityID) bool {
	return w.registry.Alive(id)
}

// Len returns the number of live entities.
func (w *World) Len() int {
	return w.registry.Len()
}

// Each calls fn for every live entity in slot order. Returning false stops
// the walk.
func (w *World) Each(fn func(types.EntityID) bool) {
	w.registry.Each(fn)
}

// EntityState is one entity's full component data, as served by the debug
// endpoint.
type EntityState struct {
	ID         types.EntityID             `json:"id"`
	Components map[string]json.RawMessage `json:"components"`
}

// DebugState dumps every live entity with its component values as raw JSON.
func (w *World) DebugState() ([]EntityState, error) {
	acc := make([]EntityState, 0, w.registry.Len())
	var encodeErr error
	w.registry.Each(func(id types.EntityID) bool {
		components := make(map[string]json.RawMessage)
		for _, rec := range w.records {
			bz, ok, err := rec.valueJSON(id)
			if err != nil {
				encodeErr = eris.Wrapf(err, "failed to encode component %q of entity %d", rec.name, uint64(id))
				return false
			}
			if ok {
				components[rec.name] = bz
			}
		}
		acc = append(acc, EntityState{ID: id, Components: components})
		return true
	})
	if encodeErr != nil {
		return nil, encodeErr
	}
	return acc, nil
}

// Shutdown stops the world: the owned worker pool (if any) is drained and
// stopped, and telemetry is flushed. An injected pool is left running. The
// context bounds how long the pool drain may take. Shutdown can only be
// called once, from the Running stage.
func (w *World) Shutdown(ctx context.Context) error {
	if !w.stage.CompareAndSwap(lifecycle.Running, lifecycle.ShuttingDown) {
		return eris.Errorf("world stage is %s, shutdown requires %s", w.stage.Current(), lifecycle.Running)
	}
	w.logger.Info().Msg("Shutting down world")
	if w.ownedPool != nil {
		if err := w.ownedPool.Shutdown(ctx); err != nil {
			return eris.Wrap(err, "failed to shut down worker pool")
		}
	}
	if w.telemetry != nil {
		if err := w.telemetry.Shutdown(); err != nil {
			return eris.Wrap(err, "failed to shut down telemetry")
		}
	}
	w.stage.Store(lifecycle.ShutDown)
	w.logger.Info().Msg("World shut down")
	return nil
}
