// Package log provides structured logging helpers for world internals. It
// wraps zerolog so worlds, storages, and the dispatcher all emit events with
// a consistent shape.
package log

import (
	"os"
	"sort"

	"github.com/rs/zerolog"
	"github.com/rotisserie/eris"

	"github.com/loomworks/weft/types"
)

// Loggable is the slice of a world the log helpers need. Keeping it an
// interface avoids an import cycle between this package and the world.
type Loggable interface {
	GetRegisteredComponents() []types.ComponentInfo
	EntityCount() int
}

// NewLogger builds the root logger for a world. The level string follows
// zerolog's names ("debug", "info", ...). When pretty is set, output goes
// through a console writer on stderr instead of raw JSON.
func NewLogger(level string, pretty bool) (zerolog.Logger, error) {
	zerologLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Logger{}, eris.Wrapf(err, "log level %q is invalid", level)
	}
	logger := zerolog.New(os.Stdout).Level(zerologLevel).With().Timestamp().Logger()
	if pretty {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return logger, nil
}

func loadComponentIntoArrayLogger(
	component types.ComponentInfo,
	arrayLogger *zerolog.Array,
) *zerolog.Array {
	dictLogger := zerolog.Dict()
	dictLogger = dictLogger.Int("component_id", int(component.ID))
	dictLogger = dictLogger.Str("component_name", component.Name)
	dictLogger = dictLogger.Int("entities", component.Entities)
	return arrayLogger.Dict(dictLogger)
}

func loadComponentsToEvent(zeroLoggerEvent *zerolog.Event, target Loggable) *zerolog.Event {
	components := target.GetRegisteredComponents()
	sort.Slice(components, func(i, j int) bool {
		return components[i].ID < components[j].ID
	})
	zeroLoggerEvent.Int("total_components", len(components))
	arrayLogger := zerolog.Arr()
	for _, _component := range components {
		arrayLogger = loadComponentIntoArrayLogger(_component, arrayLogger)
	}
	return zeroLoggerEvent.Array("components", arrayLogger)
}

func loadEntityIntoEvent(zeroLoggerEvent *zerolog.Event, entityID types.EntityID) *zerolog.Event {
	zeroLoggerEvent.Uint64("entity_id", uint64(entityID))
	zeroLoggerEvent.Uint32("entity_index", entityID.Index())
	return zeroLoggerEvent.Uint32("entity_generation", entityID.Generation())
}

// Components logs all component storages registered with the target.
func Components(logger *zerolog.Logger, target Loggable, level zerolog.Level) {
	zeroLoggerEvent := logger.WithLevel(level)
	zeroLoggerEvent = loadComponentsToEvent(zeroLoggerEvent, target)
	zeroLoggerEvent.Send()
}

// Entity logs the identity of a single entity.
func Entity(logger *zerolog.Logger, level zerolog.Level, entityID types.EntityID) {
	zeroLoggerEvent := logger.WithLevel(level)
	loadEntityIntoEvent(zeroLoggerEvent, entityID).Send()
}

// World logs everything about the world (components and live entities).
func World(logger *zerolog.Logger, target Loggable, level zerolog.Level) {
	zeroLoggerEvent := logger.WithLevel(level)
	zeroLoggerEvent = loadComponentsToEvent(zeroLoggerEvent, target)
	zeroLoggerEvent = zeroLoggerEvent.Int("total_entities", target.EntityCount())
	zeroLoggerEvent.Send()
}

// CreateWorldLogger creates a sub logger tagged with a world's namespace and
// instance id. Every event a world emits carries both.
func CreateWorldLogger(logger *zerolog.Logger, namespace string, instance string) *zerolog.Logger {
	newLogger := logger.With().
		Str("namespace", namespace).
		Str("instance", instance).
		Logger()
	return &newLogger
}

// CreateDispatchLogger creates a sub logger scoped to one dispatch pass over a
// component storage.
func CreateDispatchLogger(logger *zerolog.Logger, componentName string, op types.Operation) *zerolog.Logger {
	newLogger := logger.With().
		Str("component", componentName).
		Str("operation", op.String()).
		Logger()
	return &newLogger
}
