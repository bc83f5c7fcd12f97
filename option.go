package weft

import (
	"github.com/rs/zerolog"

	"github.com/loomworks/weft/pool"
)

// WorldOption is a function that configures a world during NewWorld.
type WorldOption func(*World)

// WithPool injects the thread pool chunks are dispatched to. The world does
// not own an injected pool: Shutdown leaves it running, and the pool may be
// shared between worlds.
func WithPool(p pool.Submitter) WorldOption {
	return func(w *World) {
		w.pool = p
	}
}

// WithLogger replaces the logger built from WorldConfig.
func WithLogger(logger zerolog.Logger) WorldOption {
	return func(w *World) {
		w.baseLogger = &logger
	}
}

// WithNamespace overrides the WEFT_NAMESPACE environment variable.
func WithNamespace(namespace string) WorldOption {
	return func(w *World) {
		w.config.Namespace = namespace
	}
}
