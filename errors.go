package weft

import (
	"github.com/rotisserie/eris"

	"github.com/loomworks/weft/storage"
)

// Storage-level sentinels live in package storage, where they are detected.
// They are re-exported here so callers match every engine error through one
// import.
var (
	ErrAlreadyPresent = storage.ErrAlreadyPresent
	ErrNotPresent     = storage.ErrNotPresent
	ErrMisuse         = storage.ErrMisuse
)

var (
	// ErrAlreadyRegistered is returned when a component name is registered a
	// second time. The first registration stays intact.
	ErrAlreadyRegistered = eris.New("component type already registered")

	// ErrNotRegistered is returned when an operation names a component type
	// the world has never seen.
	ErrNotRegistered = eris.New("component type not registered")

	// ErrNotFound is returned when an entity handle is stale or unknown.
	ErrNotFound = eris.New("entity not found")

	// ErrSchemaMismatch is returned by Restore when a component struct has
	// changed shape since the snapshot was taken.
	ErrSchemaMismatch = eris.New("component schema mismatch")
)
