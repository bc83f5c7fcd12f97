// Package snapshot provides the key-value stores a world persists itself
// into. The world writes opaque byte blobs keyed by namespace; the stores
// never interpret them.
package snapshot

import (
	"context"

	"github.com/rotisserie/eris"
)

// ErrKeyNotFound is returned by GetBytes when the key has never been set.
// Restore paths treat it as "no snapshot here" rather than a failure.
var ErrKeyNotFound = eris.New("key not found")

// PrimitiveStorage is the interface for all stores a world can snapshot into.
type PrimitiveStorage[K comparable] interface {
	GetBytes(ctx context.Context, key K) ([]byte, error)
	Set(ctx context.Context, key K, value any) error
	Delete(ctx context.Context, key K) error
	Keys(ctx context.Context) ([]K, error)
	Close(ctx context.Context) error
}
