package types

import (
	"github.com/invopop/jsonschema"
	"github.com/rotisserie/eris"
	"github.com/wI2L/jsondiff"
)

// ComponentID is the dense identifier a world assigns to a component type at
// registration. It is stable for the lifetime of the world, not across runs.
type ComponentID int

// Component is the interface a user type implements to become storable. The
// name keys registration, snapshots, and the debug surface; it must be unique
// within a world.
type Component interface {
	// Name returns the name of the component.
	Name() string
}

// Behavior is the per-element contract the dispatcher invokes. Update mutates
// the receiver in place and must not touch other entities' state without
// external synchronization. Render is logically non-mutating; it may append
// commands to a thread-safe command buffer.
type Behavior interface {
	Update(dt float64)
	Render()
}

// BehaviorPtr constrains a component's pointer type, so dispatch can write
// updates through the storage's dense array. Implement Behavior on the
// pointer receiver and registration infers the rest.
type BehaviorPtr[T any] interface {
	*T
	Behavior
}

// ComponentInfo is a point-in-time description of one registered component
// storage, used by logging and the debug surface.
type ComponentInfo struct {
	ID       ComponentID `json:"id"`
	Name     string      `json:"name"`
	Entities int         `json:"entities"`
}

// SerializeComponentSchema reflects the JSON schema of a component type. The
// schema is persisted alongside snapshots so a restore can detect that a
// component struct changed shape since the snapshot was taken.
func SerializeComponentSchema(component Component) ([]byte, error) {
	componentSchema := jsonschema.Reflect(component)
	schema, err := componentSchema.MarshalJSON()
	if err != nil {
		return nil, eris.Wrap(err, "component must be json serializable")
	}
	return schema, nil
}

// IsSchemaValid reports whether two serialized schemas describe the same shape.
func IsSchemaValid(jsonSchemaBytes1 []byte, jsonSchemaBytes2 []byte) (bool, error) {
	patch, err := jsondiff.CompareJSON(jsonSchemaBytes1, jsonSchemaBytes2)
	if err != nil {
		return false, eris.Wrap(err, "")
	}
	return patch.String() == "", nil
}
