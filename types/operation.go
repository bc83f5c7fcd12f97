package types

// Operation selects which half of the Behavior contract a dispatch invokes.
type Operation uint8

const (
	OpUpdate Operation = iota
	OpRender
)

func (op Operation) String() string {
	switch op {
	case OpUpdate:
		return "update"
	case OpRender:
		return "render"
	}
	return "unknown"
}

func (op Operation) Valid() bool {
	return op == OpUpdate || op == OpRender
}
