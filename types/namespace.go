package types

import (
	"regexp"

	"github.com/rotisserie/eris"
)

var (
	regexAlphanumeric = regexp.MustCompile(`^[a-zA-Z0-9\-_]+$`)
)

// Namespace is a unique identifier for a world. It prefixes the world's
// snapshot keys and tags its logs and metrics, so two worlds sharing a store
// or an agent never collide.
type Namespace string

func (n Namespace) String() string {
	return string(n)
}

// Validate validates that the namespace is alphanumeric, - (hyphen) or _ (underscore).
func (n Namespace) Validate() error {
	if !regexAlphanumeric.MatchString(n.String()) {
		return eris.Errorf("invalid namespace %q, must be alphanumeric, - or _", n.String())
	}
	return nil
}
