package types

import "math"

// EntityID identifies a live entity. The low 32 bits hold a slot index and
// the high 32 bits hold that slot's generation; destroying an entity bumps
// the generation, so a recycled slot never matches a stale handle.
type EntityID uint64

// Nil is the sentinel for "no entity". No registry ever issues it.
const Nil EntityID = math.MaxUint64

func NewEntityID(index, generation uint32) EntityID {
	return EntityID(uint64(generation)<<32 | uint64(index))
}

func (id EntityID) Index() uint32 { return uint32(id) }

func (id EntityID) Generation() uint32 { return uint32(id >> 32) }
