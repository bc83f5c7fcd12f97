package weft

import (
	"github.com/rotisserie/eris"

	"github.com/loomworks/weft/types"
)

// Registry hands out entity ids and tracks which are alive. Ids are
// generational: a destroyed slot is recycled by Create, but the recycled id
// carries a bumped generation so handles to the destroyed entity stay dead
// forever.
//
// The registry is not synchronized. Structural calls (Create, Destroy, load)
// are single-threaded by the world's concurrency contract.
type Registry struct {
	generations []uint32
	alive       []bool
	free        []uint32
	liveCount   int
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Create returns a fresh entity id, reusing a destroyed slot when one is
// available.
func (r *Registry) Create() types.EntityID {
	if n := len(r.free); n > 0 {
		idx := r.free[n-1]
		r.free = r.free[:n-1]
		r.alive[idx] = true
		r.liveCount++
		return types.NewEntityID(idx, r.generations[idx])
	}
	idx := uint32(len(r.generations))
	r.generations = append(r.generations, 0)
	r.alive = append(r.alive, true)
	r.liveCount++
	return types.NewEntityID(idx, 0)
}

// Destroy frees the entity's slot for reuse. The slot's generation is bumped
// here, so the id held by the caller (and any copies of it) is stale from now
// on. Returns ErrNotFound when the handle is already stale or was never
// issued.
func (r *Registry) Destroy(id types.EntityID) error {
	if !r.Alive(id) {
		return eris.Wrapf(ErrNotFound, "entity %d", uint64(id))
	}
	idx := id.Index()
	r.alive[idx] = false
	r.generations[idx]++
	r.free = append(r.free, idx)
	r.liveCount--
	return nil
}

// Alive reports whether the handle refers to a live entity.
func (r *Registry) Alive(id types.EntityID) bool {
	idx := int(id.Index())
	if idx >= len(r.generations) {
		return false
	}
	return r.alive[idx] && r.generations[idx] == id.Generation()
}

// Len returns the number of live entities.
func (r *Registry) Len() int {
	return r.liveCount
}

// Each calls fn for every live entity in slot order. Returning false stops
// the walk.
func (r *Registry) Each(fn func(types.EntityID) bool) {
	for idx, isAlive := range r.alive {
		if !isAlive {
			continue
		}
		if !fn(types.NewEntityID(uint32(idx), r.generations[idx])) {
			return
		}
	}
}

type registryState struct {
	Generations []uint32 `json:"generations"`
	Alive       []bool   `json:"alive"`
	Free        []uint32 `json:"free"`
}

func (r *Registry) state() registryState {
	return registryState{
		Generations: r.generations,
		Alive:       r.alive,
		Free:        r.free,
	}
}

func (r *Registry) load(s registryState) error {
	if len(s.Generations) != len(s.Alive) {
		return eris.Errorf(
			"registry state is corrupt: %d generations but %d liveness flags",
			len(s.Generations), len(s.Alive),
		)
	}
	for _, idx := range s.Free {
		if int(idx) >= len(s.Generations) {
			return eris.Errorf("registry state is corrupt: free slot %d out of range", idx)
		}
		if s.Alive[idx] {
			return eris.Errorf("registry state is corrupt: free slot %d is marked alive", idx)
		}
	}

	generations := make([]uint32, len(s.Generations))
	copy(generations, s.Generations)
	alive := make([]bool, len(s.Alive))
	copy(alive, s.Alive)
	free := make([]uint32, len(s.Free))
	copy(free, s.Free)

	liveCount := 0
	for _, isAlive := range alive {
		if isAlive {
			liveCount++
		}
	}

	r.generations = generations
	r.alive = alive
	r.free = free
	r.liveCount = liveCount
	return nil
}
