package storage_test

import (
	"math/rand"
	"testing"

	"github.com/loomworks/weft/assert"
	"github.com/loomworks/weft/storage"
	"github.com/loomworks/weft/types"
)

type health struct {
	Value int
}

func id(n uint32) types.EntityID { return types.NewEntityID(n, 0) }

// checkInvariant verifies the dense/sparse contract: parallel arrays have
// equal length and every dense entity's sparse entry points back at exactly
// its own slot.
func checkInvariant(t *testing.T, s *storage.Storage[health]) {
	t.Helper()
	ids, vals := s.Dense()
	assert.Equal(t, len(ids), len(vals))
	assert.Equal(t, s.Len(), len(ids))
	for i := range ids {
		got, ok := s.Get(ids[i])
		assert.True(t, ok, "entity %d missing from sparse index", ids[i])
		assert.Equal(t, *got, vals[i], "sparse entry for entity %d points at the wrong slot", ids[i])
	}
}

func TestInsertAndGet(t *testing.T) {
	s := storage.New[health]()
	assert.NilError(t, s.Insert(id(1), health{Value: 10}))
	assert.NilError(t, s.Insert(id(2), health{Value: 20}))

	got, ok := s.Get(id(1))
	assert.True(t, ok)
	assert.Equal(t, got.Value, 10)
	assert.True(t, s.Has(id(2)))
	assert.False(t, s.Has(id(3)))
	assert.Equal(t, s.Len(), 2)
	checkInvariant(t, s)
}

func TestInsertDuplicateFails(t *testing.T) {
	s := storage.New[health]()
	assert.NilError(t, s.Insert(id(7), health{Value: 1}))
	err := s.Insert(id(7), health{Value: 2})
	assert.ErrorIs(t, err, storage.ErrAlreadyPresent)

	// the original value must be untouched
	got, ok := s.Get(id(7))
	assert.True(t, ok)
	assert.Equal(t, got.Value, 1)
	checkInvariant(t, s)
}

func TestReplace(t *testing.T) {
	s := storage.New[health]()
	assert.ErrorIs(t, s.Replace(id(1), health{Value: 5}), storage.ErrNotPresent)

	assert.NilError(t, s.Insert(id(1), health{Value: 5}))
	assert.NilError(t, s.Replace(id(1), health{Value: 6}))
	got, _ := s.Get(id(1))
	assert.Equal(t, got.Value, 6)
	assert.Equal(t, s.Len(), 1)
}

func TestRemoveSwapsLastIntoSlot(t *testing.T) {
	s := storage.New[health]()
	assert.NilError(t, s.Insert(id(1), health{Value: 1}))
	assert.NilError(t, s.Insert(id(2), health{Value: 2}))
	assert.NilError(t, s.Insert(id(3), health{Value: 3}))

	removed, err := s.Remove(id(1))
	assert.NilError(t, err)
	assert.Equal(t, removed.Value, 1)

	// the last element relocates into the vacated slot and stays reachable
	ids, vals := s.Dense()
	assert.Equal(t, len(ids), 2)
	assert.Equal(t, ids[0], id(3))
	assert.Equal(t, vals[0].Value, 3)
	got, ok := s.Get(id(3))
	assert.True(t, ok)
	assert.Equal(t, got.Value, 3)
	checkInvariant(t, s)
}

func TestRemoveAbsentFails(t *testing.T) {
	s := storage.New[health]()
	_, err := s.Remove(id(9))
	assert.ErrorIs(t, err, storage.ErrNotPresent)
}

func TestInsertThenRemoveLeavesNothing(t *testing.T) {
	s := storage.New[health]()
	assert.NilError(t, s.Insert(id(4), health{Value: 40}))
	before := s.Len()

	_, err := s.Remove(id(4))
	assert.NilError(t, err)

	_, ok := s.Get(id(4))
	assert.False(t, ok)
	assert.Equal(t, s.Len(), before-1)
	checkInvariant(t, s)
}

func TestInvariantUnderRandomChurn(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	s := storage.New[health]()
	ref := map[types.EntityID]int{}

	for i := 0; i < 1000; i++ {
		e := id(uint32(rng.Intn(64)))
		if _, ok := ref[e]; ok {
			removed, err := s.Remove(e)
			assert.NilError(t, err)
			assert.Equal(t, removed.Value, ref[e])
			delete(ref, e)
		} else {
			assert.NilError(t, s.Insert(e, health{Value: i}))
			ref[e] = i
		}
		if i%50 == 0 {
			checkInvariant(t, s)
		}
	}

	checkInvariant(t, s)
	assert.Equal(t, s.Len(), len(ref))
	for e, v := range ref {
		got, ok := s.Get(e)
		assert.True(t, ok)
		assert.Equal(t, got.Value, v)
	}
}

func TestEachVisitsDenseOrder(t *testing.T) {
	s := storage.New[health]()
	for i := uint32(0); i < 5; i++ {
		assert.NilError(t, s.Insert(id(i), health{Value: int(i)}))
	}

	var visited []types.EntityID
	s.Each(func(e types.EntityID, v *health) bool {
		visited = append(visited, e)
		v.Value++
		return true
	})
	ids, _ := s.Dense()
	assert.DeepEqual(t, visited, ids)

	// in-place mutation through the callback pointer sticks
	got, _ := s.Get(id(0))
	assert.Equal(t, got.Value, 1)
}

func TestEachStopsEarly(t *testing.T) {
	s := storage.New[health]()
	for i := uint32(0); i < 10; i++ {
		assert.NilError(t, s.Insert(id(i), health{Value: int(i)}))
	}
	count := 0
	s.Each(func(types.EntityID, *health) bool {
		count++
		return count < 3
	})
	assert.Equal(t, count, 3)
}

func TestStructuralChangeDuringIterationFails(t *testing.T) {
	s := storage.New[health]()
	for i := uint32(0); i < 3; i++ {
		assert.NilError(t, s.Insert(id(i), health{Value: int(i)}))
	}

	s.Each(func(types.EntityID, *health) bool {
		assert.ErrorIs(t, s.Insert(id(99), health{}), storage.ErrMisuse)
		_, err := s.Remove(id(0))
		assert.ErrorIs(t, err, storage.ErrMisuse)
		assert.ErrorIs(t, s.Clear(), storage.ErrMisuse)
		return false
	})

	// state intact, and mutations work again once iteration is done
	assert.Equal(t, s.Len(), 3)
	checkInvariant(t, s)
	assert.NilError(t, s.Insert(id(99), health{}))
}

func TestGuardSpansExplicitWindow(t *testing.T) {
	s := storage.New[health]()
	assert.NilError(t, s.Insert(id(1), health{}))

	s.BeginIteration()
	assert.ErrorIs(t, s.Insert(id(2), health{}), storage.ErrMisuse)
	s.EndIteration()
	assert.NilError(t, s.Insert(id(2), health{}))
}

func TestLoadReplacesContents(t *testing.T) {
	s := storage.New[health]()
	assert.NilError(t, s.Insert(id(50), health{Value: -1}))

	ids := []types.EntityID{id(1), id(2), id(3)}
	vals := []health{{Value: 1}, {Value: 2}, {Value: 3}}
	assert.NilError(t, s.Load(ids, vals))

	assert.Equal(t, s.Len(), 3)
	assert.False(t, s.Has(id(50)))
	got, ok := s.Get(id(2))
	assert.True(t, ok)
	assert.Equal(t, got.Value, 2)
	checkInvariant(t, s)

	// the storage must not alias the caller's slices
	vals[0].Value = 100
	got, _ = s.Get(id(1))
	assert.Equal(t, got.Value, 1)
}

func TestLoadRejectsBadState(t *testing.T) {
	s := storage.New[health]()
	err := s.Load([]types.EntityID{id(1)}, nil)
	assert.ErrorContains(t, err, "mismatched state")

	err = s.Load([]types.EntityID{id(1), id(1)}, []health{{}, {}})
	assert.ErrorContains(t, err, "duplicate entity")
}

func TestClear(t *testing.T) {
	s := storage.New[health]()
	assert.NilError(t, s.Insert(id(1), health{}))
	assert.NilError(t, s.Clear())
	assert.Equal(t, s.Len(), 0)
	assert.False(t, s.Has(id(1)))
}
