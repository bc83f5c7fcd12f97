package lifecycle_test

import (
	"testing"

	"github.com/loomworks/weft/assert"
	"github.com/loomworks/weft/lifecycle"
)

func TestManagerTransitions(t *testing.T) {
	m := lifecycle.NewManager(lifecycle.Init)
	assert.Equal(t, m.Current(), lifecycle.Init)

	assert.True(t, m.CompareAndSwap(lifecycle.Init, lifecycle.Running))
	assert.Equal(t, m.Current(), lifecycle.Running)

	// a stale CAS must not clobber the current stage
	assert.False(t, m.CompareAndSwap(lifecycle.Init, lifecycle.ShutDown))
	assert.Equal(t, m.Current(), lifecycle.Running)

	assert.True(t, m.CompareAndSwap(lifecycle.Running, lifecycle.ShuttingDown))
	m.Store(lifecycle.ShutDown)
	assert.Equal(t, m.Current(), lifecycle.ShutDown)
}
