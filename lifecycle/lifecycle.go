// Package lifecycle provides the stage machine the worker pool and the debug
// server use to serialize their startup and shutdown transitions.
package lifecycle

import (
	"sync/atomic"
)

type Stage string

const (
	Init         Stage = "Init"         // constructed, not serving work yet
	Running      Stage = "Running"      // accepting work
	ShuttingDown Stage = "ShuttingDown" // draining; no new work accepted
	ShutDown     Stage = "ShutDown"     // fully stopped
)

type Manager struct {
	current *atomic.Value
}

func NewManager(initial Stage) *Manager {
	m := &Manager{
		current: &atomic.Value{},
	}
	m.Store(initial)
	return m
}

func (m *Manager) CompareAndSwap(oldStage, newStage Stage) (swapped bool) {
	return m.current.CompareAndSwap(oldStage, newStage)
}

func (m *Manager) Current() Stage {
	return m.current.Load().(Stage)
}

func (m *Manager) Store(val Stage) {
	m.current.Store(val)
}
