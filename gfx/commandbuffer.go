// Package gfx defines the thread-safe command buffer that render-phase
// component work appends to. The engine core never interprets commands; the
// rendering subsystem drains the buffer once the render pass barrier clears.
package gfx

import (
	"sync"
)

type CommandKind uint8

const (
	CmdDraw CommandKind = iota
	CmdUpload
)

// Command is one unit of render work. Data is owned by the producer, treated
// as opaque by the engine, and interpreted by the rendering subsystem at
// drain time.
type Command struct {
	Kind CommandKind
	Data any
}

type Appender interface {
	Append(...Command)
}

type Drainer interface {
	Drain() []Command
}

var (
	_ Appender = &CommandBuffer{}
	_ Drainer  = &CommandBuffer{}
)

// CommandBuffer accumulates commands from concurrent render workers. Append
// may be called from any goroutine; Drain hands the accumulated batch to the
// caller and resets the buffer.
type CommandBuffer struct {
	queue []Command
	lock  sync.RWMutex
}

// NewCommandBuffer returns a new CommandBuffer. initialCapacity is the cap
// space to give the backing slice up front.
func NewCommandBuffer(initialCapacity int) *CommandBuffer {
	return &CommandBuffer{
		queue: make([]Command, 0, initialCapacity),
	}
}

func (b *CommandBuffer) Append(cmds ...Command) {
	b.lock.Lock()
	b.queue = append(b.queue, cmds...)
	b.lock.Unlock()
}

func (b *CommandBuffer) Drain() []Command {
	b.lock.Lock()
	queue := b.queue
	b.queue = make([]Command, 0, cap(queue))
	b.lock.Unlock()
	return queue
}

func (b *CommandBuffer) Len() int {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return len(b.queue)
}
