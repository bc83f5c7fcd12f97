package weft

import (
	"errors"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/loomworks/weft/statsd"
	"github.com/loomworks/weft/types"
)

type deferredOp struct {
	name  string
	apply func(*World) error
}

// OpQueue collects structural operations while they are forbidden, so update
// bodies and Each callbacks can schedule inserts, removes, creates and
// destroys for after the iteration window closes.
//
// The Defer functions are safe to call concurrently, including from parallel
// update bodies. Apply must run outside any iteration window.
type OpQueue struct {
	mux *sync.Mutex
	ops []deferredOp
}

func NewOpQueue() *OpQueue {
	return &OpQueue{
		mux: &sync.Mutex{},
	}
}

// Len returns the number of operations waiting to be applied.
func (q *OpQueue) Len() int {
	q.mux.Lock()
	defer q.mux.Unlock()
	return len(q.ops)
}

func (q *OpQueue) push(name string, apply func(*World) error) {
	q.mux.Lock()
	defer q.mux.Unlock()
	q.ops = append(q.ops, deferredOp{name: name, apply: apply})
}

// Apply drains the queue and applies every operation in enqueue order. An
// operation failing does not stop the drain; the failures come back as one
// aggregate error naming each failed op. The queue is empty afterwards either
// way.
func (q *OpQueue) Apply(w *World) error {
	q.mux.Lock()
	ops := q.ops
	q.ops = nil
	q.mux.Unlock()

	if len(ops) == 0 {
		return nil
	}

	start := time.Now()
	var errs []error
	for _, op := range ops {
		if err := op.apply(w); err != nil {
			errs = append(errs, eris.Wrapf(err, "deferred %s", op.name))
		}
	}
	statsd.EmitApplyStat(start, len(ops))
	w.logger.Debug().
		Int("ops", len(ops)).
		Int("failed", len(errs)).
		Msg("Applied deferred operations")

	if len(errs) > 0 {
		return eris.Wrapf(errors.Join(errs...), "%d of %d deferred operations failed", len(errs), len(ops))
	}
	return nil
}

// DeferInsert schedules Insert[T](w, id, comp) for the next Apply.
func DeferInsert[T types.Component](q *OpQueue, id types.EntityID, comp T) {
	var t T
	q.push("insert "+t.Name(), func(w *World) error {
		return Insert[T](w, id, comp)
	})
}

// DeferReplace schedules Replace[T](w, id, comp) for the next Apply.
func DeferReplace[T types.Component](q *OpQueue, id types.EntityID, comp T) {
	var t T
	q.push("replace "+t.Name(), func(w *World) error {
		return Replace[T](w, id, comp)
	})
}

// DeferRemove schedules Remove[T](w, id) for the next Apply. The removed
// value is discarded.
func DeferRemove[T types.Component](q *OpQueue, id types.EntityID) {
	var t T
	q.push("remove "+t.Name(), func(w *World) error {
		_, err := Remove[T](w, id)
		return err
	})
}

// DeferCreate schedules the creation of a fresh entity. When fn is non-nil
// it runs right after the id is issued, so the new entity's components can be
// inserted in the same deferred step.
func DeferCreate(q *OpQueue, fn func(w *World, id types.EntityID) error) {
	q.push("create", func(w *World) error {
		id := w.Create()
		if fn == nil {
			return nil
		}
		return fn(w, id)
	})
}

// DeferDestroy schedules w.Destroy(id) for the next Apply.
func DeferDestroy(q *OpQueue, id types.EntityID) {
	q.push("destroy", func(w *World) error {
		return w.Destroy(id)
	})
}
