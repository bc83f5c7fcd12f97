package weft

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.opentelemetry.io/otel/codes"
	ddotel "gopkg.in/DataDog/dd-trace-go.v1/ddtrace/opentelemetry"
	ddtracer "gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/loomworks/weft/lifecycle"
	"github.com/loomworks/weft/log"
	"github.com/loomworks/weft/pool"
	"github.com/loomworks/weft/statsd"
	"github.com/loomworks/weft/types"
)

// chunkContext is the payload of one dispatched chunk: a sub-slice of the
// storage's dense value array (aliased, never copied), the frame delta, the
// operation, and the typed runners recovered by the entry point. Built
// immediately before submission and unreferenced after the barrier.
type chunkContext[T any] struct {
	vals []T
	dt   float64
	op   types.Operation

	runUpdate func(vals []T, dt float64)
	runRender func(vals []T)
}

// chunkEntry is the type-erased entry point workers run. One instantiation
// per component type recovers the concrete chunk and loops over its elements
// in dense order.
func chunkEntry[T any](ctx any) {
	c := ctx.(*chunkContext[T])
	switch c.op {
	case types.OpUpdate:
		c.runUpdate(c.vals, c.dt)
	case types.OpRender:
		c.runRender(c.vals)
	}
}

// EachParallel runs the operation over every entity in the view by splitting
// the dense array into chunks of at most chunkSize elements and submitting
// each chunk as one job to the world's pool. The call is synchronous: it
// returns only after every submitted chunk has completed.
//
// Chunks execute in any order relative to each other; elements within a chunk
// execute in dense order. The storage's iteration guard is held for the whole
// call, so structural changes from update bodies fail with ErrMisuse; defer
// them through an OpQueue instead.
//
// Submission failures and recovered panics from update bodies are collected
// and returned as one aggregate error after the barrier. Once a submission
// fails no further chunks are submitted, but every chunk already submitted
// still runs to completion.
func (v *View[T]) EachParallel(chunkSize int, dt float64, op types.Operation) error {
	w := v.world
	if stage := w.stage.Current(); stage != lifecycle.Running {
		return eris.Wrapf(ErrMisuse, "world stage is %s, dispatch requires %s", stage, lifecycle.Running)
	}
	if chunkSize < 1 {
		return eris.Wrapf(ErrMisuse, "chunk size %d is invalid, must be >= 1", chunkSize)
	}
	if !op.Valid() {
		return eris.Wrapf(ErrMisuse, "unknown operation %d", int(op))
	}

	v.store.BeginIteration()
	defer v.store.EndIteration()

	_, vals := v.store.Dense()
	n := len(vals)
	if n == 0 {
		return nil
	}

	start := time.Now()
	_, span := w.tracer.Start(
		ddotel.ContextWithStartOptions(context.Background(), ddtracer.Measured()),
		"dispatch.run",
	)
	defer span.End()

	chunks := (n + chunkSize - 1) / chunkSize
	handles := make([]pool.Handle, 0, chunks)
	var submitErr error
	unsubmitted := 0
	for i := 0; i < chunks; i++ {
		lo := i * chunkSize
		hi := lo + chunkSize
		if hi > n {
			hi = n
		}
		chunk := &chunkContext[T]{
			vals:      vals[lo:hi],
			dt:        dt,
			op:        op,
			runUpdate: v.runUpdate,
			runRender: v.runRender,
		}
		handle, err := w.pool.Submit(chunkEntry[T], chunk)
		if err != nil {
			submitErr = err
			unsubmitted = chunks - i
			break
		}
		handles = append(handles, handle)
	}

	// The barrier: wait out every submitted chunk, even after a submission
	// failure, so no chunk is left running when the call returns.
	var errs []error
	for _, handle := range handles {
		<-handle.Done()
		if err := handle.Err(); err != nil {
			errs = append(errs, err)
		}
	}
	if submitErr != nil {
		errs = append(errs, eris.Wrapf(submitErr, "failed to submit %d of %d chunks", unsubmitted, chunks))
	}

	statsd.EmitDispatchStat(start, v.rec.name, op)
	logger := log.CreateDispatchLogger(&w.logger, v.rec.name, op)
	logger.Debug().
		Int("entities", n).
		Int("chunks", chunks).
		Int("chunk_size", chunkSize).
		Dur("elapsed", time.Since(start)).
		Msg("Dispatch complete")

	if len(errs) > 0 {
		err := eris.Wrapf(errors.Join(errs...), "dispatch over component %q", v.rec.name)
		span.SetStatus(codes.Error, eris.ToString(err, true))
		span.RecordError(err)
		return err
	}
	return nil
}
