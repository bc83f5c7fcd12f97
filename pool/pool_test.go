package pool_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/loomworks/weft/assert"
	"github.com/loomworks/weft/pool"
)

func wait(t *testing.T, h pool.Handle) {
	t.Helper()
	select {
	case <-h.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for job")
	}
}

func TestSubmitRunsJob(t *testing.T) {
	p := pool.NewWorkerPool(pool.WithWorkers(2))
	defer func() {
		assert.NilError(t, p.Shutdown(context.Background()))
	}()

	var ran atomic.Bool
	h, err := p.Submit(func(ctx any) {
		assert.Equal(t, ctx.(string), "payload")
		ran.Store(true)
	}, "payload")
	assert.NilError(t, err)

	wait(t, h)
	assert.NilError(t, h.Err())
	assert.True(t, ran.Load())
}

func TestEveryJobRunsExactlyOnce(t *testing.T) {
	p := pool.NewWorkerPool(pool.WithWorkers(4), pool.WithQueueSize(256))
	defer func() {
		assert.NilError(t, p.Shutdown(context.Background()))
	}()

	const jobs = 200
	var count atomic.Int64
	handles := make([]pool.Handle, 0, jobs)
	for i := 0; i < jobs; i++ {
		h, err := p.Submit(func(any) {
			count.Add(1)
		}, nil)
		assert.NilError(t, err)
		handles = append(handles, h)
	}
	for _, h := range handles {
		wait(t, h)
	}
	assert.Equal(t, count.Load(), int64(jobs))
}

func TestSubmitFailsWhenQueueIsFull(t *testing.T) {
	p := pool.NewWorkerPool(pool.WithWorkers(1), pool.WithQueueSize(1))

	gate := make(chan struct{})
	started := make(chan struct{})
	blocker, err := p.Submit(func(any) {
		close(started)
		<-gate
	}, nil)
	assert.NilError(t, err)
	<-started // the worker is now occupied

	queued, err := p.Submit(func(any) {}, nil)
	assert.NilError(t, err)

	_, err = p.Submit(func(any) {}, nil)
	assert.ErrorIs(t, err, pool.ErrQueueFull)

	close(gate)
	wait(t, blocker)
	wait(t, queued)
	assert.NilError(t, p.Shutdown(context.Background()))
}

func TestShutdownDrainsInFlightJobs(t *testing.T) {
	p := pool.NewWorkerPool(pool.WithWorkers(1))

	var finished atomic.Bool
	_, err := p.Submit(func(any) {
		time.Sleep(20 * time.Millisecond)
		finished.Store(true)
	}, nil)
	assert.NilError(t, err)

	assert.NilError(t, p.Shutdown(context.Background()))
	assert.True(t, finished.Load())
}

func TestSubmitAfterShutdownFails(t *testing.T) {
	p := pool.NewWorkerPool(pool.WithWorkers(1))
	assert.NilError(t, p.Shutdown(context.Background()))

	_, err := p.Submit(func(any) {}, nil)
	assert.ErrorIs(t, err, pool.ErrNotRunning)
}

func TestShutdownTwiceFails(t *testing.T) {
	p := pool.NewWorkerPool(pool.WithWorkers(1))
	assert.NilError(t, p.Shutdown(context.Background()))
	assert.ErrorIs(t, p.Shutdown(context.Background()), pool.ErrNotRunning)
}

func TestShutdownHonorsContext(t *testing.T) {
	p := pool.NewWorkerPool(pool.WithWorkers(1))

	gate := make(chan struct{})
	started := make(chan struct{})
	h, err := p.Submit(func(any) {
		close(started)
		<-gate
	}, nil)
	assert.NilError(t, err)
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err = p.Shutdown(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(gate)
	wait(t, h)
}

func TestPanicSurfacesThroughHandle(t *testing.T) {
	p := pool.NewWorkerPool(pool.WithWorkers(1))
	defer func() {
		assert.NilError(t, p.Shutdown(context.Background()))
	}()

	h, err := p.Submit(func(any) {
		panic("boom")
	}, nil)
	assert.NilError(t, err)
	wait(t, h)
	assert.ErrorContains(t, h.Err(), "job panicked")

	// the pool survives a panicking job
	h, err = p.Submit(func(any) {}, nil)
	assert.NilError(t, err)
	wait(t, h)
	assert.NilError(t, h.Err())
}
