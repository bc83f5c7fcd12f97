// Package pool provides the job submission surface the chunk dispatcher
// consumes, plus a default fixed-size worker pool. The dispatcher never
// assumes a concrete pool: any Submitter whose accepted jobs each run exactly
// once, eventually, is compatible.
package pool

import (
	"context"
	"runtime"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/loomworks/weft/lifecycle"
)

var (
	// ErrQueueFull is returned by Submit when the job queue is at capacity.
	ErrQueueFull = eris.New("job queue is full")
	// ErrNotRunning is returned when submitting to or shutting down a pool
	// that is not in the Running stage.
	ErrNotRunning = eris.New("pool is not running")
)

// EntryPoint is the type-erased function a job runs. The pool passes ctx back
// to it untouched.
type EntryPoint func(ctx any)

// Handle tracks one submitted job. Done closes when the job has finished.
// Err reports a panic recovered from the job and is meaningful only after
// Done closes.
type Handle interface {
	Done() <-chan struct{}
	Err() error
}

// Submitter accepts jobs for eventual execution. Every accepted job runs
// exactly once.
type Submitter interface {
	Submit(entry EntryPoint, ctx any) (Handle, error)
}

type job struct {
	entry EntryPoint
	ctx   any
	done  chan struct{}
	err   error
}

func (j *job) Done() <-chan struct{} { return j.done }

// Err is valid once Done has closed; the close publishes the write.
func (j *job) Err() error { return j.err }

const DefaultQueueSize = 1024

type Option func(*WorkerPool)

func WithWorkers(n int) Option {
	return func(p *WorkerPool) {
		p.workers = n
	}
}

func WithQueueSize(n int) Option {
	return func(p *WorkerPool) {
		p.queueSize = n
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(p *WorkerPool) {
		p.logger = logger
	}
}

// WorkerPool is a fixed-size FIFO pool. Submit never blocks the dispatching
// thread: a full queue is reported to the caller instead of stalling it.
// Panics in job code are recovered, logged, and surfaced through the job's
// Handle; the pool itself keeps running.
type WorkerPool struct {
	jobs      chan *job
	stage     *lifecycle.Manager
	wg        sync.WaitGroup
	mu        sync.RWMutex // serializes intake close against in-flight submits
	logger    zerolog.Logger
	workers   int
	queueSize int
}

var _ Submitter = &WorkerPool{}

// NewWorkerPool starts a pool with the given options. Workers default to
// runtime.NumCPU and the queue to DefaultQueueSize.
func NewWorkerPool(opts ...Option) *WorkerPool {
	p := &WorkerPool{
		stage:     lifecycle.NewManager(lifecycle.Init),
		logger:    zerolog.Nop(),
		workers:   runtime.NumCPU(),
		queueSize: DefaultQueueSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.workers < 1 {
		p.workers = 1
	}
	if p.queueSize < 1 {
		p.queueSize = 1
	}
	p.jobs = make(chan *job, p.queueSize)
	p.wg.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		go p.worker()
	}
	p.stage.Store(lifecycle.Running)
	p.logger.Debug().Int("workers", p.workers).Int("queue_size", p.queueSize).Msg("worker pool started")
	return p
}

func (p *WorkerPool) Workers() int {
	return p.workers
}

// Submit enqueues one job and returns its handle. It fails with ErrNotRunning
// once shutdown has begun and with ErrQueueFull when the queue is at
// capacity; it never blocks.
func (p *WorkerPool) Submit(entry EntryPoint, ctx any) (Handle, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stage.Current() != lifecycle.Running {
		return nil, eris.Wrap(ErrNotRunning, "submit")
	}
	j := &job{
		entry: entry,
		ctx:   ctx,
		done:  make(chan struct{}),
	}
	select {
	case p.jobs <- j:
		return j, nil
	default:
		return nil, eris.Wrapf(ErrQueueFull, "queue size %d", p.queueSize)
	}
}

// Shutdown stops intake, drains queued and in-flight jobs, and waits for the
// workers to exit. The context bounds the wait. Only the first call performs
// the shutdown; later calls fail with ErrNotRunning.
func (p *WorkerPool) Shutdown(ctx context.Context) error {
	if !p.stage.CompareAndSwap(lifecycle.Running, lifecycle.ShuttingDown) {
		return eris.Wrap(ErrNotRunning, "shutdown")
	}
	p.mu.Lock()
	close(p.jobs)
	p.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(drained)
	}()
	select {
	case <-drained:
		p.stage.Store(lifecycle.ShutDown)
		p.logger.Debug().Msg("worker pool shut down")
		return nil
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "waiting for workers to drain")
	}
}

func (p *WorkerPool) worker() {
	defer p.wg.Done()
	for j := range p.jobs {
		p.run(j)
	}
}

func (p *WorkerPool) run(j *job) {
	defer close(j.done)
	defer func() {
		if r := recover(); r != nil {
			j.err = eris.Errorf("job panicked: %v", r)
			p.logger.Error().Interface("panic", r).Msg("recovered panic in pool job")
		}
	}()
	j.entry(j.ctx)
}
