package inference

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// TooBusyError signals that the pool queue stayed full past the max wait.
type TooBusyError struct{ Wait time.Duration }

func (e *TooBusyError) Error() string {
	return fmt.Sprintf("too busy: inference queue full for %s", e.Wait)
}

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool {
	var t *TooBusyError
	return errors.As(err, &t)
}

// ErrPoolClosed is returned by Do after Close.
var ErrPoolClosed = errors.New("inference pool closed")

// PoolOptions sizes a Pool.
type PoolOptions struct {
	// Workers is the number of concurrent jobs; minimum 1.
	Workers int
	// QueueDepth is how many admitted jobs may wait for a worker.
	QueueDepth int
	// MaxWait bounds how long Do waits for a queue slot; zero rejects
	// immediately when full.
	MaxWait time.Duration
}

// PoolStats is a point-in-time view of the pool.
type PoolStats struct {
	Workers  int
	Depth    int
	QueueLen int
	Inflight int
}

type job struct {
	ctx  context.Context
	fn   func(context.Context) error
	done chan error
}

// Pool runs jobs on a fixed set of workers. Admission reserves a slot in a
// bounded queue so callers see backpressure instead of unbounded growth.
type Pool struct {
	workers int
	maxWait time.Duration
	slots   chan struct{}
	jobs    chan *job

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	inflight atomic.Int32
}

// NewPool starts the workers.
func NewPool(opts PoolOptions) *Pool {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.QueueDepth < 0 {
		opts.QueueDepth = 0
	}
	capacity := opts.Workers + opts.QueueDepth
	p := &Pool{
		workers: opts.Workers,
		maxWait: opts.MaxWait,
		slots:   make(chan struct{}, capacity),
		jobs:    make(chan *job, capacity),
	}
	p.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go p.worker()
	}
	return p
}

// Do runs fn on a worker and waits for it. It returns a TooBusyError when no
// queue slot frees up within the max wait and ctx.Err() when ctx ends first.
// A job abandoned by its caller still holds its slot until it finishes.
func (p *Pool) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.acquire(ctx); err != nil {
		return err
	}
	j := &job{ctx: ctx, fn: fn, done: make(chan error, 1)}

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		p.release()
		return ErrPoolClosed
	}
	// Never blocks: jobs has room for every slot.
	p.jobs <- j
	p.mu.RUnlock()

	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) acquire(ctx context.Context) error {
	select {
	case p.slots <- struct{}{}:
		poolQueued.Inc()
		return nil
	default:
	}
	if p.maxWait <= 0 {
		poolRejected.Inc()
		return &TooBusyError{Wait: p.maxWait}
	}
	timer := time.NewTimer(p.maxWait)
	defer timer.Stop()
	select {
	case p.slots <- struct{}{}:
		poolQueued.Inc()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		poolRejected.Inc()
		return &TooBusyError{Wait: p.maxWait}
	}
}

func (p *Pool) release() {
	<-p.slots
	poolQueued.Dec()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for j := range p.jobs {
		j.done <- p.run(j)
		p.release()
	}
}

func (p *Pool) run(j *job) (err error) {
	if err := j.ctx.Err(); err != nil {
		return err
	}
	p.inflight.Add(1)
	poolInflight.Inc()
	defer func() {
		p.inflight.Add(-1)
		poolInflight.Dec()
		if rec := recover(); rec != nil {
			err = fmt.Errorf("inference job panic: %v", rec)
		}
	}()
	return j.fn(j.ctx)
}

// Stats reports the pool configuration and load.
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		Workers:  p.workers,
		Depth:    cap(p.slots),
		QueueLen: len(p.slots),
		Inflight: int(p.inflight.Load()),
	}
}

// Close stops accepting jobs and waits for queued jobs to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}
