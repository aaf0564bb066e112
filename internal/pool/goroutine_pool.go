// Package pool bounds the gateway's dispatch concurrency: one worker pool
// per wire.Server, sized so a burst of inbound WebSocket frames cannot spawn
// unbounded goroutines alongside the per-connection rate limiter.
package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrPoolClosed is returned by Submit/SubmitWait once Close has run.
	ErrPoolClosed = errors.New("dispatch pool is closed")
	// ErrPoolFull is returned when the dispatch queue has no room, including
	// right after Submit has spawned an extra worker below MaxWorkers.
	ErrPoolFull = errors.New("dispatch pool is saturated")
)

// Job is one dispatched unit of work: a single request's handler
// invocation, run under a worker goroutine rather than its own goroutine.
type Job func(ctx context.Context) error

// GoroutinePool runs Jobs across a bounded set of long-lived worker
// goroutines, spawning workers lazily up to MaxWorkers and retiring idle
// ones past MinWorkers.
type GoroutinePool struct {
	maxWorkers  int
	minWorkers  int
	dispatchQ   chan dispatchJob
	workerCount atomic.Int32
	activeCount atomic.Int32
	closed      atomic.Bool
	wg          sync.WaitGroup

	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	rejected  atomic.Int64

	idleTimeout  time.Duration
	panicHandler func(any)
}

type dispatchJob struct {
	job    Job
	ctx    context.Context
	result chan error
}

// GoroutinePoolConfig configures a GoroutinePool.
type GoroutinePoolConfig struct {
	MaxWorkers   int           `json:"max_workers"`
	MinWorkers   int           `json:"min_workers"`
	QueueSize    int           `json:"queue_size"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
	PanicHandler func(any)     `json:"-"`
}

// DefaultGoroutinePoolConfig returns the gateway's defaults: up to 100
// concurrent dispatches, a queue deep enough to absorb a burst without
// rejecting, and workers that retire after 30s of no inbound traffic (down
// to one kept warm).
func DefaultGoroutinePoolConfig() GoroutinePoolConfig {
	return GoroutinePoolConfig{
		MaxWorkers:  100,
		MinWorkers:  1,
		QueueSize:   256,
		IdleTimeout: 30 * time.Second,
	}
}

// NewGoroutinePool creates a GoroutinePool from config.
func NewGoroutinePool(config GoroutinePoolConfig) *GoroutinePool {
	minWorkers := config.MinWorkers
	if minWorkers < 1 {
		minWorkers = 1
	}
	return &GoroutinePool{
		maxWorkers:   config.MaxWorkers,
		minWorkers:   minWorkers,
		dispatchQ:    make(chan dispatchJob, config.QueueSize),
		idleTimeout:  config.IdleTimeout,
		panicHandler: config.PanicHandler,
	}
}

// Submit enqueues job without waiting for it to run. Returns ErrPoolFull if
// the queue is full; below MaxWorkers it first spawns one more worker and
// retries the enqueue once, without waiting.
func (p *GoroutinePool) Submit(ctx context.Context, job Job) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}
	p.submitted.Add(1)

	dj := dispatchJob{job: job, ctx: ctx, result: make(chan error, 1)}

	select {
	case p.dispatchQ <- dj:
		p.ensureWorker()
		return nil
	default:
		if p.trySpawnWorker() {
			select {
			case p.dispatchQ <- dj:
				return nil
			default:
			}
		}
		p.rejected.Add(1)
		return ErrPoolFull
	}
}

// SubmitWait enqueues job and blocks until it completes or ctx is canceled.
func (p *GoroutinePool) SubmitWait(ctx context.Context, job Job) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}
	p.submitted.Add(1)

	dj := dispatchJob{job: job, ctx: ctx, result: make(chan error, 1)}

	select {
	case p.dispatchQ <- dj:
		p.ensureWorker()
	case <-ctx.Done():
		p.rejected.Add(1)
		return ctx.Err()
	}

	select {
	case err := <-dj.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *GoroutinePool) ensureWorker() {
	if p.workerCount.Load() < int32(p.maxWorkers) {
		p.trySpawnWorker()
	}
}

func (p *GoroutinePool) trySpawnWorker() bool {
	for {
		current := p.workerCount.Load()
		if current >= int32(p.maxWorkers) {
			return false
		}
		if p.workerCount.CompareAndSwap(current, current+1) {
			p.wg.Add(1)
			go p.worker()
			return true
		}
	}
}

func (p *GoroutinePool) worker() {
	defer p.wg.Done()
	defer p.workerCount.Add(-1)

	timer := time.NewTimer(p.idleTimeout)
	defer timer.Stop()

	for {
		select {
		case dj, ok := <-p.dispatchQ:
			if !ok {
				return
			}

			p.activeCount.Add(1)
			err := p.runJob(dj)
			p.activeCount.Add(-1)

			if dj.result != nil {
				dj.result <- err
				close(dj.result)
			}
			if err != nil {
				p.failed.Add(1)
			} else {
				p.completed.Add(1)
			}

			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(p.idleTimeout)

		case <-timer.C:
			if int(p.workerCount.Load()) > p.minWorkers {
				return
			}
			timer.Reset(p.idleTimeout)
		}
	}
}

func (p *GoroutinePool) runJob(dj dispatchJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if p.panicHandler != nil {
				p.panicHandler(r)
			}
			err = errors.New("dispatch job panicked")
		}
	}()
	return dj.job(dj.ctx)
}

// Close stops accepting work and waits for every in-flight job to finish.
func (p *GoroutinePool) Close() {
	if p.closed.Swap(true) {
		return
	}
	close(p.dispatchQ)
	p.wg.Wait()
}

// Stats snapshots the pool's current worker/queue counters.
func (p *GoroutinePool) Stats() GoroutinePoolStats {
	return GoroutinePoolStats{
		Workers:   int(p.workerCount.Load()),
		Active:    int(p.activeCount.Load()),
		Queued:    len(p.dispatchQ),
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
		Rejected:  p.rejected.Load(),
	}
}

// GoroutinePoolStats is a point-in-time snapshot of pool activity, surfaced
// on /health (§6).
type GoroutinePoolStats struct {
	Workers   int   `json:"workers"`
	Active    int   `json:"active"`
	Queued    int   `json:"queued"`
	Submitted int64 `json:"submitted"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Rejected  int64 `json:"rejected"`
}
