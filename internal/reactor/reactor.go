// Package reactor implements the worker-pool event loop the packet plane
// posts completions to. Every datagram/stream read completion is posted
// here rather than invoked inline, decoupling the receive hot path from
// callback latency and keeping completion order within an endpoint
// observable.
package reactor

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Reactor drives posted callbacks across a fixed worker pool, N = max(2,
// runtime.NumCPU()). All I/O completions and posted callbacks may run on
// any worker; handlers that touch shared state (the router's client map)
// must synchronize themselves.
type Reactor struct {
	jobs   chan func()
	group  *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc
}

// New starts the worker pool. Stop cancels it; Wait blocks until every
// worker has returned, which happens once Stop has been called and each
// worker has finished the job it was running. Jobs still queued at that
// point are not run.
func New(ctx context.Context) *Reactor {
	rctx, cancel := context.WithCancel(ctx)
	group, gctx := errgroup.WithContext(rctx)

	n := runtime.NumCPU()
	if n < 2 {
		n = 2
	}

	r := &Reactor{
		jobs:   make(chan func(), 4096),
		group:  group,
		ctx:    rctx,
		cancel: cancel,
	}

	for i := 0; i < n; i++ {
		group.Go(func() error {
			r.worker(gctx)
			return nil
		})
	}

	return r
}

func (r *Reactor) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-r.jobs:
			if !ok {
				return
			}
			job()
		}
	}
}

// Post enqueues job to run on some worker. It never blocks the caller
// waiting for a worker to be free beyond the reactor's internal queue
// capacity; once the reactor is stopped, posted jobs are dropped.
func (r *Reactor) Post(job func()) {
	select {
	case r.jobs <- job:
	case <-r.ctx.Done():
	}
}

// Stop cancels the worker pool: workers return and jobs posted afterwards
// are dropped. Stop does not interrupt the datagram and stream engines'
// blocking receive/read calls, which do not see the reactor's context;
// those loops end only when their endpoint is closed or fails.
func (r *Reactor) Stop() {
	r.cancel()
}

// Wait blocks until every worker has exited. Call after Stop. The job
// channel is deliberately never closed: Post and Stop may race, and a
// send on a closed channel would panic.
func (r *Reactor) Wait() {
	r.group.Wait()
}
