package events

import (
	"context"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// Pool is a fixed set of workers draining a bounded task queue. Submit
// never blocks: past capacity the task is rejected and the caller
// decides what to do (event loops drop the event, the scheduler skips
// the pulse). Workers recover panics so a bad event cannot take a
// worker down.
type Pool struct {
	tasks    chan func()
	workers  int
	rejected atomic.Uint64
	wg       sync.WaitGroup
}

// NewPool sizes the pool: workers defaults to the machine's logical
// CPU count, queueCap to DefaultQueueCapacity.
func NewPool(workers, queueCap int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if queueCap <= 0 {
		queueCap = DefaultQueueCapacity
	}
	return &Pool{
		tasks:   make(chan func(), queueCap),
		workers: workers,
	}
}

// Start launches the workers. They exit when ctx is cancelled; queued
// tasks left behind at that point are abandoned.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
	slog.Info("worker pool started", "workers", p.workers, "queue_cap", cap(p.tasks))
}

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-p.tasks:
			p.runTask(task)
		}
	}
}

func (p *Pool) runTask(task func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("worker recovered from panic",
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	task()
}

// Submit queues a task for execution, reporting false when the task
// queue is full.
func (p *Pool) Submit(task func()) bool {
	select {
	case p.tasks <- task:
		return true
	default:
		p.rejected.Add(1)
		return false
	}
}

// Rejected returns how many submissions were refused at capacity.
func (p *Pool) Rejected() uint64 {
	return p.rejected.Load()
}

// QueueDepth returns the number of tasks waiting for a worker.
func (p *Pool) QueueDepth() int {
	return len(p.tasks)
}

// Wait blocks until all workers have exited.
func (p *Pool) Wait() {
	p.wg.Wait()
}
