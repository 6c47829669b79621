// Package scheduler drives the periodic simulation work: spawn checks,
// mob movement, cast resolution, harvest timers and cleanup sweeps.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mistvale/chunkserver/internal/events"
)

// task is one registered periodic job.
type task struct {
	name      string
	interval  time.Duration
	fn        func()
	nextRunAt time.Time
}

// Scheduler fires registered tasks at fixed intervals from a single
// goroutine. Task bodies run on the worker pool, so one slow sweep
// cannot hold back the others; a saturated pool skips the run and the
// task fires again on its next interval.
type Scheduler struct {
	pool *events.Pool

	mu    sync.Mutex
	tasks []*task
}

// New creates a scheduler that submits task runs to pool.
func New(pool *events.Pool) *Scheduler {
	return &Scheduler{pool: pool}
}

// Register adds a periodic task. The first run happens one interval
// after Run starts, not immediately.
func (s *Scheduler) Register(name string, interval time.Duration, fn func()) {
	if interval <= 0 || fn == nil {
		return
	}
	s.mu.Lock()
	s.tasks = append(s.tasks, &task{name: name, interval: interval, fn: fn})
	s.mu.Unlock()
}

// TaskCount reports how many tasks are registered.
func (s *Scheduler) TaskCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Run blocks until ctx ends, firing due tasks. Intervals are anchored
// to the schedule, not to task completion: a run that arrives late does
// not shift the following ones, and missed slots are coalesced rather
// than replayed.
func (s *Scheduler) Run(ctx context.Context) error {
	start := time.Now()
	s.mu.Lock()
	for _, t := range s.tasks {
		t.nextRunAt = start.Add(t.interval)
	}
	count := len(s.tasks)
	s.mu.Unlock()

	slog.Info("scheduler started", "tasks", count)
	defer slog.Info("scheduler stopped")

	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		wait := s.untilNext(time.Now())
		timer.Reset(wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-timer.C:
			s.runDue(now)
		}
	}
}

// untilNext returns the wait until the earliest pending task. With no
// tasks registered it polls lazily so Run still honors ctx.
func (s *Scheduler) untilNext(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.tasks) == 0 {
		return time.Second
	}
	earliest := s.tasks[0].nextRunAt
	for _, t := range s.tasks[1:] {
		if t.nextRunAt.Before(earliest) {
			earliest = t.nextRunAt
		}
	}
	if wait := earliest.Sub(now); wait > 0 {
		return wait
	}
	return time.Millisecond
}

// runDue submits every task whose slot has arrived and advances its
// schedule past now. Returns how many tasks fired.
func (s *Scheduler) runDue(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	fired := 0
	for _, t := range s.tasks {
		if t.nextRunAt.After(now) {
			continue
		}
		for !t.nextRunAt.After(now) {
			t.nextRunAt = t.nextRunAt.Add(t.interval)
		}
		if !s.pool.Submit(t.fn) {
			slog.Warn("scheduler task skipped, worker pool saturated", "task", t.name)
			continue
		}
		fired++
	}
	return fired
}
