package events

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// DefaultQueueCapacity bounds an ingress queue when the config does not
// override it.
const DefaultQueueCapacity = 10000

// Queue is a bounded FIFO shared by any number of producers and
// consumers. When full it drops the oldest entries to admit new ones:
// neither clients nor the upstream link can be back-pressured, and the
// simulation must keep consuming the latest state rather than stall on
// stale backlog. Drops are counted and logged at a limited rate.
type Queue struct {
	name string

	mu       sync.Mutex
	notEmpty *sync.Cond
	buf      []Event
	head     int
	count    int
	closed   bool

	pushed  atomic.Uint64
	dropped atomic.Uint64
	invalid atomic.Uint64

	dropLog *rate.Limiter
}

// NewQueue builds a queue with the given capacity (DefaultQueueCapacity
// when non-positive). Name shows up in overflow logs.
func NewQueue(name string, capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	q := &Queue{
		name:    name,
		buf:     make([]Event, capacity),
		dropLog: rate.NewLimiter(rate.Every(5*time.Second), 1),
	}
	q.notEmpty = sync.NewCond(&q.mu)
	return q
}

// Push appends one event. Events with an out-of-range kind are counted
// and skipped, never propagated. Push never blocks and never fails: on
// overflow the oldest queued event is dropped instead.
func (q *Queue) Push(e Event) {
	if !e.Kind.Valid() {
		q.invalid.Add(1)
		return
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	if q.count == len(q.buf) {
		q.dropOldestLocked(1)
	}
	q.buf[(q.head+q.count)%len(q.buf)] = e
	q.count++
	q.mu.Unlock()

	q.pushed.Add(1)
	q.notEmpty.Signal()
}

// PushBatch appends events in order under one lock acquisition,
// dropping oldest entries as needed to admit the batch. A batch larger
// than the capacity keeps only its newest entries.
func (q *Queue) PushBatch(evs []Event) {
	valid := evs[:0:0]
	for _, e := range evs {
		if e.Kind.Valid() {
			valid = append(valid, e)
		} else {
			q.invalid.Add(1)
		}
	}
	if len(valid) == 0 {
		return
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	if len(valid) >= len(q.buf) {
		q.dropped.Add(uint64(q.count + len(valid) - len(q.buf)))
		valid = valid[len(valid)-len(q.buf):]
		q.head = 0
		q.count = 0
	} else if over := q.count + len(valid) - len(q.buf); over > 0 {
		q.dropOldestLocked(over)
	}
	for _, e := range valid {
		q.buf[(q.head+q.count)%len(q.buf)] = e
		q.count++
	}
	q.mu.Unlock()

	q.pushed.Add(uint64(len(valid)))
	q.notEmpty.Broadcast()
}

// dropOldestLocked advances head past n entries. Vacated slots keep
// their stale payloads until ForceCleanup releases them.
func (q *Queue) dropOldestLocked(n int) {
	q.head = (q.head + n) % len(q.buf)
	q.count -= n
	q.dropped.Add(uint64(n))
	if q.dropLog.Allow() {
		slog.Warn("event queue overflow, dropping oldest",
			"queue", q.name,
			"dropped", n,
			"total_dropped", q.dropped.Load())
	}
}

// Pop blocks until an event is available or the queue is closed and
// drained. The second result is false only in the latter case.
func (q *Queue) Pop() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.count == 0 {
		if q.closed {
			return Event{}, false
		}
		q.notEmpty.Wait()
	}
	e := q.buf[q.head]
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	return e, true
}

// PopBatch blocks until at least one event is available, then returns
// up to max events in FIFO order. Returns ok=false once the queue is
// closed and drained.
func (q *Queue) PopBatch(max int) ([]Event, bool) {
	if max <= 0 {
		max = 1
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.count == 0 {
		if q.closed {
			return nil, false
		}
		q.notEmpty.Wait()
	}
	n := q.count
	if n > max {
		n = max
	}
	out := make([]Event, n)
	for i := range out {
		out[i] = q.buf[q.head]
		q.head = (q.head + 1) % len(q.buf)
		q.count--
	}
	return out, true
}

// Size returns the number of queued events.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Dropped returns the total number of events lost to overflow.
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}

// Pushed returns the total number of events admitted.
func (q *Queue) Pushed() uint64 {
	return q.pushed.Load()
}

// Invalid returns the number of events rejected for a bad discriminant.
func (q *Queue) Invalid() uint64 {
	return q.invalid.Load()
}

// ForceCleanup zeroes every slot outside the live window so stale
// payload references from drops and pops can be collected, and logs
// queue statistics. Meant for the periodic maintenance sweep.
func (q *Queue) ForceCleanup() {
	q.mu.Lock()
	live := make(map[int]struct{}, q.count)
	for i := 0; i < q.count; i++ {
		live[(q.head+i)%len(q.buf)] = struct{}{}
	}
	for i := range q.buf {
		if _, ok := live[i]; !ok {
			q.buf[i] = Event{}
		}
	}
	size := q.count
	q.mu.Unlock()

	slog.Debug("event queue stats",
		"queue", q.name,
		"size", size,
		"pushed", q.pushed.Load(),
		"dropped", q.dropped.Load(),
		"invalid", q.invalid.Load())
}

// Close wakes all blocked consumers. Queued events remain poppable;
// Pop/PopBatch return false once drained. Pushes after Close are no-ops.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.notEmpty.Broadcast()
}
