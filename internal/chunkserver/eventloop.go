package chunkserver

import (
	"context"
	"log/slog"

	"github.com/mistvale/chunkserver/internal/events"
	"github.com/mistvale/chunkserver/internal/protocol"
)

// DrainLoop moves events from a queue onto the worker pool in batches
// until the context ends. Submission never blocks: when every worker is
// busy and the pool's backlog is full, the event is dropped and
// counted, because holding it would stall the drain for all clients.
func DrainLoop(ctx context.Context, q *events.Queue, pool *events.Pool, h *Handlers) {
	go func() {
		<-ctx.Done()
		q.Close()
	}()

	for {
		batch, ok := q.PopBatch(protocol.DispatchBatchSize)
		if !ok {
			return
		}
		for _, ev := range batch {
			task := ev
			if !pool.Submit(func() { h.Dispatch(task) }) {
				slog.Warn("worker pool saturated, dropping event",
					"kind", ev.Kind.String(),
					"clientId", ev.ClientID)
			}
		}
	}
}

// PingLoop answers pings on a dedicated goroutine, bypassing the worker
// pool so latency probes stay honest while the simulation is busy.
func PingLoop(ctx context.Context, q *events.Queue, h *Handlers) {
	go func() {
		<-ctx.Done()
		q.Close()
	}()

	for {
		ev, ok := q.Pop()
		if !ok {
			return
		}
		h.Dispatch(ev)
	}
}
