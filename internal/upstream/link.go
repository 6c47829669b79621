// Package upstream maintains the persistent connection to the game
// server: registration handshake, replication ingest and character
// state write-back.
package upstream

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/mistvale/chunkserver/internal/config"
	"github.com/mistvale/chunkserver/internal/events"
	"github.com/mistvale/chunkserver/internal/model"
	"github.com/mistvale/chunkserver/internal/protocol"
)

const (
	dialTimeout  = 5 * time.Second
	writeTimeout = 5 * time.Second

	maxReconnectTries = 5

	// outboxSize bounds frames buffered across reconnects.
	outboxSize = 256
)

// reconnectBaseDelay doubles per consecutive failure: 5s, 10s, 20s,
// 40s, 80s. After maxReconnectTries the link gives up and the process
// exits; a chunk without its game server is lame. Variable so tests
// can shrink the schedule.
var reconnectBaseDelay = 5 * time.Second

// connectionInfo is the handshake body: where this chunk listens.
type connectionInfo struct {
	ID   int64  `json:"id"`
	IP   string `json:"ip"`
	Port int    `json:"port"`
}

// Link is the dialing side of the game-server connection. Decoded
// replication frames land on the ingress queue; Send queues outbound
// frames which survive a reconnect.
type Link struct {
	gameAddr string
	self     config.ChunkServer
	queue    *events.Queue
	outbox   chan []byte

	unknownLog *rate.Limiter

	mu   sync.Mutex
	conn net.Conn
}

// NewLink creates a link that feeds decoded game-server events into queue.
func NewLink(cfg config.Config, queue *events.Queue) *Link {
	return &Link{
		gameAddr:   cfg.GameServer.Addr(),
		self:       cfg.ChunkServer,
		queue:      queue,
		outbox:     make(chan []byte, outboxSize),
		unknownLog: rate.NewLimiter(rate.Every(5*time.Second), 1),
	}
}

// Run dials and serves the link until ctx ends, reconnecting with
// exponential backoff. Returns an error only when the game server
// stays unreachable past the retry limit.
func (l *Link) Run(ctx context.Context) error {
	failures := 0
	for {
		if ctx.Err() != nil {
			return nil
		}

		conn, err := net.DialTimeout("tcp", l.gameAddr, dialTimeout)
		if err == nil {
			failures = 0
			slog.Info("connected to game server", "address", l.gameAddr)
			err = l.serve(ctx, conn)
			if ctx.Err() != nil {
				return nil
			}
			slog.Warn("game server link lost", "error", err)
		} else {
			slog.Warn("game server dial failed", "address", l.gameAddr, "error", err)
		}

		failures++
		if failures > maxReconnectTries {
			return fmt.Errorf("game server %s unreachable after %d attempts", l.gameAddr, maxReconnectTries)
		}
		delay := reconnectBaseDelay << (failures - 1)
		slog.Info("reconnecting to game server", "attempt", failures, "delay", delay)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}
}

// serve owns one live connection: handshake, write pump, then the read
// loop until the peer or ctx ends it.
func (l *Link) serve(ctx context.Context, conn net.Conn) error {
	defer conn.Close()

	l.mu.Lock()
	l.conn = conn
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		l.conn = nil
		l.mu.Unlock()
	}()

	// The handshake goes first so the game server can bind this chunk
	// before any replication or state flows.
	hello, err := protocol.MarshalRequest(protocol.EvChunkServerConnection, l.self.ID, "", connectionInfo{
		ID:   l.self.ID,
		IP:   l.self.Host,
		Port: l.self.Port,
	})
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if _, err := conn.Write(hello); err != nil {
		return fmt.Errorf("handshake: %w", err)
	}
	slog.Info("registered with game server", "chunkId", l.self.ID, "address", l.gameAddr)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	go l.writePump(conn, done)

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 4096), protocol.MaxUpstreamFrameSize)
	for scanner.Scan() {
		frame := bytes.TrimSpace(scanner.Bytes())
		if len(frame) == 0 {
			continue
		}
		ev, ok := l.decodeFrame(frame, time.Now())
		if !ok {
			continue
		}
		l.queue.Push(ev)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read game server: %w", err)
	}
	return errors.New("connection closed by game server")
}

// writePump drains the outbox onto the connection. A write failure
// closes the connection, which unblocks the read loop and triggers the
// reconnect cycle.
func (l *Link) writePump(conn net.Conn, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case frame := <-l.outbox:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if _, err := conn.Write(frame); err != nil {
				slog.Warn("game server write failed", "error", err)
				conn.Close()
				return
			}
		}
	}
}

// Send queues one frame for the game server. Never blocks: when the
// outbox is full the frame is dropped, the upstream holds authoritative
// state and a fresher update will follow.
func (l *Link) Send(eventType string, body any) {
	frame, err := protocol.MarshalRequest(eventType, l.self.ID, "", body)
	if err != nil {
		slog.Error("failed to marshal upstream frame", "eventType", eventType, "error", err)
		return
	}
	select {
	case l.outbox <- frame:
	default:
		slog.Warn("upstream outbox full, dropping frame", "eventType", eventType)
	}
}

// NotifyCharacterState pushes a character snapshot back to the game
// server, typically on departure.
func (l *Link) NotifyCharacterState(c model.Character) {
	l.Send(protocol.EvCharacterStateUpdate, c)
}

// Connected reports whether a game server connection is live.
func (l *Link) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn != nil
}
