package world

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// ErrSocketClosed is returned by Write once the socket has been closed.
var ErrSocketClosed = errors.New("socket closed")

const writeTimeout = 5 * time.Second

// Socket wraps a client connection with shared ownership between the
// session read loop, the client registry and every write path. Event
// payloads never carry one of these; handlers resolve it by clientId.
// Writes are serialized per socket so broadcast and response frames
// cannot interleave. Close is idempotent.
type Socket struct {
	conn net.Conn

	writeMu sync.Mutex
	closed  atomic.Bool
}

// NewSocket wraps an accepted connection.
func NewSocket(conn net.Conn) *Socket {
	return &Socket{conn: conn}
}

// Read reads from the connection into p.
func (s *Socket) Read(p []byte) (int, error) {
	return s.conn.Read(p)
}

// Write sends one complete frame. A write to a closed socket returns
// ErrSocketClosed; callers treat that as an error-but-not-fatal.
func (s *Socket) Write(frame []byte) error {
	if s.closed.Load() {
		return ErrSocketClosed
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed.Load() {
		return ErrSocketClosed
	}
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if _, err := s.conn.Write(frame); err != nil {
		return fmt.Errorf("socket write: %w", err)
	}
	return nil
}

// Close shuts the connection down once; later calls are no-ops.
func (s *Socket) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.conn.Close()
}

// IsOpen reports whether the socket is still writable.
func (s *Socket) IsOpen() bool {
	return !s.closed.Load()
}

// RemoteAddr returns the peer address for logging.
func (s *Socket) RemoteAddr() net.Addr {
	return s.conn.RemoteAddr()
}
