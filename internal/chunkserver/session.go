package chunkserver

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/mistvale/chunkserver/internal/events"
	"github.com/mistvale/chunkserver/internal/protocol"
	"github.com/mistvale/chunkserver/internal/world"
)

// Session owns one client connection: the read loop, line framing and
// its limits, the ping fast path, and exactly-once disconnect cleanup.
// Everything past the frame boundary happens through the dispatcher.
type Session struct {
	sock    *world.Socket
	clients *world.ClientRegistry
	disp    *Dispatcher
	log     *slog.Logger

	closeOnce sync.Once
	onClose   func(*Session)
}

func newSession(sock *world.Socket, clients *world.ClientRegistry, disp *Dispatcher, onClose func(*Session)) *Session {
	return &Session{
		sock:    sock,
		clients: clients,
		disp:    disp,
		log:     slog.With("remote", sock.RemoteAddr()),
		onClose: onClose,
	}
}

// run reads frames until the connection dies or a framing limit is
// breached. Each cycle reads at most once and handles at most
// MaxFramesPerRead frames, so one chatty client cannot monopolize the
// dispatcher; leftover complete frames are handled next cycle without
// another read.
func (s *Session) run() {
	defer s.teardown()

	scratch := make([]byte, protocol.ScratchSize)
	acc := make([]byte, 0, protocol.ScratchSize*4)
	batch := make([]events.Event, 0, protocol.MaxFramesPerRead)

	for {
		if bytes.IndexByte(acc, '\n') < 0 {
			n, err := s.sock.Read(scratch)
			if err != nil {
				if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
					s.log.Debug("connection closed by peer")
				} else {
					s.log.Warn("session read failed", "error", err)
				}
				return
			}
			if len(acc)+n > protocol.MaxAccumulatorSize {
				s.log.Warn("session buffer limit exceeded, closing",
					"buffered", len(acc)+n,
					"limit", protocol.MaxAccumulatorSize)
				return
			}
			acc = append(acc, scratch[:n]...)
		}

		batch = batch[:0]
		consumed := 0
		for frames := 0; frames < protocol.MaxFramesPerRead; frames++ {
			nl := bytes.IndexByte(acc[consumed:], '\n')
			if nl < 0 {
				if len(acc)-consumed >= protocol.MaxFrameSize {
					s.log.Warn("frame size limit exceeded, closing",
						"buffered", len(acc)-consumed,
						"limit", protocol.MaxFrameSize)
					return
				}
				break
			}
			if nl+1 > protocol.MaxFrameSize {
				s.log.Warn("oversize frame, closing",
					"frameSize", nl+1,
					"limit", protocol.MaxFrameSize)
				return
			}

			frame := acc[consumed : consumed+nl]
			consumed += nl + 1
			if len(bytes.TrimSpace(frame)) == 0 {
				continue
			}

			recvAt := time.Now()
			if s.disp.FastPing(s.sock, frame, recvAt) {
				continue
			}
			if ev, ok := s.disp.Decode(s.sock, frame, recvAt); ok {
				batch = append(batch, ev)
			}
		}

		acc = append(acc[:0], acc[consumed:]...)
		if len(batch) > 0 {
			s.disp.EnqueueBatch(batch)
		}
	}
}

// teardown closes the socket, unbinds the client and emits the single
// disconnect event. Safe to call from any goroutine; only the first
// call acts.
func (s *Session) teardown() {
	s.closeOnce.Do(func() {
		s.sock.Close()
		if c, ok := s.clients.RemoveBySocket(s.sock); ok {
			s.disp.EmitDisconnect(c)
			s.log.Info("client disconnected", "clientId", c.ID)
		}
		if s.onClose != nil {
			s.onClose(s)
		}
	})
}

// abort force-closes the connection; the read loop then finishes the
// teardown on its own goroutine.
func (s *Session) abort() {
	s.sock.Close()
}
