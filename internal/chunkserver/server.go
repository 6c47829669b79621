package chunkserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/mistvale/chunkserver/internal/config"
	"github.com/mistvale/chunkserver/internal/protocol"
	"github.com/mistvale/chunkserver/internal/world"
)

// Server accepts game client connections and runs one session per
// connection. The live-session set caps concurrency before any frame
// is read, so an unauthenticated flood cannot exhaust the registries.
type Server struct {
	cfg     config.ChunkServer
	clients *world.ClientRegistry
	disp    *Dispatcher

	mu       sync.Mutex
	listener net.Listener
	sessions map[*Session]struct{}
	wg       sync.WaitGroup
}

// NewServer creates a client-facing server.
func NewServer(cfg config.ChunkServer, clients *world.ClientRegistry, disp *Dispatcher) *Server {
	return &Server{
		cfg:      cfg,
		clients:  clients,
		disp:     disp,
		sessions: make(map[*Session]struct{}, protocol.DefaultMaxSessions),
	}
}

// Run listens on the configured address and serves until ctx is
// cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections from the given listener. Split from Run so
// tests can pass their own listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		ln.Close()
		s.closeSessions()
	}()

	slog.Info("chunk server started",
		"address", ln.Addr(),
		"chunkId", s.cfg.ID,
		"maxClients", s.maxClients())

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			return nil
		default:
			conn, err := ln.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					s.wg.Wait()
					return nil
				}
				slog.Error("failed to accept connection", "error", err)
				continue
			}

			if s.SessionCount() >= s.maxClients() {
				slog.Warn("session limit reached, rejecting connection",
					"remote", conn.RemoteAddr(),
					"limit", s.maxClients())
				conn.Close()
				continue
			}

			if tcpConn, ok := conn.(*net.TCPConn); ok {
				if err := tcpConn.SetKeepAlive(true); err != nil {
					slog.Warn("set keepalive failed", "error", err)
				}
				if err := tcpConn.SetKeepAlivePeriod(30 * time.Second); err != nil {
					slog.Warn("set keepalive period failed", "error", err)
				}
			}

			sess := newSession(world.NewSocket(conn), s.clients, s.disp, s.dropSession)
			s.addSession(sess)
			s.wg.Go(sess.run)
		}
	}
}

// Addr returns the bound listen address, nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// SessionCount returns the number of live sessions.
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) maxClients() int {
	if s.cfg.MaxClients > 0 {
		return s.cfg.MaxClients
	}
	return protocol.DefaultMaxSessions
}

func (s *Server) addSession(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess] = struct{}{}
}

func (s *Server) dropSession(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sess)
}

func (s *Server) closeSessions() {
	s.mu.Lock()
	live := make([]*Session, 0, len(s.sessions))
	for sess := range s.sessions {
		live = append(live, sess)
	}
	s.mu.Unlock()

	for _, sess := range live {
		sess.abort()
	}
}
