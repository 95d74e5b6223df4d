package session

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/tilerealm/worldserver/internal/config"
	"github.com/tilerealm/worldserver/internal/persistence"
	"github.com/tilerealm/worldserver/internal/protocol"
)

// Server owns the listening socket and turns accepted connections into
// Sessions fed through a shared worker Pool.
type Server struct {
	cfg  config.Config
	pool *Pool
	log  *slog.Logger

	listener net.Listener

	mu    sync.Mutex
	conns map[*Session]struct{}
}

// NewServer builds a Server. Call ListenAndServe to start accepting.
func NewServer(cfg config.Config, pool *Pool, log *slog.Logger) *Server {
	return &Server{cfg: cfg, pool: pool, log: log, conns: make(map[*Session]struct{})}
}

// ListenAndServe binds the configured host:port (optionally behind
// TLS) and accepts connections until ctx is cancelled. It blocks until
// the listener closes.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	if s.cfg.TLS {
		cert, err := tls.LoadX509KeyPair(s.cfg.TLSCert, s.cfg.TLSKey)
		if err != nil {
			ln.Close()
			return fmt.Errorf("loading TLS keypair: %w", err)
		}
		ln = tls.NewListener(ln, &tls.Config{Certificates: []tls.Certificate{cert}})
	}
	s.listener = ln

	go func() {
		<-ctx.Done()
		ln.Close()
		s.drainOnShutdown()
	}()

	if s.log != nil {
		s.log.Info("accepting connections", "addr", addr, "tls", s.cfg.TLS)
	}

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return fmt.Errorf("accept: %w", err)
			}
		}
		if tc, ok := conn.(*net.TCPConn); ok {
			_ = tc.SetKeepAlive(true)
		}
		go s.handleConnection(ctx, conn)
	}
}

// handleConnection runs the read loop for one accepted connection: it
// starts the write pump, reads length-prefixed frames until the
// connection errs or ctx is cancelled, and submits each to the shared
// worker pool. On exit it removes the session's player from world
// state, if one was ever bound.
func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	sess := NewSession(conn, s.cfg.OutboundBufferSize)
	s.trackSession(sess)
	defer s.untrackSession(sess)
	defer sess.Close()

	go sess.WritePump()

	if err := conn.SetReadDeadline(deadlineFrom(s.cfg.LoginHandshakeTimeout)); err != nil {
		return
	}

	buf := make([]byte, 0, 512)
	firstFrame := true
	for {
		opcode, payload, err := protocol.ReadFrame(conn, buf)
		if err != nil {
			if s.log != nil && sess.Authenticated() {
				s.log.Info("connection closed", "char_index", sess.CharIndex(), "error", err)
			}
			break
		}
		if firstFrame {
			firstFrame = false
		} else if err := conn.SetReadDeadline(deadlineFrom(s.cfg.ReadTimeout)); err != nil {
			break
		}

		payloadCopy := make([]byte, len(payload))
		copy(payloadCopy, payload)
		s.pool.Submit(ctx, sess, opcode, payloadCopy)
	}

	if sess.Authenticated() {
		s.cleanupSession(sess)
	}
}

// cleanupSession removes a disconnected player from world state,
// notifies the map it left, and writes the player's latest state back
// to the KV store so reconnection reads it.
func (s *Server) cleanupSession(sess *Session) {
	p := sess.Player()
	if p == nil {
		return
	}
	deps := s.pool.dispatcher.deps
	var mapID int32
	deps.World.WithLock(func() { mapID = p.Location.Map })
	deps.World.RemoveEntity(p.CharIndex)
	opcode, payload := protocol.EncodeCharacterRemove(p.CharIndex)
	if framed, err := protocol.EncodeFrame(opcode, payload); err == nil {
		deps.Fanout.Map(mapID, framed)
	}
	if err := persistence.SavePlayerState(context.Background(), deps.Store, p); err != nil && s.log != nil {
		s.log.Warn("saving player state on disconnect failed", "user_id", p.UserID, "error", err)
	}
}

func (s *Server) trackSession(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[sess] = struct{}{}
}

func (s *Server) untrackSession(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, sess)
}

// drainOnShutdown gives every still-open connection ShutdownGrace to
// finish on its own (client disconnect, read timeout, pending frames
// flushed) before force-closing whatever remains after the listener
// stops accepting.
func (s *Server) drainOnShutdown() {
	grace := s.cfg.ShutdownGrace
	if grace <= 0 {
		grace = 0
	}
	deadline := time.NewTimer(grace)
	defer deadline.Stop()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-deadline.C:
			s.closeRemaining()
			return
		case <-ticker.C:
			if s.openCount() == 0 {
				return
			}
		}
	}
}

func (s *Server) openCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *Server) closeRemaining() {
	s.mu.Lock()
	remaining := make([]*Session, 0, len(s.conns))
	for sess := range s.conns {
		remaining = append(remaining, sess)
	}
	s.mu.Unlock()

	for _, sess := range remaining {
		if s.log != nil {
			s.log.Warn("force-closing connection past shutdown grace period")
		}
		sess.Close()
	}
}

// deadlineFrom returns the absolute deadline for a timeout duration, or
// the zero time (meaning "no deadline") if d is non-positive.
func deadlineFrom(d time.Duration) time.Time {
	if d <= 0 {
		return time.Time{}
	}
	return time.Now().Add(d)
}
