// Package session implements the per-connection lifecycle: framing,
// an async write pump with a bounded outbound buffer, per-session
// command serialization, and opcode dispatch into the gameplay
// collaborators.
package session

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/tilerealm/worldserver/internal/model"
	"github.com/tilerealm/worldserver/internal/protocol"
)

const (
	defaultWriteTimeout = 5 * time.Second
)

// Session is one accepted TCP connection, before or after
// authentication. It implements world.Observer so MapManager can
// address it directly once the player is spawned.
type Session struct {
	conn net.Conn
	ip   string

	sendCh    chan []byte
	closeCh   chan struct{}
	closeOnce sync.Once

	writeTimeout time.Duration

	// mu serializes handler execution for this session: a fixed worker
	// pool processes commands from many sessions concurrently, but two
	// commands from the same session are never handled at the same
	// time (per-session mutex, not a sticky worker).
	mu sync.Mutex

	authMu    sync.RWMutex
	player    *model.Player
	userID    int64
	charIndex uint32
	authed    bool
}

// NewSession wraps conn with a bounded outbound buffer of the given
// size. The write pump must be started separately via WritePump.
func NewSession(conn net.Conn, outboundBufferSize int) *Session {
	if outboundBufferSize <= 0 {
		outboundBufferSize = 256
	}
	ip, _, _ := net.SplitHostPort(conn.RemoteAddr().String())
	return &Session{
		conn:         conn,
		ip:           ip,
		sendCh:       make(chan []byte, outboundBufferSize),
		closeCh:      make(chan struct{}),
		writeTimeout: defaultWriteTimeout,
	}
}

// IP returns the remote address's host portion.
func (s *Session) IP() string { return s.ip }

// Conn returns the underlying connection, for read-loop use.
func (s *Session) Conn() net.Conn { return s.conn }

// Lock/Unlock serialize handler execution for this session; the
// dispatcher takes this before running a handler and releases it
// after.
func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

// SetPlayer binds an authenticated player to this session.
func (s *Session) SetPlayer(p *model.Player) {
	s.authMu.Lock()
	defer s.authMu.Unlock()
	s.player = p
	s.userID = p.UserID
	s.charIndex = p.CharIndex
	s.authed = true
}

// Player returns the bound player, or nil before authentication.
func (s *Session) Player() *model.Player {
	s.authMu.RLock()
	defer s.authMu.RUnlock()
	return s.player
}

// Authenticated reports whether SetPlayer has been called.
func (s *Session) Authenticated() bool {
	s.authMu.RLock()
	defer s.authMu.RUnlock()
	return s.authed
}

// CharIndex implements world.Observer.
func (s *Session) CharIndex() uint32 {
	s.authMu.RLock()
	defer s.authMu.RUnlock()
	return s.charIndex
}

// Send implements world.Observer: it enqueues an already-framed
// payload for the write pump. A full queue means a slow consumer —
// the connection is closed rather than allowed to stall the tick.
func (s *Session) Send(framed []byte) error {
	select {
	case s.sendCh <- framed:
		return nil
	case <-s.closeCh:
		return fmt.Errorf("session closed")
	default:
		s.CloseAsync()
		return fmt.Errorf("outbound buffer full, closing slow connection")
	}
}

// SendEvent frames opcode+payload and enqueues it.
func (s *Session) SendEvent(opcode byte, payload []byte) error {
	framed, err := protocol.EncodeFrame(opcode, payload)
	if err != nil {
		return err
	}
	return s.Send(framed)
}

// WritePump drains sendCh to the connection until closed. Must run in
// its own goroutine for the lifetime of the session.
func (s *Session) WritePump() {
	for {
		select {
		case frame, ok := <-s.sendCh:
			if !ok {
				return
			}
			if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
				return
			}
			if _, err := s.conn.Write(frame); err != nil {
				return
			}
		case <-s.closeCh:
			return
		}
	}
}

// CloseAsync signals the write pump to stop without blocking. Safe to
// call more than once.
func (s *Session) CloseAsync() {
	s.closeOnce.Do(func() {
		close(s.closeCh)
	})
}

// Close stops the write pump and closes the underlying connection.
func (s *Session) Close() error {
	s.CloseAsync()
	return s.conn.Close()
}
