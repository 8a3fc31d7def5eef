// Package ws carries the chat protocol over websocket connections: one
// JSON frame per text message. Each connection gets a Session owning all
// mutable per-connection state (liveness, binding), so nothing is ever
// attached to the websocket handle itself.
package ws

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"haven-chat/contract"
	"haven-chat/domain/chat"
	"haven-chat/errors"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 64 * 1024
)

// FrameHandler processes inbound frames and disconnects. The orchestrator
// implements it; the transport stays protocol-dumb.
type FrameHandler interface {
	HandleFrame(ctx context.Context, sess contract.Session, raw []byte)
	HandleDisconnect(sess contract.Session)
}

// Session is the lifecycle record of one websocket connection:
// unbound -> bound(room, user, nickname) -> closed, with no way back from
// closed. Reads are sequential (single read loop), writes go through a
// buffered queue drained by a single write loop.
type Session struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	log  *slog.Logger

	mu           sync.RWMutex
	binding      *chat.Binding
	awaitingPong bool
	closed       bool

	closeOnce sync.Once
	done      chan struct{}
}

func NewSession(conn *websocket.Conn, bufferSize int, log *slog.Logger) *Session {
	s := &Session{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, bufferSize),
		log:  log,
		done: make(chan struct{}),
	}
	conn.SetPongHandler(func(string) error {
		s.markAlive()
		return nil
	})
	return s
}

func (s *Session) ID() string {
	return s.id
}

// Deliver enqueues a payload for the write loop. It never blocks: a full
// queue drops the payload for this connection only.
func (s *Session) Deliver(payload []byte) error {
	if !s.Open() {
		return errors.ErrSessionClosed
	}
	select {
	case s.send <- payload:
		return nil
	default:
		return errors.ErrClientQueueFull
	}
}

func (s *Session) Open() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.closed
}

// Terminate closes the transport exactly once. The read loop then unblocks
// with an error and runs the shared disconnect cleanup.
func (s *Session) Terminate() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.done)
		_ = s.conn.Close()
	})
}

func (s *Session) Bind(b chat.Binding) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.binding = &b
}

func (s *Session) Unbind() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.binding = nil
}

func (s *Session) Binding() (chat.Binding, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.binding == nil {
		return chat.Binding{}, false
	}
	return *s.binding, true
}

// Awaiting reports whether the previous probe is still unanswered.
func (s *Session) Awaiting() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.awaitingPong && !s.closed
}

// Probe sends a ping control frame. Any pong or data frame received since
// the previous probe counts as an answer.
func (s *Session) Probe() error {
	s.mu.Lock()
	s.awaitingPong = true
	s.mu.Unlock()
	return s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (s *Session) markAlive() {
	s.mu.Lock()
	s.awaitingPong = false
	s.mu.Unlock()
}

// ReadPump reads frames until the connection dies and hands each one to the
// handler, strictly in order. It runs on the connection's HTTP goroutine
// and owns the disconnect cleanup.
func (s *Session) ReadPump(ctx context.Context, handler FrameHandler) {
	defer func() {
		s.Terminate()
		handler.HandleDisconnect(s)
	}()

	s.conn.SetReadLimit(maxMessageSize)
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("websocket read ended", "session_id", s.id, "error", err)
			}
			return
		}
		s.markAlive()
		handler.HandleFrame(ctx, s, raw)
	}
}

// WritePump drains the delivery queue into the connection. FIFO order here
// is what preserves per-member receipt order.
func (s *Session) WritePump() {
	defer s.Terminate()
	for {
		select {
		case <-s.done:
			return
		case payload := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	}
}
