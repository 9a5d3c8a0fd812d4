// Package ws owns the websocket side of a subscriber session: the upgrade
// handshake lives in the server, this package runs the read/write pumps and
// exposes the non-blocking send path the engine fans out through.
package ws

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 512
	sendBufferSize = 256
)

// ErrSessionClosed is returned by Send after the session has shut down.
var ErrSessionClosed = errors.New("session closed")

// ErrSlowSession is returned by Send when the outbound buffer is full. The
// engine treats it like any other dead session.
var ErrSlowSession = errors.New("session send buffer full")

// Session is one live websocket subscriber connection. Outbound frames go
// through a buffered channel drained by WritePump, so the engine's fan-out
// never waits on any one connection's I/O.
type Session struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	closed atomic.Bool
	once   sync.Once
	logger *zap.Logger
}

func NewSession(conn *websocket.Conn, logger *zap.Logger) *Session {
	return &Session{
		id:     uuid.NewString(),
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// Send queues a frame for delivery without blocking. It fails when the
// session is closed or its buffer is full.
func (s *Session) Send(data []byte) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	select {
	case s.send <- data:
		return nil
	default:
		return ErrSlowSession
	}
}

// Close marks the session dead and closes the underlying connection. Safe to
// call multiple times.
func (s *Session) Close() {
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.done)
		if s.conn != nil {
			s.conn.Close()
		}
	})
}

// ReadPump reads inbound frames and passes each to handler. It returns when
// the connection errors or closes, after which the caller should unregister
// the session.
func (s *Session) ReadPump(handler func(data []byte)) {
	defer s.Close()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("session read error", zap.String("session_id", s.id), zap.Error(err))
			}
			return
		}
		handler(msg)
	}
}

// WritePump drains the send buffer onto the connection and keeps the
// connection alive with periodic pings.
func (s *Session) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.Close()
	}()

	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
