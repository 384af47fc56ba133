package devserver

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lorrc/trackboard-realtime/internal/core/domain"
	"github.com/lorrc/trackboard-realtime/internal/infrastructure/logging"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024
)

// Session is a middleman between one websocket connection and the hub.
// It is pinned to the room it was upgraded into.
type Session struct {
	hub  *Hub
	conn *websocket.Conn

	// Send is a buffered channel of outbound encoded envelopes
	Send chan []byte

	// Room is the "entityType:entityId" key this session joined
	Room string

	// UserID of the authenticated user
	UserID string

	closeOnce sync.Once
	logger    *slog.Logger
}

// NewSession creates a session for an upgraded connection.
func NewSession(hub *Hub, conn *websocket.Conn, room, userID string, sendBuffer int, logger *slog.Logger) *Session {
	return &Session{
		hub:    hub,
		conn:   conn,
		Send:   make(chan []byte, sendBuffer),
		Room:   room,
		UserID: userID,
		logger: logger.With("component", "devserver_session", "user_id", userID, "room", room),
	}
}

// CloseSend closes the outbound channel exactly once.
func (s *Session) CloseSend() {
	s.closeOnce.Do(func() {
		close(s.Send)
	})
}

// SendEvent encodes and queues an event for this session only.
func (s *Session) SendEvent(event domain.Event) {
	data, err := domain.Encode(event)
	if err != nil {
		s.logger.Error("failed to encode event", "kind", event.EventKind(), "error", err)
		return
	}
	select {
	case s.Send <- data:
	default:
		s.logger.Warn("send buffer full, dropping event", "kind", event.EventKind())
	}
}

// ReadPump pumps messages from the websocket connection to the hub.
//
// The application runs ReadPump in a per-session goroutine. It ensures
// there is at most one reader on the connection.
func (s *Session) ReadPump() {
	defer func() {
		s.hub.Unregister <- s
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("unexpected close", "error", err)
			}
			return
		}
		s.handleMessage(message)
	}
}

// handleMessage dispatches one inbound frame with panic isolation so a
// bad envelope cannot take down the pump.
func (s *Session) handleMessage(message []byte) {
	defer func() {
		if r := recover(); r != nil {
			logging.LogPanic(s.logger.With("scope", "session message handler"), r)
		}
	}()
	s.hub.handleInbound(s, message)
}

// WritePump pumps messages from the hub to the websocket connection.
//
// A goroutine running WritePump is started for each session. It ensures
// there is at most one writer on the connection.
func (s *Session) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case message, ok := <-s.Send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
