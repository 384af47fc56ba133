package websocket

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lorrc/trackboard-realtime/internal/core/domain"
	"github.com/lorrc/trackboard-realtime/internal/core/ports"
)

// Dialer opens websocket transports against the collaborator service at
// {base}/ws/{entityType}/{entityId}?token={token}.
type Dialer struct {
	baseURL          string
	token            string
	handshakeTimeout time.Duration
	logger           *slog.Logger
}

// Ensure Dialer implements the TransportDialer interface.
var _ ports.TransportDialer = (*Dialer)(nil)

// NewDialer creates a dialer for the given websocket base URL
// (e.g. wss://tracker.example.com/api/v1).
func NewDialer(baseURL, token string, handshakeTimeout time.Duration, logger *slog.Logger) *Dialer {
	return &Dialer{
		baseURL:          baseURL,
		token:            token,
		handshakeTimeout: handshakeTimeout,
		logger:           logger.With("component", "ws_dialer"),
	}
}

// Dial opens one connection for the room.
func (d *Dialer) Dial(ctx context.Context, room domain.RoomKey) (ports.Transport, error) {
	wsURL := fmt.Sprintf("%s/ws/%s/%s?token=%s",
		d.baseURL,
		url.PathEscape(string(room.EntityType)),
		url.PathEscape(room.EntityID),
		url.QueryEscape(d.token),
	)

	dialer := websocket.Dialer{
		HandshakeTimeout: d.handshakeTimeout,
	}

	conn, resp, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			d.logger.Warn("websocket dial rejected",
				"room", room.String(),
				"status", resp.StatusCode,
			)
		}
		return nil, fmt.Errorf("dial room %s: %w", room.String(), err)
	}

	d.logger.Debug("websocket connected", "room", room.String())
	return &transport{conn: conn}, nil
}

// transport wraps one gorilla connection behind the ports.Transport
// interface. Reads and writes each have a single caller in the room
// manager; Close may race with both and is idempotent.
type transport struct {
	conn      *websocket.Conn
	closeOnce sync.Once
	closeErr  error
}

func (t *transport) ReadMessage() ([]byte, error) {
	_, data, err := t.conn.ReadMessage()
	return data, err
}

func (t *transport) WriteMessage(data []byte) error {
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *transport) Close() error {
	t.closeOnce.Do(func() {
		// Best effort close handshake before tearing the socket down.
		_ = t.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		t.closeErr = t.conn.Close()
	})
	return t.closeErr
}
