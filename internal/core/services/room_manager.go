package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/lorrc/trackboard-realtime/internal/core/domain"
	apperrors "github.com/lorrc/trackboard-realtime/internal/core/errors"
	"github.com/lorrc/trackboard-realtime/internal/core/ports"
	"github.com/lorrc/trackboard-realtime/internal/infrastructure/logging"
)

// ConnState is the connection lifecycle state of a room.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateBackoff
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateBackoff:
		return "backoff"
	default:
		return "unknown"
	}
}

// RoomManagerConfig holds the connection behavior knobs.
type RoomManagerConfig struct {
	KeepaliveInterval time.Duration
	ReconnectMinWait  time.Duration
	ReconnectMaxWait  time.Duration
	SendQueueSize     int
	SendRatePerSecond float64
	SendBurst         int
	DialTimeout       time.Duration
}

// DefaultRoomManagerConfig returns the production defaults.
func DefaultRoomManagerConfig() RoomManagerConfig {
	return RoomManagerConfig{
		KeepaliveInterval: 30 * time.Second,
		ReconnectMinWait:  time.Second,
		ReconnectMaxWait:  30 * time.Second,
		SendQueueSize:     64,
		SendRatePerSecond: 20,
		SendBurst:         40,
		DialTimeout:       10 * time.Second,
	}
}

// RoomManager multiplexes one transport connection per room and fans
// inbound events out to registered listeners. It is an explicitly
// constructed instance, passed by reference to consumers; there is no
// package-level singleton.
type RoomManager struct {
	dialer ports.TransportDialer
	cfg    RoomManagerConfig
	logger *slog.Logger

	mu    sync.RWMutex
	rooms map[string]*room
}

// Ensure RoomManager implements the RoomBus interface.
var _ ports.RoomBus = (*RoomManager)(nil)

type handlerEntry struct {
	id      uuid.UUID
	handler ports.Handler
}

// room is the per-room connection record. Handlers live here, not on the
// transport, so they survive reconnects.
type room struct {
	key    domain.RoomKey
	cancel context.CancelFunc

	mu        sync.RWMutex
	state     ConnState
	transport ports.Transport
	handlers  map[domain.EventKind][]handlerEntry
	queue     []domain.Event

	// writeMu serializes writes; the transport allows one writer at a
	// time and writes come from callers, the keepalive and the flush.
	writeMu sync.Mutex

	limiter *rate.Limiter
}

// NewRoomManager creates a room connection manager.
func NewRoomManager(dialer ports.TransportDialer, cfg RoomManagerConfig, logger *slog.Logger) *RoomManager {
	if cfg.KeepaliveInterval <= 0 {
		cfg = DefaultRoomManagerConfig()
	}
	return &RoomManager{
		dialer: dialer,
		cfg:    cfg,
		logger: logger.With("component", "room_manager"),
		rooms:  make(map[string]*room),
	}
}

// Connect opens the transport for a room. Idempotent: if the room already
// has a live connection (or is connecting), this is a no-op.
func (m *RoomManager) Connect(key domain.RoomKey) error {
	m.mu.Lock()
	if _, ok := m.rooms[key.String()]; ok {
		m.mu.Unlock()
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &room{
		key:      key,
		cancel:   cancel,
		state:    StateConnecting,
		handlers: make(map[domain.EventKind][]handlerEntry),
		limiter:  rate.NewLimiter(rate.Limit(m.cfg.SendRatePerSecond), m.cfg.SendBurst),
	}
	m.rooms[key.String()] = r
	m.mu.Unlock()

	go m.run(ctx, r)
	return nil
}

// On registers a handler for an event kind on a room. Registration is
// connection-establishing: a room without a connection is connected
// first. The returned subscription is the removal handle.
func (m *RoomManager) On(key domain.RoomKey, kind domain.EventKind, handler ports.Handler) (ports.Subscription, error) {
	if err := m.Connect(key); err != nil {
		return ports.Subscription{}, err
	}

	r := m.room(key)
	if r == nil {
		return ports.Subscription{}, apperrors.ErrRoomClosed
	}

	sub := ports.Subscription{ID: uuid.New(), Room: key, Kind: kind}

	r.mu.Lock()
	r.handlers[kind] = append(r.handlers[kind], handlerEntry{id: sub.ID, handler: handler})
	r.mu.Unlock()

	return sub, nil
}

// Off removes a previously registered handler by its subscription handle.
func (m *RoomManager) Off(sub ports.Subscription) error {
	r := m.room(sub.Room)
	if r == nil {
		return apperrors.ErrSubscriptionGone
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.handlers[sub.Kind]
	for i, e := range entries {
		if e.id == sub.ID {
			r.handlers[sub.Kind] = append(entries[:i], entries[i+1:]...)
			if len(r.handlers[sub.Kind]) == 0 {
				delete(r.handlers, sub.Kind)
			}
			return nil
		}
	}
	return apperrors.ErrSubscriptionGone
}

// Send transmits an envelope on a room's connection. While the room is
// reconnecting, envelopes are held in a bounded queue and flushed once
// the connection is back; when the queue is full the oldest entry is
// dropped with a warning.
func (m *RoomManager) Send(key domain.RoomKey, event domain.Event) error {
	r := m.room(key)
	if r == nil {
		m.logger.Warn("send on unknown room, dropping message",
			"room", key.String(),
			"kind", event.EventKind(),
		)
		return apperrors.ErrRoomNotConnected
	}

	if !r.limiter.Allow() {
		m.logger.Warn("outbound rate limit exceeded, dropping message",
			"room", key.String(),
			"kind", event.EventKind(),
		)
		return apperrors.ErrRateLimited
	}

	r.mu.Lock()
	if r.state != StateConnected {
		if len(r.queue) >= m.cfg.SendQueueSize {
			dropped := r.queue[0]
			r.queue = r.queue[1:]
			m.logger.Warn("outbound queue full, dropping oldest message",
				"room", key.String(),
				"dropped_kind", dropped.EventKind(),
			)
		}
		r.queue = append(r.queue, event)
		state := r.state
		r.mu.Unlock()
		m.logger.Debug("room not connected, message queued",
			"room", key.String(),
			"kind", event.EventKind(),
			"state", state.String(),
		)
		return nil
	}
	transport := r.transport
	r.mu.Unlock()

	return m.write(r, transport, event)
}

// Disconnect closes the room's transport, clears its handler registry and
// removes the room entry entirely. The next Connect/On starts fresh.
func (m *RoomManager) Disconnect(key domain.RoomKey) {
	m.mu.Lock()
	r, ok := m.rooms[key.String()]
	if ok {
		delete(m.rooms, key.String())
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	r.cancel()

	r.mu.Lock()
	transport := r.transport
	r.transport = nil
	r.state = StateDisconnected
	r.handlers = make(map[domain.EventKind][]handlerEntry)
	r.queue = nil
	r.mu.Unlock()

	if transport != nil {
		_ = transport.Close()
	}

	m.logger.Info("room disconnected", "room", key.String())
}

// IsConnected reports whether the room currently has a live connection.
func (m *RoomManager) IsConnected(key domain.RoomKey) bool {
	r := m.room(key)
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state == StateConnected
}

// State returns the room's connection lifecycle state.
func (m *RoomManager) State(key domain.RoomKey) ConnState {
	r := m.room(key)
	if r == nil {
		return StateDisconnected
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Close disconnects every room. Intended for application shutdown.
func (m *RoomManager) Close() {
	m.mu.RLock()
	keys := make([]domain.RoomKey, 0, len(m.rooms))
	for _, r := range m.rooms {
		keys = append(keys, r.key)
	}
	m.mu.RUnlock()

	for _, key := range keys {
		m.Disconnect(key)
	}
}

func (m *RoomManager) room(key domain.RoomKey) *room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rooms[key.String()]
}

// run drives the room's connection state machine:
// Connecting -> Connected -> Backoff(n) -> Connecting, until cancelled.
func (m *RoomManager) run(ctx context.Context, r *room) {
	wait := m.cfg.ReconnectMinWait
	logger := m.logger.With("room", r.key.String())

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		r.setState(StateConnecting)

		var transport ports.Transport
		var err error
		if m.cfg.DialTimeout > 0 {
			dialCtx, cancel := context.WithTimeout(ctx, m.cfg.DialTimeout)
			transport, err = m.dialer.Dial(dialCtx, r.key)
			cancel()
		} else {
			transport, err = m.dialer.Dial(ctx, r.key)
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			r.setState(StateBackoff)
			logger.Warn("connection failed", "error", err, "retry_in", wait.String())
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
			wait *= 2
			if wait > m.cfg.ReconnectMaxWait {
				wait = m.cfg.ReconnectMaxWait
			}
			continue
		}

		r.mu.Lock()
		r.transport = transport
		r.state = StateConnected
		r.mu.Unlock()
		wait = m.cfg.ReconnectMinWait
		logger.Info("room connected")

		// Upon open: request the presence snapshot, then flush whatever
		// queued up while we were away.
		if err := m.write(r, transport, domain.GetActiveUsersEvent{}); err != nil {
			logger.Warn("failed to request presence snapshot", "error", err)
		}
		m.flushQueue(r, transport, logger)

		// Keepalive ping, scoped to this connection.
		pingDone := make(chan struct{})
		go m.keepalive(ctx, r, transport, pingDone, logger)

		readErr := m.readLoop(ctx, r, transport, logger)
		close(pingDone)

		r.mu.Lock()
		r.transport = nil
		r.state = StateDisconnected
		r.mu.Unlock()
		_ = transport.Close()

		if ctx.Err() != nil {
			return
		}
		logger.Warn("transport closed, reconnecting", "error", readErr)
	}
}

// keepalive sends a ping on a fixed cadence. It self-cancels when the
// connection it was started for goes away.
func (m *RoomManager) keepalive(ctx context.Context, r *room, transport ports.Transport, done <-chan struct{}, logger *slog.Logger) {
	ticker := time.NewTicker(m.cfg.KeepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			if err := m.write(r, transport, domain.PingEvent{}); err != nil {
				logger.Debug("keepalive write failed", "error", err)
				return
			}
		}
	}
}

// readLoop pumps inbound messages into dispatch until the transport
// fails or the room is cancelled.
func (m *RoomManager) readLoop(ctx context.Context, r *room, transport ports.Transport, logger *slog.Logger) error {
	for {
		data, err := transport.ReadMessage()
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		event, err := domain.Decode(data)
		if err != nil {
			logger.Warn("discarding undecodable envelope", "error", err)
			continue
		}
		m.dispatch(r, event, logger)
	}
}

// dispatch invokes the handlers registered for the event's kind, in
// registration order. Handlers run against a snapshot of the list, so
// removal during dispatch cannot corrupt the iteration. A panicking
// handler is recovered and logged; its siblings still run.
func (m *RoomManager) dispatch(r *room, event domain.Event, logger *slog.Logger) {
	r.mu.RLock()
	entries := r.handlers[event.EventKind()]
	snapshot := make([]handlerEntry, len(entries))
	copy(snapshot, entries)
	r.mu.RUnlock()

	for _, entry := range snapshot {
		m.invoke(entry, event, logger)
	}
}

func (m *RoomManager) invoke(entry handlerEntry, event domain.Event, logger *slog.Logger) {
	defer func() {
		if rec := recover(); rec != nil {
			logging.LogPanic(logger.With(
				"handler_id", entry.id.String(),
				"kind", event.EventKind(),
			), rec)
		}
	}()
	entry.handler(event)
}

func (m *RoomManager) flushQueue(r *room, transport ports.Transport, logger *slog.Logger) {
	r.mu.Lock()
	pending := r.queue
	r.queue = nil
	r.mu.Unlock()

	for i, event := range pending {
		if err := m.write(r, transport, event); err != nil {
			logger.Warn("flush interrupted, re-queueing remainder",
				"sent", i,
				"remaining", len(pending)-i,
				"error", err,
			)
			r.mu.Lock()
			r.queue = append(pending[i:], r.queue...)
			r.mu.Unlock()
			return
		}
	}
	if len(pending) > 0 {
		logger.Debug("flushed outbound queue", "count", len(pending))
	}
}

func (m *RoomManager) write(r *room, transport ports.Transport, event domain.Event) error {
	data, err := domain.Encode(event)
	if err != nil {
		return err
	}
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	return transport.WriteMessage(data)
}

func (r *room) setState(s ConnState) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}
