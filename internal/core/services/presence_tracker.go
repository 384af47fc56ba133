package services

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/lorrc/trackboard-realtime/internal/core/domain"
	"github.com/lorrc/trackboard-realtime/internal/core/ports"
)

// PresenceTrackerConfig holds the read-time classification windows.
type PresenceTrackerConfig struct {
	ActiveWindow time.Duration
	IdleWindow   time.Duration

	// Now is the clock; nil means time.Now. Tests inject a fixed clock.
	Now func() time.Time
}

// DefaultPresenceTrackerConfig returns the production defaults.
func DefaultPresenceTrackerConfig() PresenceTrackerConfig {
	return PresenceTrackerConfig{
		ActiveWindow: time.Minute,
		IdleWindow:   5 * time.Minute,
	}
}

// PresenceTracker keeps a consistent "who is here" view for one room.
// Join/leave delivery is not guaranteed, so the tracker re-requests a
// full snapshot on every join/leave notification; the snapshot
// unconditionally overwrites matching entries, correcting missed events.
type PresenceTracker struct {
	bus    ports.RoomBus
	room   domain.RoomKey
	cfg    PresenceTrackerConfig
	logger *slog.Logger

	mu      sync.RWMutex
	entries map[string]*domain.PresenceEntry

	subs []ports.Subscription
}

// NewPresenceTracker registers the tracker on the room's presence events.
// Registration implicitly connects the room; the connection manager
// requests the initial snapshot on open.
func NewPresenceTracker(bus ports.RoomBus, room domain.RoomKey, cfg PresenceTrackerConfig, logger *slog.Logger) (*PresenceTracker, error) {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	t := &PresenceTracker{
		bus:     bus,
		room:    room,
		cfg:     cfg,
		logger:  logger.With("component", "presence_tracker", "room", room.String()),
		entries: make(map[string]*domain.PresenceEntry),
	}

	for kind, handler := range map[domain.EventKind]ports.Handler{
		domain.KindActiveUsers: t.onSnapshot,
		domain.KindUserJoined:  t.onJoined,
		domain.KindUserLeft:    t.onLeft,
	} {
		sub, err := bus.On(room, kind, handler)
		if err != nil {
			t.Close()
			return nil, err
		}
		t.subs = append(t.subs, sub)
	}

	return t, nil
}

// Close deregisters the tracker's handlers. State remains readable.
func (t *PresenceTracker) Close() {
	for _, sub := range t.subs {
		_ = t.bus.Off(sub)
	}
	t.subs = nil
}

// Entry returns the presence entry for a user, if known.
func (t *PresenceTracker) Entry(userID string) (domain.PresenceEntry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[userID]
	if !ok {
		return domain.PresenceEntry{}, false
	}
	return *e, true
}

// Entries returns all known presence entries, sorted by user ID.
func (t *PresenceTracker) Entries() []domain.PresenceEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]domain.PresenceEntry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// OnlineUsers returns the users currently marked online, sorted.
func (t *PresenceTracker) OnlineUsers() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]string, 0, len(t.entries))
	for id, e := range t.entries {
		if e.Online {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// Tier classifies a user's activity at read time. The tiering is derived
// from LastActivity, never stored.
func (t *PresenceTracker) Tier(userID string) (domain.ActivityTier, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[userID]
	if !ok {
		return "", false
	}
	return domain.ClassifyActivity(e.LastActivity, t.cfg.Now(), t.cfg.ActiveWindow, t.cfg.IdleWindow), true
}

func (t *PresenceTracker) onSnapshot(event domain.Event) {
	snapshot, ok := event.(*domain.ActiveUsersEvent)
	if !ok {
		return
	}

	t.mu.Lock()
	for _, u := range snapshot.Users {
		t.entries[u.UserID] = &domain.PresenceEntry{
			UserID:       u.UserID,
			Online:       true,
			LastActivity: u.LastActivity,
		}
	}
	t.mu.Unlock()

	t.logger.Debug("applied presence snapshot", "users", len(snapshot.Users))
}

func (t *PresenceTracker) onJoined(event domain.Event) {
	joined, ok := event.(*domain.UserJoinedEvent)
	if !ok {
		return
	}

	t.mu.Lock()
	t.entries[joined.UserID] = &domain.PresenceEntry{
		UserID:       joined.UserID,
		Online:       true,
		LastActivity: joined.Timestamp,
	}
	t.mu.Unlock()

	t.requestSnapshot()
}

func (t *PresenceTracker) onLeft(event domain.Event) {
	left, ok := event.(*domain.UserLeftEvent)
	if !ok {
		return
	}

	// Leavers are marked offline, never removed, so "last seen" survives.
	t.mu.Lock()
	t.entries[left.UserID] = &domain.PresenceEntry{
		UserID:       left.UserID,
		Online:       false,
		LastActivity: left.Timestamp,
	}
	t.mu.Unlock()

	t.requestSnapshot()
}

// requestSnapshot re-requests the authoritative user list. Running it on
// every join/leave self-heals any individually missed event.
func (t *PresenceTracker) requestSnapshot() {
	if err := t.bus.Send(t.room, domain.GetActiveUsersEvent{}); err != nil {
		t.logger.Debug("snapshot request not sent", "error", err)
	}
}
