package services

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/lorrc/trackboard-realtime/internal/core/domain"
	"github.com/lorrc/trackboard-realtime/internal/core/ports"
)

// TypingCoordinatorConfig holds the typing indicator timing knobs.
type TypingCoordinatorConfig struct {
	Debounce      time.Duration // keystroke debounce before typing=true
	StopAfter     time.Duration // inactivity before typing=false
	SweepInterval time.Duration // remote entry sweep cadence
	Expiry        time.Duration // remote entry max age without refresh

	// Now is the clock; nil means time.Now. Tests inject a fixed clock.
	Now func() time.Time
}

// DefaultTypingCoordinatorConfig returns the production defaults.
func DefaultTypingCoordinatorConfig() TypingCoordinatorConfig {
	return TypingCoordinatorConfig{
		Debounce:      300 * time.Millisecond,
		StopAfter:     2 * time.Second,
		SweepInterval: time.Second,
		Expiry:        4 * time.Second,
	}
}

// TypingCoordinator debounces the local user's keystrokes into
// typing-start/stop signals and expires remote typing entries that stop
// refreshing. The expiry sweep bounds the damage of a lost "stopped
// typing" signal to one sweep interval.
type TypingCoordinator struct {
	bus         ports.RoomBus
	room        domain.RoomKey
	localUserID string
	cfg         TypingCoordinatorConfig
	logger      *slog.Logger

	mu            sync.Mutex
	remote        map[string]domain.TypingEntry
	localTyping   bool
	debounceTimer *time.Timer
	stopTimer     *time.Timer

	sub       ports.Subscription
	sweepDone chan struct{}
	closeOnce sync.Once
}

// NewTypingCoordinator registers on the room's typing events and starts
// the expiry sweep. localUserID filters the server echo of our own
// typing signals.
func NewTypingCoordinator(bus ports.RoomBus, room domain.RoomKey, localUserID string, cfg TypingCoordinatorConfig, logger *slog.Logger) (*TypingCoordinator, error) {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	c := &TypingCoordinator{
		bus:         bus,
		room:        room,
		localUserID: localUserID,
		cfg:         cfg,
		logger:      logger.With("component", "typing_coordinator", "room", room.String()),
		remote:      make(map[string]domain.TypingEntry),
		sweepDone:   make(chan struct{}),
	}

	sub, err := bus.On(room, domain.KindTyping, c.onTyping)
	if err != nil {
		return nil, err
	}
	c.sub = sub

	go c.sweepLoop()
	return c, nil
}

// Close releases the coordinator's timers and handler registration, and
// tells the room we stopped typing if a start signal went out. Must be
// called on view teardown; the sweep goroutine leaks otherwise.
func (c *TypingCoordinator) Close() {
	c.closeOnce.Do(func() {
		close(c.sweepDone)
		_ = c.bus.Off(c.sub)

		c.mu.Lock()
		if c.debounceTimer != nil {
			c.debounceTimer.Stop()
			c.debounceTimer = nil
		}
		if c.stopTimer != nil {
			c.stopTimer.Stop()
			c.stopTimer = nil
		}
		wasTyping := c.localTyping
		c.localTyping = false
		c.mu.Unlock()

		if wasTyping {
			c.send(false)
		}
	})
}

// Keystroke records local typing activity. The first keystroke of a
// burst schedules a debounced typing=true; every keystroke pushes the
// inactivity stop out by StopAfter.
func (c *TypingCoordinator) Keystroke() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopTimer == nil {
		c.stopTimer = time.AfterFunc(c.cfg.StopAfter, c.emitStop)
	} else {
		c.stopTimer.Reset(c.cfg.StopAfter)
	}

	if c.localTyping || c.debounceTimer != nil {
		return
	}
	c.debounceTimer = time.AfterFunc(c.cfg.Debounce, c.emitStart)
}

// TypingUsers returns the users currently considered typing, sorted.
// Entries past the expiry window are excluded even if the sweep has not
// caught up with them yet.
func (c *TypingCoordinator) TypingUsers() []string {
	now := c.cfg.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]string, 0, len(c.remote))
	for id, entry := range c.remote {
		if now.Sub(entry.RefreshedAt) < c.cfg.Expiry {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func (c *TypingCoordinator) emitStart() {
	c.mu.Lock()
	c.debounceTimer = nil
	if c.localTyping {
		c.mu.Unlock()
		return
	}
	c.localTyping = true
	c.mu.Unlock()

	c.send(true)
}

func (c *TypingCoordinator) emitStop() {
	c.mu.Lock()
	c.stopTimer = nil
	if c.debounceTimer != nil {
		c.debounceTimer.Stop()
		c.debounceTimer = nil
	}
	wasTyping := c.localTyping
	c.localTyping = false
	c.mu.Unlock()

	if wasTyping {
		c.send(false)
	}
}

// send emits the typing state; both directions are idempotent at the
// receiver, so a duplicate costs nothing.
func (c *TypingCoordinator) send(isTyping bool) {
	if err := c.bus.Send(c.room, domain.SetTypingEvent{IsTyping: isTyping}); err != nil {
		c.logger.Debug("typing signal not sent", "is_typing", isTyping, "error", err)
	}
}

func (c *TypingCoordinator) onTyping(event domain.Event) {
	typing, ok := event.(*domain.TypingEvent)
	if !ok {
		return
	}
	if typing.UserID == c.localUserID {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if typing.IsTyping {
		// Refresh against the local clock, not the event timestamp, so
		// remote clock skew cannot make an entry expire early.
		c.remote[typing.UserID] = domain.TypingEntry{
			UserID:      typing.UserID,
			RefreshedAt: c.cfg.Now(),
		}
	} else {
		delete(c.remote, typing.UserID)
	}
}

func (c *TypingCoordinator) sweepLoop() {
	ticker := time.NewTicker(c.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.sweepDone:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *TypingCoordinator) sweep() {
	now := c.cfg.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for id, entry := range c.remote {
		if now.Sub(entry.RefreshedAt) >= c.cfg.Expiry {
			delete(c.remote, id)
		}
	}
}
