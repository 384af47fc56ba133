package services_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/trackboard-realtime/internal/core/domain"
	"github.com/lorrc/trackboard-realtime/internal/core/services"
)

func TestPresenceTracker_SnapshotOverwritesEntries(t *testing.T) {
	bus := newStubBus()
	room := mustRoom(t, "ticket:t-1")
	ts := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	tracker, err := services.NewPresenceTracker(bus, room, services.DefaultPresenceTrackerConfig(), testLogger())
	require.NoError(t, err)
	defer tracker.Close()

	bus.emit(t, &domain.ActiveUsersEvent{Users: []domain.UserActivity{
		{UserID: "u1", LastActivity: ts},
		{UserID: "u2", LastActivity: ts.Add(-time.Minute)},
	}})

	assert.Equal(t, []string{"u1", "u2"}, tracker.OnlineUsers())

	// A later snapshot corrects stale activity timestamps.
	bus.emit(t, &domain.ActiveUsersEvent{Users: []domain.UserActivity{
		{UserID: "u2", LastActivity: ts.Add(time.Minute)},
	}})

	entry, ok := tracker.Entry("u2")
	require.True(t, ok)
	assert.True(t, entry.LastActivity.Equal(ts.Add(time.Minute)))
	assert.True(t, entry.Online)
}

func TestPresenceTracker_LeaversAreMarkedOfflineNotRemoved(t *testing.T) {
	bus := newStubBus()
	room := mustRoom(t, "ticket:t-1")
	ts := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	tracker, err := services.NewPresenceTracker(bus, room, services.DefaultPresenceTrackerConfig(), testLogger())
	require.NoError(t, err)
	defer tracker.Close()

	bus.emit(t, &domain.ActiveUsersEvent{Users: []domain.UserActivity{
		{UserID: "u1", LastActivity: ts},
	}})
	bus.emit(t, &domain.UserLeftEvent{UserID: "u1", Timestamp: ts.Add(time.Minute)})

	assert.Empty(t, tracker.OnlineUsers())

	// The entry survives with its departure time as last activity.
	entry, ok := tracker.Entry("u1")
	require.True(t, ok)
	assert.False(t, entry.Online)
	assert.True(t, entry.LastActivity.Equal(ts.Add(time.Minute)))
}

func TestPresenceTracker_JoinAndLeaveRequestFreshSnapshots(t *testing.T) {
	bus := newStubBus()
	room := mustRoom(t, "ticket:t-1")
	ts := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	tracker, err := services.NewPresenceTracker(bus, room, services.DefaultPresenceTrackerConfig(), testLogger())
	require.NoError(t, err)
	defer tracker.Close()

	bus.emit(t, &domain.UserJoinedEvent{UserID: "u3", Timestamp: ts})
	bus.emit(t, &domain.UserLeftEvent{UserID: "u3", Timestamp: ts.Add(time.Second)})

	// One snapshot request per join/leave notification self-heals any
	// individually missed event.
	assert.Len(t, bus.sentOfKind(domain.KindGetActiveUsers), 2)
	assert.Equal(t, []string{}, tracker.OnlineUsers())
}

func TestPresenceTracker_TierIsDerivedAtReadTime(t *testing.T) {
	bus := newStubBus()
	room := mustRoom(t, "ticket:t-1")
	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	now := base
	cfg := services.PresenceTrackerConfig{
		ActiveWindow: time.Minute,
		IdleWindow:   5 * time.Minute,
		Now:          func() time.Time { return now },
	}
	tracker, err := services.NewPresenceTracker(bus, room, cfg, testLogger())
	require.NoError(t, err)
	defer tracker.Close()

	bus.emit(t, &domain.ActiveUsersEvent{Users: []domain.UserActivity{
		{UserID: "u1", LastActivity: base},
	}})

	tier, ok := tracker.Tier("u1")
	require.True(t, ok)
	assert.Equal(t, domain.TierActive, tier)

	// No new events; only the clock moves.
	now = base.Add(2 * time.Minute)
	tier, _ = tracker.Tier("u1")
	assert.Equal(t, domain.TierIdle, tier)

	now = base.Add(10 * time.Minute)
	tier, _ = tracker.Tier("u1")
	assert.Equal(t, domain.TierAway, tier)

	_, ok = tracker.Tier("stranger")
	assert.False(t, ok)
}

func TestPresenceTracker_CloseDeregistersHandlers(t *testing.T) {
	bus := newStubBus()
	room := mustRoom(t, "ticket:t-1")

	tracker, err := services.NewPresenceTracker(bus, room, services.DefaultPresenceTrackerConfig(), testLogger())
	require.NoError(t, err)
	require.Equal(t, 3, bus.handlerCount())

	tracker.Close()
	assert.Equal(t, 0, bus.handlerCount())
}
