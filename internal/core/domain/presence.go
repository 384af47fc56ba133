package domain

import "time"

// PresenceEntry records what we know about one user in a room. Entries
// are overwritten by every join/leave/snapshot event and never removed:
// a user who leaves is marked offline, which preserves "last seen".
type PresenceEntry struct {
	UserID       string    `json:"user_id"`
	Online       bool      `json:"online"`
	LastActivity time.Time `json:"last_activity"`
}

// ActivityTier is the read-time classification of a presence entry. It
// is derived from LastActivity on demand, never stored.
type ActivityTier string

const (
	TierActive ActivityTier = "active"
	TierIdle   ActivityTier = "idle"
	TierAway   ActivityTier = "away"
)

// ClassifyActivity buckets a last-activity timestamp into a tier given
// the active and idle windows (activeWindow < idleWindow).
func ClassifyActivity(lastActivity, now time.Time, activeWindow, idleWindow time.Duration) ActivityTier {
	since := now.Sub(lastActivity)
	switch {
	case since < activeWindow:
		return TierActive
	case since < idleWindow:
		return TierIdle
	default:
		return TierAway
	}
}

// TypingEntry records that a user reported typing. Entries are ephemeral:
// a sweep removes them once they outlive the expiry window, and an
// explicit stop-typing event removes them immediately.
type TypingEntry struct {
	UserID      string
	RefreshedAt time.Time
}
