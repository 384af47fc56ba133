package devserver

import (
	"log/slog"
	"sync"
	"time"

	"github.com/lorrc/trackboard-realtime/internal/core/domain"
)

// Hub maintains the set of active sessions per room and fans events out
// to them. Each session is bound to exactly one room for its lifetime,
// mirroring the client's one-connection-per-room model.
type Hub struct {
	// rooms maps room keys to their connected sessions
	rooms map[string]map[*Session]bool

	// Register requests from sessions
	Register chan *Session

	// Unregister requests from sessions
	Unregister chan *Session

	// mu protects the rooms map
	mu sync.RWMutex

	store  *Store
	logger *slog.Logger
}

// NewHub creates a new hub backed by the given store.
func NewHub(store *Store, logger *slog.Logger) *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Session]bool),
		Register:   make(chan *Session),
		Unregister: make(chan *Session),
		store:      store,
		logger:     logger.With("component", "devserver_hub"),
	}
}

// Run starts the hub's registration loop. This MUST be run as a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case session := <-h.Register:
			h.registerSession(session)

		case session := <-h.Unregister:
			h.unregisterSession(session)
		}
	}
}

// registerSession adds a session to its room and announces the join.
func (h *Hub) registerSession(s *Session) {
	h.mu.Lock()
	if h.rooms[s.Room] == nil {
		h.rooms[s.Room] = make(map[*Session]bool)
	}
	h.rooms[s.Room][s] = true
	h.mu.Unlock()

	now := time.Now().UTC()
	h.store.TouchPresence(s.Room, s.UserID, now)
	h.Broadcast(s.Room, domain.UserJoinedEvent{UserID: s.UserID, Timestamp: now}, s)

	h.logger.Info("session joined room",
		"user_id", s.UserID,
		"room", s.Room,
		"room_size", h.RoomSize(s.Room),
	)
}

// unregisterSession removes a session and announces the leave.
func (h *Hub) unregisterSession(s *Session) {
	h.mu.Lock()
	room, ok := h.rooms[s.Room]
	if ok {
		if _, exists := room[s]; exists {
			delete(room, s)
			if len(room) == 0 {
				delete(h.rooms, s.Room)
			}
		} else {
			ok = false
		}
	}
	h.mu.Unlock()

	s.CloseSend()
	if !ok {
		return
	}

	now := time.Now().UTC()
	h.store.MarkOffline(s.Room, s.UserID, now)
	h.Broadcast(s.Room, domain.UserLeftEvent{UserID: s.UserID, Timestamp: now}, s)

	h.logger.Info("session left room",
		"user_id", s.UserID,
		"room", s.Room,
	)
}

// Broadcast encodes an event once and queues it to every session in the
// room except the excluded one (nil means everyone).
func (h *Hub) Broadcast(room string, event domain.Event, exclude *Session) {
	data, err := domain.Encode(event)
	if err != nil {
		h.logger.Error("failed to encode broadcast event",
			"kind", event.EventKind(),
			"error", err,
		)
		return
	}

	h.mu.RLock()
	sessions := make([]*Session, 0, len(h.rooms[room]))
	for s := range h.rooms[room] {
		if s != exclude {
			sessions = append(sessions, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range sessions {
		select {
		case s.Send <- data:
		default:
			// Slow consumer, drop the frame rather than block the hub
			h.logger.Warn("session send buffer full, dropping frame",
				"user_id", s.UserID,
				"room", s.Room,
				"kind", event.EventKind(),
			)
		}
	}
}

// RoomSize returns the number of sessions in a room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// RoomCount returns the number of active rooms.
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// handleInbound applies one client envelope to the store and emits the
// authoritative echo events. This is where the stub plays the role of
// the real collaborator's fan-out.
func (h *Hub) handleInbound(s *Session, data []byte) {
	event, err := domain.Decode(data)
	if err != nil {
		h.logger.Warn("discarding undecodable client envelope",
			"user_id", s.UserID,
			"room", s.Room,
			"error", err,
		)
		return
	}

	now := time.Now().UTC()
	h.store.TouchPresence(s.Room, s.UserID, now)

	switch e := event.(type) {
	case *domain.GetActiveUsersEvent:
		s.SendEvent(domain.ActiveUsersEvent{Users: h.store.ActiveUsers(s.Room)})

	case *domain.PostCommentEvent:
		comment := h.store.CreateComment(s.Room, s.UserID, e.Content, e.ParentID, now)
		h.Broadcast(s.Room, domain.NewCommentEvent{Comment: comment}, nil)

	case *domain.EditCommentEvent:
		comment, ok := h.store.UpdateComment(s.Room, e.CommentID, e.Content, now)
		if !ok {
			return
		}
		h.Broadcast(s.Room, domain.CommentUpdatedEvent{Comment: comment}, nil)

	case *domain.DeleteCommentEvent:
		if !h.store.DeleteComment(s.Room, e.CommentID) {
			return
		}
		h.Broadcast(s.Room, domain.CommentDeletedEvent{CommentID: e.CommentID}, nil)

	case *domain.ToggleReactionEvent:
		comment, ok := h.store.ToggleReaction(s.Room, e.CommentID, e.ReactionType, s.UserID)
		if !ok {
			return
		}
		h.Broadcast(s.Room, domain.ReactionUpdateEvent{
			CommentID:      comment.ID,
			Reactions:      comment.Reactions,
			ReactionCounts: comment.ReactionCounts,
		}, nil)

	case *domain.TypingEvent:
		h.Broadcast(s.Room, domain.TypingEvent{
			UserID:    s.UserID,
			IsTyping:  e.IsTyping,
			Timestamp: now,
		}, nil)

	case *domain.PingEvent:
		s.SendEvent(domain.PongEvent{})

	default:
		h.logger.Debug("ignoring unexpected client envelope",
			"kind", event.EventKind(),
			"user_id", s.UserID,
		)
	}
}
