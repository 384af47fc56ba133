package services

import (
	"log/slog"
	"sync"

	"github.com/lorrc/trackboard-realtime/internal/core/domain"
	"github.com/lorrc/trackboard-realtime/internal/core/ports"
)

// CommentSync maintains the authoritative in-memory comment set for one
// room from server-pushed events. It performs no local optimistic
// insertion of the sender's own comments: the server echo is the single
// source of truth, which keeps merging to one code path.
type CommentSync struct {
	bus    ports.RoomBus
	room   domain.RoomKey
	logger *slog.Logger

	mu    sync.RWMutex
	order []string
	byID  map[string]*domain.Comment

	subs []ports.Subscription
}

// NewCommentSync registers the engine on the room's comment events.
func NewCommentSync(bus ports.RoomBus, room domain.RoomKey, logger *slog.Logger) (*CommentSync, error) {
	s := &CommentSync{
		bus:    bus,
		room:   room,
		logger: logger.With("component", "comment_sync", "room", room.String()),
		byID:   make(map[string]*domain.Comment),
	}

	for kind, handler := range map[domain.EventKind]ports.Handler{
		domain.KindNewComment:     s.onComment,
		domain.KindCommentUpdated: s.onComment,
		domain.KindCommentDeleted: s.onDeleted,
		domain.KindReactionUpdate: s.onReaction,
	} {
		sub, err := bus.On(room, kind, handler)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.subs = append(s.subs, sub)
	}

	return s, nil
}

// Close deregisters the engine's handlers. State remains readable.
func (s *CommentSync) Close() {
	for _, sub := range s.subs {
		_ = s.bus.Off(sub)
	}
	s.subs = nil
}

// PostComment submits a new comment over the room connection. The
// comment appears in the set only once the server echoes it back.
func (s *CommentSync) PostComment(content string, parentID *string) error {
	return s.bus.Send(s.room, domain.PostCommentEvent{Content: content, ParentID: parentID})
}

// EditComment submits a content change for an existing comment.
func (s *CommentSync) EditComment(commentID, content string) error {
	return s.bus.Send(s.room, domain.EditCommentEvent{CommentID: commentID, Content: content})
}

// DeleteComment requests removal of a comment.
func (s *CommentSync) DeleteComment(commentID string) error {
	return s.bus.Send(s.room, domain.DeleteCommentEvent{CommentID: commentID})
}

// ToggleReaction toggles the local user's reaction on a comment.
func (s *CommentSync) ToggleReaction(commentID, reactionType string) error {
	return s.bus.Send(s.room, domain.ToggleReactionEvent{CommentID: commentID, ReactionType: reactionType})
}

// Get returns a copy of one comment by id.
func (s *CommentSync) Get(commentID string) (*domain.Comment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byID[commentID]
	if !ok {
		return nil, false
	}
	return c.Clone(), true
}

// Comments returns copies of all comments in arrival order.
func (s *CommentSync) Comments() []*domain.Comment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Comment, 0, len(s.order))
	for _, id := range s.order {
		if c, ok := s.byID[id]; ok {
			out = append(out, c.Clone())
		}
	}
	return out
}

// Thread builds the nested view on read: comments grouped by parent,
// top-level entries at the roots, arbitrary depth.
func (s *CommentSync) Thread() []*domain.ThreadNode {
	return domain.BuildThread(s.Comments())
}

// Len returns the number of comments currently held.
func (s *CommentSync) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// onComment upserts by id: absent comments are appended, existing ones
// replaced in place so updates preserve position.
func (s *CommentSync) onComment(event domain.Event) {
	var comment domain.Comment
	switch e := event.(type) {
	case *domain.NewCommentEvent:
		comment = e.Comment
	case *domain.CommentUpdatedEvent:
		comment = e.Comment
	default:
		return
	}
	if comment.ID == "" {
		s.logger.Warn("discarding comment event without id")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[comment.ID]; !ok {
		s.order = append(s.order, comment.ID)
	}
	s.byID[comment.ID] = comment.Clone()
}

func (s *CommentSync) onDeleted(event domain.Event) {
	deleted, ok := event.(*domain.CommentDeletedEvent)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[deleted.CommentID]; !ok {
		return
	}
	delete(s.byID, deleted.CommentID)
	for i, id := range s.order {
		if id == deleted.CommentID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// onReaction patches the reaction state of the matching comment only.
// An unknown comment id is ignored rather than treated as an error: the
// comment may have been deleted under a concurrent editor.
func (s *CommentSync) onReaction(event domain.Event) {
	update, ok := event.(*domain.ReactionUpdateEvent)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	comment, ok := s.byID[update.CommentID]
	if !ok {
		s.logger.Debug("reaction update for unknown comment, ignoring",
			"comment_id", update.CommentID,
		)
		return
	}

	comment.SetReactions(update.Reactions)
	for reactionType, count := range update.ReactionCounts {
		if got := len(update.Reactions[reactionType]); got != count {
			s.logger.Warn("server reaction counts disagree with sets, using set sizes",
				"comment_id", update.CommentID,
				"reaction_type", reactionType,
				"server_count", count,
				"set_size", got,
			)
		}
	}
}
