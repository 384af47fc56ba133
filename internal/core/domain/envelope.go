package domain

import (
	"encoding/json"
	"fmt"
	"time"

	apperrors "github.com/lorrc/trackboard-realtime/internal/core/errors"
)

// EventKind discriminates the wire envelope. The payload fields sit flat
// next to the kind in one JSON object, one message per logical event.
type EventKind string

// Outbound kinds (client -> server).
const (
	KindGetActiveUsers EventKind = "get_active_users"
	KindPostComment    EventKind = "comment"
	KindEditComment    EventKind = "edit_comment"
	KindDeleteComment  EventKind = "delete_comment"
	KindToggleReaction EventKind = "reaction"
	KindSetTyping      EventKind = "typing"
	KindPing           EventKind = "ping"
)

// Inbound kinds (server -> client).
const (
	KindActiveUsers    EventKind = "active_users"
	KindUserJoined     EventKind = "user_joined"
	KindUserLeft       EventKind = "user_left"
	KindNewComment     EventKind = "new_comment"
	KindCommentUpdated EventKind = "comment_updated"
	KindCommentDeleted EventKind = "comment_deleted"
	KindReactionUpdate EventKind = "reaction_update"
	KindTyping         EventKind = "typing"
	KindPong           EventKind = "pong"
)

// Event is implemented by every typed envelope payload.
type Event interface {
	EventKind() EventKind
}

// --- Outbound events ---

// GetActiveUsersEvent requests a full presence snapshot for the room.
type GetActiveUsersEvent struct{}

func (GetActiveUsersEvent) EventKind() EventKind { return KindGetActiveUsers }

// PostCommentEvent submits a new comment. ParentID is nil for top-level
// comments.
type PostCommentEvent struct {
	Content  string  `json:"content"`
	ParentID *string `json:"parent_id,omitempty"`
}

func (PostCommentEvent) EventKind() EventKind { return KindPostComment }

// EditCommentEvent replaces the content of an existing comment.
type EditCommentEvent struct {
	CommentID string `json:"comment_id"`
	Content   string `json:"content"`
}

func (EditCommentEvent) EventKind() EventKind { return KindEditComment }

// DeleteCommentEvent removes a comment.
type DeleteCommentEvent struct {
	CommentID string `json:"comment_id"`
}

func (DeleteCommentEvent) EventKind() EventKind { return KindDeleteComment }

// ToggleReactionEvent toggles the sender's reaction of the given type.
type ToggleReactionEvent struct {
	CommentID    string `json:"comment_id"`
	ReactionType string `json:"reaction_type"`
}

func (ToggleReactionEvent) EventKind() EventKind { return KindToggleReaction }

// SetTypingEvent announces the local user's typing state.
type SetTypingEvent struct {
	IsTyping bool `json:"is_typing"`
}

func (SetTypingEvent) EventKind() EventKind { return KindSetTyping }

// PingEvent is the application-level keepalive.
type PingEvent struct{}

func (PingEvent) EventKind() EventKind { return KindPing }

// --- Inbound events ---

// UserActivity is one entry of a presence snapshot.
type UserActivity struct {
	UserID       string    `json:"user_id"`
	LastActivity time.Time `json:"last_activity"`
}

// ActiveUsersEvent is the authoritative presence snapshot.
type ActiveUsersEvent struct {
	Users []UserActivity `json:"users"`
}

func (ActiveUsersEvent) EventKind() EventKind { return KindActiveUsers }

// UserJoinedEvent signals that a user entered the room.
type UserJoinedEvent struct {
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

func (UserJoinedEvent) EventKind() EventKind { return KindUserJoined }

// UserLeftEvent signals that a user left the room.
type UserLeftEvent struct {
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

func (UserLeftEvent) EventKind() EventKind { return KindUserLeft }

// NewCommentEvent carries the server echo of a created comment.
type NewCommentEvent struct {
	Comment Comment `json:"comment"`
}

func (NewCommentEvent) EventKind() EventKind { return KindNewComment }

// CommentUpdatedEvent carries the full updated comment.
type CommentUpdatedEvent struct {
	Comment Comment `json:"comment"`
}

func (CommentUpdatedEvent) EventKind() EventKind { return KindCommentUpdated }

// CommentDeletedEvent identifies a removed comment.
type CommentDeletedEvent struct {
	CommentID string `json:"comment_id"`
}

func (CommentDeletedEvent) EventKind() EventKind { return KindCommentDeleted }

// ReactionUpdateEvent patches the reaction state of one comment.
type ReactionUpdateEvent struct {
	CommentID      string              `json:"comment_id"`
	Reactions      map[string][]string `json:"reactions"`
	ReactionCounts map[string]int      `json:"reaction_counts"`
}

func (ReactionUpdateEvent) EventKind() EventKind { return KindReactionUpdate }

// TypingEvent reports another user's typing state.
type TypingEvent struct {
	UserID    string    `json:"user_id"`
	IsTyping  bool      `json:"is_typing"`
	Timestamp time.Time `json:"timestamp"`
}

func (TypingEvent) EventKind() EventKind { return KindTyping }

// PongEvent answers a ping.
type PongEvent struct{}

func (PongEvent) EventKind() EventKind { return KindPong }

// --- Codec ---

// Encode serializes an event into its wire envelope, splicing the kind
// discriminator next to the payload fields.
func Encode(e Event) ([]byte, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode %s envelope: %w", e.EventKind(), err)
	}

	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("encode %s envelope: %w", e.EventKind(), err)
	}

	kind, err := json.Marshal(e.EventKind())
	if err != nil {
		return nil, err
	}
	fields["kind"] = kind

	return json.Marshal(fields)
}

// Decode parses a wire envelope into its typed event. The kind is
// validated here, at the transport boundary, so handlers only ever see
// well-formed payloads.
func Decode(data []byte) (Event, error) {
	var head struct {
		Kind EventKind `json:"kind"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrMalformedEnvelope, err)
	}

	var event Event
	switch head.Kind {
	case KindGetActiveUsers:
		event = &GetActiveUsersEvent{}
	case KindPostComment:
		event = &PostCommentEvent{}
	case KindEditComment:
		event = &EditCommentEvent{}
	case KindDeleteComment:
		event = &DeleteCommentEvent{}
	case KindToggleReaction:
		event = &ToggleReactionEvent{}
	case KindPing:
		event = &PingEvent{}
	case KindActiveUsers:
		event = &ActiveUsersEvent{}
	case KindUserJoined:
		event = &UserJoinedEvent{}
	case KindUserLeft:
		event = &UserLeftEvent{}
	case KindNewComment:
		event = &NewCommentEvent{}
	case KindCommentUpdated:
		event = &CommentUpdatedEvent{}
	case KindCommentDeleted:
		event = &CommentDeletedEvent{}
	case KindReactionUpdate:
		event = &ReactionUpdateEvent{}
	case KindTyping:
		// "typing" is used in both directions; the inbound shape is a
		// superset of the outbound one, so decode to the inbound type.
		event = &TypingEvent{}
	case KindPong:
		event = &PongEvent{}
	default:
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownEnvelopeKind, head.Kind)
	}

	if err := json.Unmarshal(data, event); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrMalformedEnvelope, err)
	}
	return event, nil
}
