package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/trackboard-realtime/internal/core/domain"
	apperrors "github.com/lorrc/trackboard-realtime/internal/core/errors"
)

func TestEncode_SplicesKindIntoPayload(t *testing.T) {
	parent := "c1"
	data, err := domain.Encode(domain.PostCommentEvent{Content: "hello", ParentID: &parent})
	require.NoError(t, err)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &fields))

	assert.JSONEq(t, `"comment"`, string(fields["kind"]))
	assert.JSONEq(t, `"hello"`, string(fields["content"]))
	assert.JSONEq(t, `"c1"`, string(fields["parent_id"]))
}

func TestDecode_RoundTrip(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	tests := []struct {
		name  string
		event domain.Event
	}{
		{"edit comment", domain.EditCommentEvent{CommentID: "c7", Content: "revised"}},
		{"delete comment", domain.DeleteCommentEvent{CommentID: "c7"}},
		{"toggle reaction", domain.ToggleReactionEvent{CommentID: "c7", ReactionType: "thumbs_up"}},
		{"user joined", domain.UserJoinedEvent{UserID: "u1", Timestamp: ts}},
		{"user left", domain.UserLeftEvent{UserID: "u1", Timestamp: ts}},
		{"comment deleted", domain.CommentDeletedEvent{CommentID: "c9"}},
		{"active users", domain.ActiveUsersEvent{Users: []domain.UserActivity{
			{UserID: "u1", LastActivity: ts},
			{UserID: "u2", LastActivity: ts.Add(-time.Minute)},
		}}},
		{"reaction update", domain.ReactionUpdateEvent{
			CommentID:      "c7",
			Reactions:      map[string][]string{"heart": {"u1", "u2"}},
			ReactionCounts: map[string]int{"heart": 2},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := domain.Encode(tt.event)
			require.NoError(t, err)

			decoded, err := domain.Decode(data)
			require.NoError(t, err)

			// Decode returns pointers; compare against the addressable form.
			assert.Equal(t, tt.event.EventKind(), decoded.EventKind())
			decodedJSON, err := domain.Encode(decoded)
			require.NoError(t, err)
			assert.JSONEq(t, string(data), string(decodedJSON))
		})
	}
}

func TestDecode_NewCommentCarriesFullComment(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	data, err := domain.Encode(domain.NewCommentEvent{Comment: domain.Comment{
		ID:        "c1",
		Content:   "first",
		AuthorID:  "u1",
		CreatedAt: ts,
		UpdatedAt: ts,
	}})
	require.NoError(t, err)

	decoded, err := domain.Decode(data)
	require.NoError(t, err)

	event, ok := decoded.(*domain.NewCommentEvent)
	require.True(t, ok)
	assert.Equal(t, "c1", event.Comment.ID)
	assert.Equal(t, "first", event.Comment.Content)
	assert.Equal(t, "u1", event.Comment.AuthorID)
	assert.True(t, ts.Equal(event.Comment.CreatedAt))
}

func TestDecode_TypingServesBothDirections(t *testing.T) {
	t.Run("inbound shape with user id", func(t *testing.T) {
		decoded, err := domain.Decode([]byte(`{"kind":"typing","user_id":"u2","is_typing":true}`))
		require.NoError(t, err)

		typing, ok := decoded.(*domain.TypingEvent)
		require.True(t, ok)
		assert.Equal(t, "u2", typing.UserID)
		assert.True(t, typing.IsTyping)
	})

	t.Run("outbound shape without user id", func(t *testing.T) {
		data, err := domain.Encode(domain.SetTypingEvent{IsTyping: false})
		require.NoError(t, err)

		decoded, err := domain.Decode(data)
		require.NoError(t, err)

		typing, ok := decoded.(*domain.TypingEvent)
		require.True(t, ok)
		assert.Empty(t, typing.UserID)
		assert.False(t, typing.IsTyping)
	})
}

func TestDecode_Errors(t *testing.T) {
	t.Run("unknown kind", func(t *testing.T) {
		_, err := domain.Decode([]byte(`{"kind":"launch_missiles"}`))
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrUnknownEnvelopeKind)
	})

	t.Run("not json", func(t *testing.T) {
		_, err := domain.Decode([]byte(`not json at all`))
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrMalformedEnvelope)
	})

	t.Run("known kind with mistyped payload", func(t *testing.T) {
		_, err := domain.Decode([]byte(`{"kind":"edit_comment","comment_id":42}`))
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrMalformedEnvelope)
	})

	t.Run("missing kind", func(t *testing.T) {
		_, err := domain.Decode([]byte(`{"content":"hello"}`))
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrUnknownEnvelopeKind)
	})
}
