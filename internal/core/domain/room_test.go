package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/trackboard-realtime/internal/core/domain"
	apperrors "github.com/lorrc/trackboard-realtime/internal/core/errors"
)

func TestParseRoomKey(t *testing.T) {
	t.Run("parses composite key", func(t *testing.T) {
		key, err := domain.ParseRoomKey("ticket:abc-123")
		require.NoError(t, err)
		assert.Equal(t, domain.EntityTicket, key.EntityType)
		assert.Equal(t, "abc-123", key.EntityID)
		assert.Equal(t, "ticket:abc-123", key.String())
	})

	t.Run("entity id may contain colons", func(t *testing.T) {
		key, err := domain.ParseRoomKey("project:org:42")
		require.NoError(t, err)
		assert.Equal(t, domain.EntityProject, key.EntityType)
		assert.Equal(t, "org:42", key.EntityID)
	})

	t.Run("missing separator", func(t *testing.T) {
		_, err := domain.ParseRoomKey("ticket")
		assert.ErrorIs(t, err, apperrors.ErrInvalidRoomKey)
	})

	t.Run("empty parts", func(t *testing.T) {
		_, err := domain.ParseRoomKey(":42")
		assert.ErrorIs(t, err, apperrors.ErrInvalidRoomKey)

		_, err = domain.ParseRoomKey("ticket:")
		assert.ErrorIs(t, err, apperrors.ErrInvalidRoomKey)
	})
}

func TestNewRoomKey(t *testing.T) {
	_, err := domain.NewRoomKey("", "42")
	assert.ErrorIs(t, err, apperrors.ErrInvalidRoomKey)

	_, err = domain.NewRoomKey("bad:type", "42")
	assert.ErrorIs(t, err, apperrors.ErrInvalidRoomKey)

	key, err := domain.NewRoomKey(domain.EntitySprint, "s1")
	require.NoError(t, err)
	assert.Equal(t, "sprint:s1", key.String())
}
