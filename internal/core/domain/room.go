package domain

import (
	"fmt"
	"strings"

	apperrors "github.com/lorrc/trackboard-realtime/internal/core/errors"
)

// EntityType identifies the kind of entity a room is attached to.
type EntityType string

const (
	EntityTicket  EntityType = "ticket"
	EntityEpic    EntityType = "epic"
	EntitySprint  EntityType = "sprint"
	EntityProject EntityType = "project"
)

// RoomKey identifies one collaboration room. Every viewed entity gets
// exactly one room, addressed as "entityType:entityId".
type RoomKey struct {
	EntityType EntityType
	EntityID   string
}

// NewRoomKey builds a room key from its parts.
func NewRoomKey(entityType EntityType, entityID string) (RoomKey, error) {
	if entityType == "" || entityID == "" {
		return RoomKey{}, apperrors.ErrInvalidRoomKey
	}
	if strings.Contains(string(entityType), ":") {
		return RoomKey{}, fmt.Errorf("%w: entity type %q contains separator", apperrors.ErrInvalidRoomKey, entityType)
	}
	return RoomKey{EntityType: entityType, EntityID: entityID}, nil
}

// ParseRoomKey parses a composite "entityType:entityId" key. The entity ID
// may itself contain colons; only the first separator is significant.
func ParseRoomKey(key string) (RoomKey, error) {
	entityType, entityID, ok := strings.Cut(key, ":")
	if !ok {
		return RoomKey{}, fmt.Errorf("%w: %q", apperrors.ErrInvalidRoomKey, key)
	}
	return NewRoomKey(EntityType(entityType), entityID)
}

// String returns the composite form used for addressing and logging.
func (k RoomKey) String() string {
	return string(k.EntityType) + ":" + k.EntityID
}
