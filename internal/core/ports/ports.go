package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/lorrc/trackboard-realtime/internal/core/domain"
)

// Transport is one live connection to a room. Messages on a single
// transport arrive in send order; nothing is guaranteed across rooms.
type Transport interface {
	// ReadMessage blocks until the next inbound message or a transport
	// error. A closed transport returns an error.
	ReadMessage() ([]byte, error)

	// WriteMessage transmits one serialized envelope.
	WriteMessage(data []byte) error

	// Close tears the connection down. Safe to call more than once.
	Close() error
}

// TransportDialer opens transports. The room connection manager owns at
// most one transport per room at a time.
type TransportDialer interface {
	Dial(ctx context.Context, room domain.RoomKey) (Transport, error)
}

// Handler is a listener callback for inbound room events. Handlers run
// sequentially in registration order; a panicking handler is recovered
// and does not stop its siblings.
type Handler func(event domain.Event)

// Subscription identifies one registered handler. Go functions are not
// comparable, so removal is by handle rather than by callback reference.
type Subscription struct {
	ID   uuid.UUID
	Room domain.RoomKey
	Kind domain.EventKind
}

// RoomBus is the registration and send surface of the room connection
// manager, consumed by the presence, typing and comment engines.
type RoomBus interface {
	Connect(room domain.RoomKey) error
	On(room domain.RoomKey, kind domain.EventKind, handler Handler) (Subscription, error)
	Off(sub Subscription) error
	Send(room domain.RoomKey, event domain.Event) error
	Disconnect(room domain.RoomKey)
	IsConnected(room domain.RoomKey) bool
}

// BoardAPI is the REST collaborator boundary backing board mutations.
type BoardAPI interface {
	// GetBoard fetches the board for a project, grouped by status.
	GetBoard(ctx context.Context, projectID string) (*domain.Board, error)

	// MoveTicket moves a ticket to a new status column.
	MoveTicket(ctx context.Context, ticketID, newStatus string) error

	// ReorderColumn replaces a column's ordering with the given id list.
	ReorderColumn(ctx context.Context, projectID, status string, orderedIDs []string) error
}
