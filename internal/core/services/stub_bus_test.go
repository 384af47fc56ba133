package services_test

import (
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/lorrc/trackboard-realtime/internal/core/domain"
	"github.com/lorrc/trackboard-realtime/internal/core/ports"
)

// stubBus is a synchronous in-memory RoomBus for engine tests: handlers
// are invoked inline by emit, and outbound sends are recorded.
type stubBus struct {
	mu       sync.Mutex
	handlers map[uuid.UUID]stubHandler
	sends    []domain.Event
	sendErr  error
}

type stubHandler struct {
	room    domain.RoomKey
	kind    domain.EventKind
	handler ports.Handler
}

func newStubBus() *stubBus {
	return &stubBus{handlers: make(map[uuid.UUID]stubHandler)}
}

func (b *stubBus) Connect(domain.RoomKey) error { return nil }

func (b *stubBus) On(room domain.RoomKey, kind domain.EventKind, handler ports.Handler) (ports.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub := ports.Subscription{ID: uuid.New(), Room: room, Kind: kind}
	b.handlers[sub.ID] = stubHandler{room: room, kind: kind, handler: handler}
	return sub, nil
}

func (b *stubBus) Off(sub ports.Subscription) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers, sub.ID)
	return nil
}

func (b *stubBus) Send(room domain.RoomKey, event domain.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sendErr != nil {
		return b.sendErr
	}
	b.sends = append(b.sends, event)
	return nil
}

func (b *stubBus) Disconnect(domain.RoomKey) {}

func (b *stubBus) IsConnected(domain.RoomKey) bool { return true }

// emit invokes every handler registered for the event's kind, inline.
func (b *stubBus) emit(t *testing.T, event domain.Event) {
	t.Helper()
	b.mu.Lock()
	matching := make([]ports.Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		if h.kind == event.EventKind() {
			matching = append(matching, h.handler)
		}
	}
	b.mu.Unlock()

	for _, h := range matching {
		h(event)
	}
}

// sentOfKind returns the recorded outbound events of one kind, in order.
func (b *stubBus) sentOfKind(kind domain.EventKind) []domain.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.Event, 0, len(b.sends))
	for _, e := range b.sends {
		if e.EventKind() == kind {
			out = append(out, e)
		}
	}
	return out
}

// handlerCount reports how many handlers are currently registered.
func (b *stubBus) handlerCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers)
}
