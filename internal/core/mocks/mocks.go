package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/lorrc/trackboard-realtime/internal/core/domain"
	"github.com/lorrc/trackboard-realtime/internal/core/ports"
)

// MockTransport is a mock implementation of ports.Transport
type MockTransport struct {
	mock.Mock
}

func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

func (m *MockTransport) ReadMessage() ([]byte, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockTransport) WriteMessage(data []byte) error {
	args := m.Called(data)
	return args.Error(0)
}

func (m *MockTransport) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockTransportDialer is a mock implementation of ports.TransportDialer
type MockTransportDialer struct {
	mock.Mock
}

func NewMockTransportDialer() *MockTransportDialer {
	return &MockTransportDialer{}
}

func (m *MockTransportDialer) Dial(ctx context.Context, room domain.RoomKey) (ports.Transport, error) {
	args := m.Called(ctx, room)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(ports.Transport), args.Error(1)
}

// MockBoardAPI is a mock implementation of ports.BoardAPI
type MockBoardAPI struct {
	mock.Mock
}

func NewMockBoardAPI() *MockBoardAPI {
	return &MockBoardAPI{}
}

func (m *MockBoardAPI) GetBoard(ctx context.Context, projectID string) (*domain.Board, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Board), args.Error(1)
}

func (m *MockBoardAPI) MoveTicket(ctx context.Context, ticketID, newStatus string) error {
	args := m.Called(ctx, ticketID, newStatus)
	return args.Error(0)
}

func (m *MockBoardAPI) ReorderColumn(ctx context.Context, projectID, status string, orderedIDs []string) error {
	args := m.Called(ctx, projectID, status, orderedIDs)
	return args.Error(0)
}

// MockRoomBus is a mock implementation of ports.RoomBus
type MockRoomBus struct {
	mock.Mock
}

func NewMockRoomBus() *MockRoomBus {
	return &MockRoomBus{}
}

func (m *MockRoomBus) Connect(room domain.RoomKey) error {
	args := m.Called(room)
	return args.Error(0)
}

func (m *MockRoomBus) On(room domain.RoomKey, kind domain.EventKind, handler ports.Handler) (ports.Subscription, error) {
	args := m.Called(room, kind, handler)
	return args.Get(0).(ports.Subscription), args.Error(1)
}

func (m *MockRoomBus) Off(sub ports.Subscription) error {
	args := m.Called(sub)
	return args.Error(0)
}

func (m *MockRoomBus) Send(room domain.RoomKey, event domain.Event) error {
	args := m.Called(room, event)
	return args.Error(0)
}

func (m *MockRoomBus) Disconnect(room domain.RoomKey) {
	m.Called(room)
}

func (m *MockRoomBus) IsConnected(room domain.RoomKey) bool {
	args := m.Called(room)
	return args.Bool(0)
}
