package services_test

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/trackboard-realtime/internal/core/domain"
	apperrors "github.com/lorrc/trackboard-realtime/internal/core/errors"
	"github.com/lorrc/trackboard-realtime/internal/core/mocks"
	"github.com/lorrc/trackboard-realtime/internal/core/services"
)

func boardFixture() *domain.Board {
	card := func(id, status string) domain.TicketCard {
		return domain.TicketCard{ID: id, Title: "Ticket " + id, Status: status}
	}
	return &domain.Board{Columns: []domain.Column{
		{Status: "Open", Tickets: []domain.TicketCard{
			card("t8", "Open"), card("t9", "Open"), card("t10", "Open"),
		}},
		{Status: "In Progress", Tickets: []domain.TicketCard{
			card("t11", "In Progress"),
		}},
		{Status: "Done", Tickets: []domain.TicketCard{}},
	}}
}

func loadedCoordinator(t *testing.T, ctx context.Context) (*services.BoardCoordinator, *mocks.MockBoardAPI) {
	t.Helper()
	mockAPI := mocks.NewMockBoardAPI()
	mockAPI.On("GetBoard", ctx, "p1").Return(boardFixture(), nil).Once()

	c := services.NewBoardCoordinator(mockAPI, "p1", testLogger())
	require.NoError(t, c.Load(ctx))
	return c, mockAPI
}

func TestBoardCoordinator_Load(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		c, mockAPI := loadedCoordinator(t, ctx)

		assert.Equal(t, 4, c.Board().TicketCount())
		assert.Equal(t, services.DragIdle, c.State())
		mockAPI.AssertExpectations(t)
	})

	t.Run("rejects inconsistent server board", func(t *testing.T) {
		bad := boardFixture()
		bad.Columns[2].Tickets = append(bad.Columns[2].Tickets, domain.TicketCard{ID: "t8", Status: "Done"})

		mockAPI := mocks.NewMockBoardAPI()
		mockAPI.On("GetBoard", ctx, "p1").Return(bad, nil)

		c := services.NewBoardCoordinator(mockAPI, "p1", testLogger())
		assert.ErrorIs(t, c.Load(ctx), apperrors.ErrDuplicateTicket)
	})
}

func TestBoardCoordinator_BeginDrag(t *testing.T) {
	ctx := context.Background()
	c, _ := loadedCoordinator(t, ctx)

	intent, err := c.BeginDrag("t9")
	require.NoError(t, err)
	assert.Equal(t, "t9", intent.TicketID)
	assert.Equal(t, "Open", intent.SourceColumn)
	assert.Equal(t, 1, intent.SourceIndex)
	assert.Equal(t, services.DragActive, c.State())

	// A second gesture cannot start while one is active.
	_, err = c.BeginDrag("t8")
	assert.Error(t, err)

	c.CancelDrag()
	assert.Equal(t, services.DragIdle, c.State())

	_, err = c.BeginDrag("missing")
	assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)
}

func TestBoardCoordinator_DropAcrossColumns(t *testing.T) {
	ctx := context.Background()
	c, mockAPI := loadedCoordinator(t, ctx)
	mockAPI.On("MoveTicket", ctx, "t9", "Done").Return(nil).Once()

	_, err := c.BeginDrag("t9")
	require.NoError(t, err)
	require.NoError(t, c.Drop(ctx, "Done", 0))

	board := c.Board()
	status, index, err := board.Locate("t9")
	require.NoError(t, err)
	assert.Equal(t, "Done", status)
	assert.Equal(t, 0, index)
	assert.Equal(t, services.DragIdle, c.State())
	require.NoError(t, board.Validate())
	mockAPI.AssertExpectations(t)
}

func TestBoardCoordinator_DropWithinColumnSendsFullOrdering(t *testing.T) {
	ctx := context.Background()
	c, mockAPI := loadedCoordinator(t, ctx)
	mockAPI.On("ReorderColumn", ctx, "p1", "Open", []string{"t9", "t8", "t10"}).Return(nil).Once()

	_, err := c.BeginDrag("t9")
	require.NoError(t, err)
	require.NoError(t, c.Drop(ctx, "Open", 0))

	_, index, err := c.Board().Locate("t9")
	require.NoError(t, err)
	assert.Equal(t, 0, index)
	mockAPI.AssertExpectations(t)
}

func TestBoardCoordinator_DropFailureRevertsOptimisticMutation(t *testing.T) {
	ctx := context.Background()
	c, mockAPI := loadedCoordinator(t, ctx)
	mockAPI.On("MoveTicket", ctx, "t9", "Done").Return(assert.AnError).Once()

	before := c.Board()

	_, err := c.BeginDrag("t9")
	require.NoError(t, err)

	err = c.Drop(ctx, "Done", 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)

	// The board is exactly as it was before the gesture.
	assert.Equal(t, before, c.Board())
	assert.Equal(t, services.DragIdle, c.State())

	// The coordinator is usable for the next gesture.
	mockAPI.On("MoveTicket", ctx, "t9", "Done").Return(nil).Once()
	_, err = c.BeginDrag("t9")
	require.NoError(t, err)
	require.NoError(t, c.Drop(ctx, "Done", 0))
	mockAPI.AssertExpectations(t)
}

func TestBoardCoordinator_DropWithoutDrag(t *testing.T) {
	ctx := context.Background()
	c, _ := loadedCoordinator(t, ctx)

	assert.ErrorIs(t, c.Drop(ctx, "Done", 0), apperrors.ErrNoActiveDrag)
}

func TestBoardCoordinator_InvalidDropIndexAbortsGesture(t *testing.T) {
	ctx := context.Background()
	c, mockAPI := loadedCoordinator(t, ctx)

	_, err := c.BeginDrag("t9")
	require.NoError(t, err)

	// No API call happens for a locally invalid drop.
	err = c.Drop(ctx, "Done", 99)
	assert.ErrorIs(t, err, apperrors.ErrInvalidDropIndex)
	assert.Equal(t, services.DragIdle, c.State())
	mockAPI.AssertNotCalled(t, "MoveTicket")
	mockAPI.AssertNotCalled(t, "ReorderColumn")
}

func TestBoardCoordinator_SequenceOfMovesPreservesTickets(t *testing.T) {
	ctx := context.Background()
	c, mockAPI := loadedCoordinator(t, ctx)
	mockAPI.On("MoveTicket", ctx, "t8", "Done").Return(nil).Once()
	mockAPI.On("MoveTicket", ctx, "t11", "Open").Return(nil).Once()
	mockAPI.On("ReorderColumn", ctx, "p1", "Open", []string{"t10", "t9", "t11"}).Return(nil).Once()

	before := c.Board().TicketIDs()
	sort.Strings(before)

	_, err := c.BeginDrag("t8")
	require.NoError(t, err)
	require.NoError(t, c.Drop(ctx, "Done", 0))

	_, err = c.BeginDrag("t11")
	require.NoError(t, err)
	require.NoError(t, c.Drop(ctx, "Open", 2))

	// Open is now [t9, t10, t11]; move t10 to the front.
	_, err = c.BeginDrag("t10")
	require.NoError(t, err)
	require.NoError(t, c.Drop(ctx, "Open", 0))

	after := c.Board().TicketIDs()
	sort.Strings(after)
	assert.Equal(t, before, after)
	require.NoError(t, c.Board().Validate())
	mockAPI.AssertExpectations(t)
}
