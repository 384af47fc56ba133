package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lorrc/trackboard-realtime/internal/core/domain"
	apperrors "github.com/lorrc/trackboard-realtime/internal/core/errors"
	"github.com/lorrc/trackboard-realtime/internal/core/ports"
)

// DragState is the board coordinator's gesture state.
type DragState int

const (
	DragIdle DragState = iota
	DragActive
	DragCommitting
)

func (s DragState) String() string {
	switch s {
	case DragIdle:
		return "idle"
	case DragActive:
		return "dragging"
	case DragCommitting:
		return "committing"
	default:
		return "unknown"
	}
}

// BoardCoordinator applies drag/drop intents to the in-memory board
// optimistically and reconciles with the collaborator service. Every
// mutation captures a pre-mutation snapshot; if the service rejects the
// change, a compensating revert restores the snapshot before the error
// is surfaced, so UI and server never stay divergent.
type BoardCoordinator struct {
	api       ports.BoardAPI
	projectID string
	logger    *slog.Logger

	mu    sync.Mutex
	board *domain.Board
	state DragState
	drag  *domain.DragIntent
}

// NewBoardCoordinator creates a coordinator for one project's board.
func NewBoardCoordinator(api ports.BoardAPI, projectID string, logger *slog.Logger) *BoardCoordinator {
	return &BoardCoordinator{
		api:       api,
		projectID: projectID,
		logger:    logger.With("component", "board_coordinator", "project_id", projectID),
		board:     &domain.Board{},
	}
}

// Load fetches the authoritative board, replacing local state. Any
// in-flight drag is abandoned.
func (c *BoardCoordinator) Load(ctx context.Context) error {
	board, err := c.api.GetBoard(ctx, c.projectID)
	if err != nil {
		return fmt.Errorf("load board: %w", err)
	}
	if err := board.Validate(); err != nil {
		return fmt.Errorf("load board: %w", err)
	}

	c.mu.Lock()
	c.board = board
	c.state = DragIdle
	c.drag = nil
	c.mu.Unlock()
	return nil
}

// Board returns a copy of the current board state.
func (c *BoardCoordinator) Board() *domain.Board {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.board.Clone()
}

// State returns the current gesture state.
func (c *BoardCoordinator) State() DragState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// BeginDrag starts a drag gesture for a ticket. The returned intent
// records where the ticket came from; it lives only for this gesture.
func (c *BoardCoordinator) BeginDrag(ticketID string) (domain.DragIntent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != DragIdle {
		return domain.DragIntent{}, fmt.Errorf("cannot begin drag in state %s", c.state)
	}

	status, index, err := c.board.Locate(ticketID)
	if err != nil {
		return domain.DragIntent{}, err
	}

	c.drag = &domain.DragIntent{
		TicketID:     ticketID,
		SourceColumn: status,
		SourceIndex:  index,
	}
	c.state = DragActive
	return *c.drag, nil
}

// CancelDrag abandons the gesture without mutating anything. Dropping
// outside any valid target goes through here.
func (c *BoardCoordinator) CancelDrag() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == DragActive {
		c.state = DragIdle
		c.drag = nil
	}
}

// Drop completes the gesture at the target column and index. Local state
// mutates immediately; the matching reorder/move request then settles
// against the collaborator service, and a failure rolls the mutation
// back before the error is returned.
//
// The lock is held across the network call: board reads briefly wait on
// an in-flight commit, which is what makes the revert race-free.
func (c *BoardCoordinator) Drop(ctx context.Context, targetStatus string, targetIndex int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != DragActive || c.drag == nil {
		return apperrors.ErrNoActiveDrag
	}

	intent := *c.drag
	intent.TargetColumn = targetStatus
	intent.TargetIndex = targetIndex
	c.drag = nil

	snapshot := c.board.Clone()

	var commit func() error
	if intent.SourceColumn == targetStatus {
		if err := c.board.MoveWithinColumn(targetStatus, intent.SourceIndex, targetIndex); err != nil {
			c.state = DragIdle
			return err
		}
		column, err := c.board.Column(targetStatus)
		if err != nil {
			c.state = DragIdle
			return err
		}
		// The whole resulting ordering goes to the service, not a delta.
		orderedIDs := make([]string, len(column.Tickets))
		for i, t := range column.Tickets {
			orderedIDs[i] = t.ID
		}
		commit = func() error {
			return c.api.ReorderColumn(ctx, c.projectID, targetStatus, orderedIDs)
		}
	} else {
		if err := c.board.MoveAcrossColumns(intent.TicketID, targetStatus, targetIndex); err != nil {
			c.state = DragIdle
			return err
		}
		commit = func() error {
			return c.api.MoveTicket(ctx, intent.TicketID, targetStatus)
		}
	}

	c.state = DragCommitting
	if err := commit(); err != nil {
		c.board = snapshot
		c.state = DragIdle
		c.logger.Warn("board mutation rejected, reverted local state",
			"ticket_id", intent.TicketID,
			"source", intent.SourceColumn,
			"target", targetStatus,
			"error", err,
		)
		return fmt.Errorf("commit board mutation: %w", err)
	}

	c.state = DragIdle
	c.logger.Debug("board mutation committed",
		"ticket_id", intent.TicketID,
		"source", intent.SourceColumn,
		"target", targetStatus,
		"target_index", targetIndex,
	)
	return nil
}
