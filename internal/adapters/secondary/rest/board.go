package rest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/lorrc/trackboard-realtime/internal/core/domain"
	"github.com/lorrc/trackboard-realtime/internal/core/ports"
)

// BoardClient talks to the board collaborator: fetch grouped by status,
// move a ticket, reorder a column by explicit id list.
type BoardClient struct {
	*Client
}

// Ensure BoardClient implements the BoardAPI interface.
var _ ports.BoardAPI = (*BoardClient)(nil)

// NewBoardClient wraps the shared client with the board endpoints.
func NewBoardClient(c *Client) *BoardClient {
	return &BoardClient{Client: c}
}

// MoveTicketRequest is the move endpoint payload.
type MoveTicketRequest struct {
	TicketID  string `json:"ticket_id"`
	NewStatus string `json:"new_status"`
}

// ReorderColumnRequest is the reorder endpoint payload: the entire
// resulting ordering for one column, not a delta.
type ReorderColumnRequest struct {
	TicketIDs []string `json:"ticket_ids"`
}

// GetBoard fetches a project's board grouped by status.
func (c *BoardClient) GetBoard(ctx context.Context, projectID string) (*domain.Board, error) {
	var board domain.Board
	path := fmt.Sprintf("/projects/%s/board", url.PathEscape(projectID))
	if err := c.getInto(ctx, path, &board); err != nil {
		return nil, err
	}
	return &board, nil
}

// MoveTicket moves a ticket to a new status column.
func (c *BoardClient) MoveTicket(ctx context.Context, ticketID, newStatus string) error {
	req := MoveTicketRequest{TicketID: ticketID, NewStatus: newStatus}
	return c.do(ctx, http.MethodPost, "/board/tickets/move", req, nil)
}

// ReorderColumn replaces a column's ordering with the given id list.
func (c *BoardClient) ReorderColumn(ctx context.Context, projectID, status string, orderedIDs []string) error {
	req := ReorderColumnRequest{TicketIDs: orderedIDs}
	path := fmt.Sprintf("/projects/%s/board/columns/%s/order",
		url.PathEscape(projectID), url.PathEscape(status))
	return c.do(ctx, http.MethodPut, path, req, nil)
}
