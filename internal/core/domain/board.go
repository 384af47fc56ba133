package domain

import (
	"fmt"

	apperrors "github.com/lorrc/trackboard-realtime/internal/core/errors"
)

// TicketCard is the board-level summary of a ticket.
type TicketCard struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Status   string `json:"status"`
	Priority string `json:"priority,omitempty"`
	Assignee string `json:"assignee,omitempty"`
}

// Column is one status lane holding an ordered sequence of tickets.
// Every ticket in the column carries the column's status.
type Column struct {
	Status  string       `json:"status"`
	Tickets []TicketCard `json:"tickets"`
}

// Board is the ordered set of columns. Invariants: a ticket lives in
// exactly one column, its status equals the column key, and mutations
// never duplicate or drop a ticket.
type Board struct {
	Columns []Column `json:"columns"`
}

// DragIntent describes one drag gesture. It lives only for the duration
// of the gesture and is never persisted.
type DragIntent struct {
	TicketID     string
	SourceColumn string
	SourceIndex  int
	TargetColumn string
	TargetIndex  int
}

// Clone returns a deep copy, used for pre-mutation snapshots.
func (b *Board) Clone() *Board {
	dup := &Board{Columns: make([]Column, len(b.Columns))}
	for i, col := range b.Columns {
		dup.Columns[i] = Column{
			Status:  col.Status,
			Tickets: append([]TicketCard(nil), col.Tickets...),
		}
	}
	return dup
}

// Column returns the column with the given status key.
func (b *Board) Column(status string) (*Column, error) {
	for i := range b.Columns {
		if b.Columns[i].Status == status {
			return &b.Columns[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", apperrors.ErrColumnNotFound, status)
}

// Locate finds a ticket anywhere on the board, returning its column
// status and intra-column index.
func (b *Board) Locate(ticketID string) (status string, index int, err error) {
	for i := range b.Columns {
		for j := range b.Columns[i].Tickets {
			if b.Columns[i].Tickets[j].ID == ticketID {
				return b.Columns[i].Status, j, nil
			}
		}
	}
	return "", 0, fmt.Errorf("%w: %q", apperrors.ErrTicketNotFound, ticketID)
}

// TicketCount returns the total number of tickets across all columns.
func (b *Board) TicketCount() int {
	n := 0
	for i := range b.Columns {
		n += len(b.Columns[i].Tickets)
	}
	return n
}

// TicketIDs returns every ticket id on the board in column order.
func (b *Board) TicketIDs() []string {
	ids := make([]string, 0, b.TicketCount())
	for i := range b.Columns {
		for j := range b.Columns[i].Tickets {
			ids = append(ids, b.Columns[i].Tickets[j].ID)
		}
	}
	return ids
}

// MoveWithinColumn performs a single-element move inside one column.
func (b *Board) MoveWithinColumn(status string, from, to int) error {
	col, err := b.Column(status)
	if err != nil {
		return err
	}
	if from < 0 || from >= len(col.Tickets) || to < 0 || to >= len(col.Tickets) {
		return fmt.Errorf("%w: from=%d to=%d len=%d", apperrors.ErrInvalidDropIndex, from, to, len(col.Tickets))
	}
	if from == to {
		return nil
	}

	ticket := col.Tickets[from]
	col.Tickets = append(col.Tickets[:from], col.Tickets[from+1:]...)

	// Insert at the target position.
	col.Tickets = append(col.Tickets, TicketCard{})
	copy(col.Tickets[to+1:], col.Tickets[to:])
	col.Tickets[to] = ticket
	return nil
}

// MoveAcrossColumns removes the ticket from its source column and inserts
// it at the target index of the destination column, rewriting its status
// to the destination key.
func (b *Board) MoveAcrossColumns(ticketID, targetStatus string, targetIndex int) error {
	target, err := b.Column(targetStatus)
	if err != nil {
		return err
	}

	sourceStatus, sourceIndex, err := b.Locate(ticketID)
	if err != nil {
		return err
	}
	if sourceStatus == targetStatus {
		return b.MoveWithinColumn(sourceStatus, sourceIndex, targetIndex)
	}
	if targetIndex < 0 || targetIndex > len(target.Tickets) {
		return fmt.Errorf("%w: index=%d len=%d", apperrors.ErrInvalidDropIndex, targetIndex, len(target.Tickets))
	}

	source, err := b.Column(sourceStatus)
	if err != nil {
		return err
	}
	ticket := source.Tickets[sourceIndex]
	source.Tickets = append(source.Tickets[:sourceIndex], source.Tickets[sourceIndex+1:]...)

	ticket.Status = targetStatus
	target.Tickets = append(target.Tickets, TicketCard{})
	copy(target.Tickets[targetIndex+1:], target.Tickets[targetIndex:])
	target.Tickets[targetIndex] = ticket
	return nil
}

// Validate checks the board invariants: no ticket appears twice and every
// ticket's status matches its column key.
func (b *Board) Validate() error {
	seen := make(map[string]string, b.TicketCount())
	for i := range b.Columns {
		col := &b.Columns[i]
		for j := range col.Tickets {
			t := &col.Tickets[j]
			if prev, ok := seen[t.ID]; ok {
				return fmt.Errorf("%w: %q in %q and %q", apperrors.ErrDuplicateTicket, t.ID, prev, col.Status)
			}
			seen[t.ID] = col.Status
			if t.Status != col.Status {
				return fmt.Errorf("ticket %q has status %q but sits in column %q", t.ID, t.Status, col.Status)
			}
		}
	}
	return nil
}
