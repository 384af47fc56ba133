package devserver

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lorrc/trackboard-realtime/internal/adapters/secondary/rest"
	"github.com/lorrc/trackboard-realtime/internal/core/domain"
	apperrors "github.com/lorrc/trackboard-realtime/internal/core/errors"
)

// Store is the in-memory state behind the development collaborator:
// per-room comments and presence, per-project boards, and a flat ticket
// collection. Everything lives for the lifetime of the process.
type Store struct {
	mu sync.RWMutex

	// comments holds per-room ordered comment lists
	comments map[string][]*domain.Comment

	// presence holds per-room user activity, never deleted once seen
	presence map[string]map[string]presenceRecord

	// boards holds per-project board state
	boards map[string]*domain.Board

	// tickets holds the flat ticket collection keyed by id
	tickets map[string]*rest.Ticket
}

type presenceRecord struct {
	online       bool
	lastActivity time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		comments: make(map[string][]*domain.Comment),
		presence: make(map[string]map[string]presenceRecord),
		boards:   make(map[string]*domain.Board),
		tickets:  make(map[string]*rest.Ticket),
	}
}

// --- Presence ---

// TouchPresence records activity for a user in a room.
func (s *Store) TouchPresence(room, userID string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.presence[room] == nil {
		s.presence[room] = make(map[string]presenceRecord)
	}
	s.presence[room][userID] = presenceRecord{online: true, lastActivity: at}
}

// MarkOffline flags a user offline without removing their record.
func (s *Store) MarkOffline(room, userID string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.presence[room] == nil {
		return
	}
	s.presence[room][userID] = presenceRecord{online: false, lastActivity: at}
}

// ActiveUsers returns the presence snapshot for a room, online users
// only, sorted by user id for stable output.
func (s *Store) ActiveUsers(room string) []domain.UserActivity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserActivity, 0, len(s.presence[room]))
	for userID, rec := range s.presence[room] {
		if !rec.online {
			continue
		}
		users = append(users, domain.UserActivity{
			UserID:       userID,
			LastActivity: rec.lastActivity,
		})
	}
	sort.Slice(users, func(i, j int) bool { return users[i].UserID < users[j].UserID })
	return users
}

// --- Comments ---

// CreateComment appends a new comment to a room's list.
func (s *Store) CreateComment(room, authorID, content string, parentID *string, at time.Time) domain.Comment {
	s.mu.Lock()
	defer s.mu.Unlock()

	comment := &domain.Comment{
		ID:             uuid.NewString(),
		ParentID:       parentID,
		Content:        content,
		AuthorID:       authorID,
		CreatedAt:      at,
		UpdatedAt:      at,
		Reactions:      map[string][]string{},
		ReactionCounts: map[string]int{},
	}
	s.comments[room] = append(s.comments[room], comment)
	return *comment.Clone()
}

// UpdateComment replaces a comment's content.
func (s *Store) UpdateComment(room, commentID, content string, at time.Time) (domain.Comment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	comment := s.findComment(room, commentID)
	if comment == nil {
		return domain.Comment{}, false
	}
	comment.Content = content
	comment.UpdatedAt = at
	return *comment.Clone(), true
}

// DeleteComment removes a comment from a room's list.
func (s *Store) DeleteComment(room, commentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.comments[room]
	for i, c := range list {
		if c.ID == commentID {
			s.comments[room] = append(list[:i], list[i+1:]...)
			return true
		}
	}
	return false
}

// ToggleReaction toggles one user's reaction on a comment and returns
// the resulting comment state.
func (s *Store) ToggleReaction(room, commentID, reactionType, userID string) (domain.Comment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	comment := s.findComment(room, commentID)
	if comment == nil {
		return domain.Comment{}, false
	}
	comment.ToggleReaction(reactionType, userID)
	return *comment.Clone(), true
}

// Comments returns a room's comments in creation order.
func (s *Store) Comments(room string) []domain.Comment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Comment, 0, len(s.comments[room]))
	for _, c := range s.comments[room] {
		out = append(out, *c.Clone())
	}
	return out
}

// findComment must be called with the lock held.
func (s *Store) findComment(room, commentID string) *domain.Comment {
	for _, c := range s.comments[room] {
		if c.ID == commentID {
			return c
		}
	}
	return nil
}

// --- Board ---

// SeedBoard replaces a project's board state.
func (s *Store) SeedBoard(projectID string, board *domain.Board) error {
	if err := board.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.boards[projectID] = board.Clone()
	return nil
}

// Board returns a project's board, or false if none was seeded.
func (s *Store) Board(projectID string) (*domain.Board, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	board, ok := s.boards[projectID]
	if !ok {
		return nil, false
	}
	return board.Clone(), true
}

// MoveTicket moves a ticket to the end of the target status column on
// whichever board holds it.
func (s *Store) MoveTicket(ticketID, newStatus string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, board := range s.boards {
		status, _, err := board.Locate(ticketID)
		if err != nil {
			continue
		}
		target, err := board.Column(newStatus)
		if err != nil {
			return err
		}
		if status == newStatus {
			return nil
		}
		return board.MoveAcrossColumns(ticketID, newStatus, len(target.Tickets))
	}
	return fmt.Errorf("%w: %q", apperrors.ErrTicketNotFound, ticketID)
}

// ReorderColumn replaces a column's ordering. The incoming id list must
// be a permutation of the column's current tickets.
func (s *Store) ReorderColumn(projectID, status string, orderedIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	board, ok := s.boards[projectID]
	if !ok {
		return fmt.Errorf("%w: no board for project %q", apperrors.ErrNotFound, projectID)
	}
	col, err := board.Column(status)
	if err != nil {
		return err
	}
	if len(orderedIDs) != len(col.Tickets) {
		return fmt.Errorf("%w: got %d ids, column has %d", apperrors.ErrInvalidOrderLength, len(orderedIDs), len(col.Tickets))
	}

	byID := make(map[string]domain.TicketCard, len(col.Tickets))
	for _, t := range col.Tickets {
		byID[t.ID] = t
	}
	reordered := make([]domain.TicketCard, 0, len(orderedIDs))
	for _, id := range orderedIDs {
		t, ok := byID[id]
		if !ok {
			return fmt.Errorf("%w: %q not in column %q", apperrors.ErrTicketNotFound, id, status)
		}
		delete(byID, id)
		reordered = append(reordered, t)
	}
	col.Tickets = reordered
	return nil
}

// --- Tickets ---

// ListTickets returns tickets, optionally filtered by project.
func (s *Store) ListTickets(projectID string) []rest.Ticket {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]rest.Ticket, 0, len(s.tickets))
	for _, t := range s.tickets {
		if projectID != "" && t.ProjectID != projectID {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// GetTicket returns one ticket by id.
func (s *Store) GetTicket(id string) (rest.Ticket, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tickets[id]
	if !ok {
		return rest.Ticket{}, false
	}
	return *t, true
}

// CreateTicket stores a new ticket, assigning id and timestamps.
func (s *Store) CreateTicket(t rest.Ticket) rest.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	t.ID = uuid.NewString()
	t.CreatedAt = now
	t.UpdatedAt = now
	s.tickets[t.ID] = &t

	// Append to the board column matching the ticket's status, when the
	// project has a seeded board with that column.
	if board, ok := s.boards[t.ProjectID]; ok {
		if col, err := board.Column(t.Status); err == nil {
			col.Tickets = append(col.Tickets, domain.TicketCard{
				ID:       t.ID,
				Title:    t.Title,
				Status:   t.Status,
				Priority: t.Priority,
			})
		}
	}
	return t
}

// UpdateTicket overwrites mutable ticket fields.
func (s *Store) UpdateTicket(id string, patch rest.Ticket) (rest.Ticket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[id]
	if !ok {
		return rest.Ticket{}, false
	}
	t.Title = patch.Title
	t.Description = patch.Description
	t.Priority = patch.Priority
	t.AssigneeID = patch.AssigneeID
	t.UpdatedAt = time.Now().UTC()
	return *t, true
}

// DeleteTicket removes a ticket and its board card.
func (s *Store) DeleteTicket(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[id]
	if !ok {
		return false
	}
	delete(s.tickets, id)

	if board, seeded := s.boards[t.ProjectID]; seeded {
		if status, idx, err := board.Locate(id); err == nil {
			if col, colErr := board.Column(status); colErr == nil {
				col.Tickets = append(col.Tickets[:idx], col.Tickets[idx+1:]...)
			}
		}
	}
	return true
}
