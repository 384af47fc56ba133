package devserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/lorrc/trackboard-realtime/internal/adapters/secondary/rest"
	"github.com/lorrc/trackboard-realtime/internal/auth"
	"github.com/lorrc/trackboard-realtime/internal/config"
	"github.com/lorrc/trackboard-realtime/internal/core/domain"
	apperrors "github.com/lorrc/trackboard-realtime/internal/core/errors"
)

// Server is the local collaborator stub: the websocket fan-out plus the
// REST endpoints the client library talks to. It exists so the client
// can be developed and integration-tested without the real tracker.
type Server struct {
	hub      *Hub
	store    *Store
	tokens   *auth.TokenManager
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewServer wires the stub together. Origin checking allows everything
// when the allowed list is empty, which is the development default.
func NewServer(cfg config.DevServerConfig, store *Store, hub *Hub, logger *slog.Logger) *Server {
	allowed := make(map[string]bool, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		allowed[o] = true
	}

	return &Server{
		hub:    hub,
		store:  store,
		tokens: auth.NewTokenManager(cfg.JWTSecret),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 {
					return true
				}
				return allowed[r.Header.Get("Origin")]
			},
		},
		logger: logger.With("component", "devserver"),
	}
}

// TokenManager exposes the stub's token manager so tests and the CLI
// can mint valid tokens.
func (s *Server) TokenManager() *auth.TokenManager {
	return s.tokens
}

// HandleWebSocket upgrades GET /ws/{entityType}/{entityId}?token=...
// into a room session.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	room, err := domain.NewRoomKey(
		domain.EntityType(chi.URLParam(r, "entityType")),
		chi.URLParam(r, "entityId"),
	)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid room", nil)
		return
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusUnauthorized, "missing token", nil)
		return
	}
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		s.logger.Warn("websocket auth failed", "error", err)
		writeError(w, http.StatusUnauthorized, "invalid token", nil)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	session := NewSession(s.hub, conn, room.String(), claims.UserID.String(), 256, s.logger)
	s.hub.Register <- session

	go session.WritePump()
	go session.ReadPump()
}

// HandleHealth reports liveness plus a couple of hub gauges.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]any{
		"status": "ok",
		"rooms":  s.hub.RoomCount(),
	})
}

// --- Board endpoints ---

// HandleGetBoard serves GET /projects/{projectID}/board.
func (s *Server) HandleGetBoard(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	board, ok := s.store.Board(projectID)
	if !ok {
		writeError(w, http.StatusNotFound, "board not found", nil)
		return
	}
	writeSuccess(w, http.StatusOK, board)
}

// HandleSeedBoard serves PUT /projects/{projectID}/board, replacing the
// project's board wholesale. Development convenience only.
func (s *Server) HandleSeedBoard(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	var board domain.Board
	if err := json.NewDecoder(r.Body).Decode(&board); err != nil {
		writeError(w, http.StatusBadRequest, "invalid board payload", nil)
		return
	}
	if err := s.store.SeedBoard(projectID, &board); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error(), nil)
		return
	}
	writeSuccess(w, http.StatusOK, nil)
}

// HandleMoveTicket serves POST /board/tickets/move.
func (s *Server) HandleMoveTicket(w http.ResponseWriter, r *http.Request) {
	var req rest.MoveTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid move payload", nil)
		return
	}
	if req.TicketID == "" || req.NewStatus == "" {
		writeError(w, http.StatusBadRequest, "validation failed", map[string][]string{
			"ticket_id":  {"required"},
			"new_status": {"required"},
		})
		return
	}

	if err := s.store.MoveTicket(req.TicketID, req.NewStatus); err != nil {
		writeStoreError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, nil)
}

// HandleReorderColumn serves PUT /projects/{projectID}/board/columns/{status}/order.
func (s *Server) HandleReorderColumn(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	status := chi.URLParam(r, "status")

	var req rest.ReorderColumnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid reorder payload", nil)
		return
	}

	if err := s.store.ReorderColumn(projectID, status, req.TicketIDs); err != nil {
		writeStoreError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, nil)
}

// --- Ticket endpoints ---

// HandleListTickets serves GET /tickets?project_id=...
func (s *Server) HandleListTickets(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, s.store.ListTickets(r.URL.Query().Get("project_id")))
}

// HandleGetTicket serves GET /tickets/{ticketID}.
func (s *Server) HandleGetTicket(w http.ResponseWriter, r *http.Request) {
	ticket, ok := s.store.GetTicket(chi.URLParam(r, "ticketID"))
	if !ok {
		writeError(w, http.StatusNotFound, "ticket not found", nil)
		return
	}
	writeSuccess(w, http.StatusOK, ticket)
}

// HandleCreateTicket serves POST /tickets.
func (s *Server) HandleCreateTicket(w http.ResponseWriter, r *http.Request) {
	var ticket rest.Ticket
	if err := json.NewDecoder(r.Body).Decode(&ticket); err != nil {
		writeError(w, http.StatusBadRequest, "invalid ticket payload", nil)
		return
	}
	if ticket.Title == "" || ticket.ProjectID == "" || ticket.Status == "" {
		writeError(w, http.StatusBadRequest, "validation failed", map[string][]string{
			"title":      {"required"},
			"project_id": {"required"},
			"status":     {"required"},
		})
		return
	}
	writeSuccess(w, http.StatusCreated, s.store.CreateTicket(ticket))
}

// HandleUpdateTicket serves PUT /tickets/{ticketID}.
func (s *Server) HandleUpdateTicket(w http.ResponseWriter, r *http.Request) {
	var patch rest.Ticket
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid ticket payload", nil)
		return
	}
	ticket, ok := s.store.UpdateTicket(chi.URLParam(r, "ticketID"), patch)
	if !ok {
		writeError(w, http.StatusNotFound, "ticket not found", nil)
		return
	}
	writeSuccess(w, http.StatusOK, ticket)
}

// HandleDeleteTicket serves DELETE /tickets/{ticketID}.
func (s *Server) HandleDeleteTicket(w http.ResponseWriter, r *http.Request) {
	if !s.store.DeleteTicket(chi.URLParam(r, "ticketID")) {
		writeError(w, http.StatusNotFound, "ticket not found", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeStoreError maps store sentinels to HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error) {
	status := http.StatusUnprocessableEntity
	switch {
	case errors.Is(err, apperrors.ErrTicketNotFound),
		errors.Is(err, apperrors.ErrColumnNotFound),
		errors.Is(err, apperrors.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperrors.ErrInvalidOrderLength),
		errors.Is(err, apperrors.ErrInvalidDropIndex):
		status = http.StatusBadRequest
	}
	writeError(w, status, err.Error(), nil)
}
