package rest_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/trackboard-realtime/internal/adapters/secondary/rest"
	apperrors "github.com/lorrc/trackboard-realtime/internal/core/errors"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *rest.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return rest.NewClient(server.URL, "test-token", 5*time.Second, testLogger())
}

func TestBoardClient_GetBoard(t *testing.T) {
	ctx := context.Background()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/projects/p1/board", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"success": true,
			"data": {"columns": [
				{"status": "Open", "tickets": [{"id": "t1", "title": "One", "status": "Open"}]},
				{"status": "Done", "tickets": []}
			]}
		}`))
	})

	board, err := rest.NewBoardClient(client).GetBoard(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, board.Columns, 2)
	assert.Equal(t, "t1", board.Columns[0].Tickets[0].ID)
}

func TestBoardClient_MoveTicketSendsPayload(t *testing.T) {
	ctx := context.Background()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/board/tickets/move", r.URL.Path)

		var req rest.MoveTicketRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "t9", req.TicketID)
		assert.Equal(t, "Done", req.NewStatus)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success": true}`))
	})

	require.NoError(t, rest.NewBoardClient(client).MoveTicket(ctx, "t9", "Done"))
}

func TestBoardClient_ReorderColumnEscapesPath(t *testing.T) {
	ctx := context.Background()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/projects/p1/board/columns/In%20Progress/order", r.URL.EscapedPath())

		var req rest.ReorderColumnRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"t2", "t1"}, req.TicketIDs)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success": true}`))
	})

	err := rest.NewBoardClient(client).ReorderColumn(ctx, "p1", "In Progress", []string{"t2", "t1"})
	require.NoError(t, err)
}

func TestClient_FailureBecomesRemoteError(t *testing.T) {
	ctx := context.Background()

	t.Run("non-2xx with envelope", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{
				"success": false,
				"message": "validation failed",
				"errors": {"new_status": ["unknown column"]}
			}`))
		})

		err := rest.NewBoardClient(client).MoveTicket(ctx, "t9", "Nowhere")
		require.Error(t, err)

		var remote *apperrors.RemoteError
		require.True(t, errors.As(err, &remote))
		assert.Equal(t, http.StatusUnprocessableEntity, remote.StatusCode)
		assert.Equal(t, "validation failed", remote.Message)
		assert.Equal(t, []string{"unknown column"}, remote.Fields["new_status"])
	})

	t.Run("2xx with success false", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"success": false, "message": "nope"}`))
		})

		err := rest.NewBoardClient(client).MoveTicket(ctx, "t9", "Done")
		var remote *apperrors.RemoteError
		require.True(t, errors.As(err, &remote))
		assert.Equal(t, "nope", remote.Message)
	})
}

func TestTicketsClient_CRUD(t *testing.T) {
	ctx := context.Background()

	t.Run("list by project", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/tickets", r.URL.Path)
			assert.Equal(t, "p1", r.URL.Query().Get("project_id"))

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"success": true, "data": [
				{"id": "t1", "project_id": "p1", "title": "One", "status": "Open"},
				{"id": "t2", "project_id": "p1", "title": "Two", "status": "Done"}
			]}`))
		})

		tickets, err := rest.NewTicketsClient(client).ListByProject(ctx, "p1")
		require.NoError(t, err)
		require.Len(t, tickets, 2)
		assert.Equal(t, "Two", tickets[1].Title)
	})

	t.Run("create", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/tickets", r.URL.Path)

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"success": true, "data": {"id": "t3", "title": "Three", "status": "Open"}}`))
		})

		ticket, err := rest.NewTicketsClient(client).Create(ctx, map[string]string{"title": "Three"})
		require.NoError(t, err)
		assert.Equal(t, "t3", ticket.ID)
	})

	t.Run("delete handles 204", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodDelete, r.Method)
			assert.Equal(t, "/tickets/t3", r.URL.Path)
			w.WriteHeader(http.StatusNoContent)
		})

		require.NoError(t, rest.NewTicketsClient(client).Delete(ctx, "t3"))
	})
}
