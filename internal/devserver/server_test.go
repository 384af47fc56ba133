package devserver_test

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/trackboard-realtime/internal/adapters/secondary/rest"
	wsadapter "github.com/lorrc/trackboard-realtime/internal/adapters/secondary/websocket"
	"github.com/lorrc/trackboard-realtime/internal/config"
	"github.com/lorrc/trackboard-realtime/internal/core/domain"
	"github.com/lorrc/trackboard-realtime/internal/core/services"
	"github.com/lorrc/trackboard-realtime/internal/devserver"
	"github.com/lorrc/trackboard-realtime/internal/infrastructure/logging"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubServer struct {
	url   string // http base including /api/v1
	wsURL string // ws base including /api/v1
	store *devserver.Store
	srv   *devserver.Server
}

func startStubServer(t *testing.T) *stubServer {
	t.Helper()

	cfg := config.DevServerConfig{
		JWTSecret:         "test-secret",
		ReadBufferSize:    1024,
		WriteBufferSize:   1024,
		RequestsPerSecond: 1000,
		BurstSize:         1000,
	}
	logger := testLogger()

	store := devserver.NewStore()
	hub := devserver.NewHub(store, logger)
	go hub.Run()

	srv := devserver.NewServer(cfg, store, hub, logger)
	router := devserver.NewRouter(cfg, srv, &logging.HTTPRequestLogger{Logger: logger})

	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)

	return &stubServer{
		url:   ts.URL + "/api/v1",
		wsURL: "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1",
		store: store,
		srv:   srv,
	}
}

// newClient builds a full client stack against the stub: a minted token,
// the gorilla dialer and a room manager. The manager connects lazily on
// the first On or an explicit Connect, so callers can register handlers
// before the dial completes.
func newClient(t *testing.T, stub *stubServer, displayName string) (*services.RoomManager, string) {
	t.Helper()

	userID := uuid.New()
	token, err := stub.srv.TokenManager().GenerateToken(userID, displayName)
	require.NoError(t, err)

	dialer := wsadapter.NewDialer(stub.wsURL, token, 2*time.Second, testLogger())
	manager := services.NewRoomManager(dialer, services.RoomManagerConfig{
		KeepaliveInterval: time.Hour,
		ReconnectMinWait:  10 * time.Millisecond,
		ReconnectMaxWait:  50 * time.Millisecond,
		SendQueueSize:     16,
		SendRatePerSecond: 1000,
		SendBurst:         1000,
		DialTimeout:       2 * time.Second,
	}, testLogger())
	t.Cleanup(manager.Close)

	return manager, userID.String()
}

// collect subscribes to one event kind and buffers everything received.
func collect(t *testing.T, manager *services.RoomManager, room domain.RoomKey, kind domain.EventKind) <-chan domain.Event {
	t.Helper()
	ch := make(chan domain.Event, 32)
	_, err := manager.On(room, kind, func(event domain.Event) {
		ch <- event
	})
	require.NoError(t, err)
	return ch
}

func waitFor[E domain.Event](t *testing.T, ch <-chan domain.Event) E {
	t.Helper()
	select {
	case event := <-ch:
		got, ok := event.(E)
		require.True(t, ok, "unexpected event type %T", event)
		return got
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
		panic("unreachable")
	}
}

func TestDevServer_WebSocketCollaboration(t *testing.T) {
	stub := startStubServer(t)
	room, err := domain.NewRoomKey(domain.EntityTicket, "demo-1")
	require.NoError(t, err)

	alice, aliceID := newClient(t, stub, "Alice")
	aliceUsers := collect(t, alice, room, domain.KindActiveUsers)
	aliceJoins := collect(t, alice, room, domain.KindUserJoined)
	aliceComments := collect(t, alice, room, domain.KindNewComment)

	// The manager requests a presence snapshot as soon as the socket
	// opens; the stub answers with everyone currently online.
	snapshot := waitFor[*domain.ActiveUsersEvent](t, aliceUsers)
	require.Len(t, snapshot.Users, 1)
	assert.Equal(t, aliceID, snapshot.Users[0].UserID)

	bob, bobID := newClient(t, stub, "Bob")
	bobComments := collect(t, bob, room, domain.KindNewComment)
	bobTyping := collect(t, bob, room, domain.KindTyping)

	join := waitFor[*domain.UserJoinedEvent](t, aliceJoins)
	assert.Equal(t, bobID, join.UserID)

	// A posted comment is stored and echoed to every session, author
	// included.
	require.NoError(t, bob.Send(room, domain.PostCommentEvent{Content: "shall we ship it?"}))

	forAlice := waitFor[*domain.NewCommentEvent](t, aliceComments)
	forBob := waitFor[*domain.NewCommentEvent](t, bobComments)
	assert.Equal(t, forAlice.Comment.ID, forBob.Comment.ID)
	assert.Equal(t, "shall we ship it?", forAlice.Comment.Content)
	assert.Equal(t, bobID, forAlice.Comment.AuthorID)

	require.Len(t, stub.store.Comments(room.String()), 1)

	// Typing signals are relayed with the sender's identity stamped by
	// the server, never trusted from the payload.
	require.NoError(t, alice.Send(room, domain.SetTypingEvent{IsTyping: true}))

	typing := waitFor[*domain.TypingEvent](t, bobTyping)
	assert.Equal(t, aliceID, typing.UserID)
	assert.True(t, typing.IsTyping)
}

func TestDevServer_PresenceAcrossDisconnect(t *testing.T) {
	stub := startStubServer(t)
	room, err := domain.NewRoomKey(domain.EntityTicket, "demo-2")
	require.NoError(t, err)

	alice, _ := newClient(t, stub, "Alice")
	aliceLeaves := collect(t, alice, room, domain.KindUserLeft)

	bob, bobID := newClient(t, stub, "Bob")
	require.NoError(t, bob.Connect(room))

	require.Eventually(t, func() bool {
		return len(stub.store.ActiveUsers(room.String())) == 2
	}, 5*time.Second, 10*time.Millisecond)

	bob.Disconnect(room)

	left := waitFor[*domain.UserLeftEvent](t, aliceLeaves)
	assert.Equal(t, bobID, left.UserID)

	require.Eventually(t, func() bool {
		return len(stub.store.ActiveUsers(room.String())) == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestDevServer_RejectsInvalidToken(t *testing.T) {
	stub := startStubServer(t)
	room, err := domain.NewRoomKey(domain.EntityTicket, "demo-3")
	require.NoError(t, err)

	dialer := wsadapter.NewDialer(stub.wsURL, "forged-token", 2*time.Second, testLogger())
	_, err = dialer.Dial(context.Background(), room)
	assert.Error(t, err)
}

func TestDevServer_RESTRoundTrip(t *testing.T) {
	stub := startStubServer(t)
	require.NoError(t, stub.store.SeedBoard("p1", storeBoard()))

	client := rest.NewClient(stub.url, "any-token", 5*time.Second, testLogger())
	ctx := context.Background()

	boards := rest.NewBoardClient(client)
	board, err := boards.GetBoard(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, board.Columns, 2)

	require.NoError(t, boards.MoveTicket(ctx, "t1", "Done"))
	require.NoError(t, boards.ReorderColumn(ctx, "p1", "Done", []string{"t1", "t3"}))

	board, err = boards.GetBoard(ctx, "p1")
	require.NoError(t, err)
	status, index, err := board.Locate("t1")
	require.NoError(t, err)
	assert.Equal(t, "Done", status)
	assert.Equal(t, 0, index)

	// Failures come back as structured remote errors.
	err = boards.MoveTicket(ctx, "ghost", "Done")
	require.Error(t, err)

	tickets := rest.NewTicketsClient(client)
	created, err := tickets.Create(ctx, map[string]string{
		"title":      "Wire the dashboard",
		"project_id": "p1",
		"status":     "Open",
	})
	require.NoError(t, err)

	listed, err := tickets.ListByProject(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, listed, 1)

	require.NoError(t, tickets.Delete(ctx, created.ID))
}
