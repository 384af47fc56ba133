package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	wsadapter "github.com/lorrc/trackboard-realtime/internal/adapters/secondary/websocket"
	"github.com/lorrc/trackboard-realtime/internal/auth"
	"github.com/lorrc/trackboard-realtime/internal/config"
	"github.com/lorrc/trackboard-realtime/internal/core/domain"
	"github.com/lorrc/trackboard-realtime/internal/core/services"
	"github.com/lorrc/trackboard-realtime/internal/infrastructure/logging"
)

// roomwatch connects to one collaboration room and tails its activity:
// presence changes, typing indicators and comment traffic.
func main() {
	roomFlag := flag.String("room", "ticket:demo-1", "room key as entityType:entityId")
	flag.Parse()

	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Structured Logger
	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      os.Stderr,
		ServiceName: "roomwatch",
		Environment: cfg.App.Environment,
	})

	room, err := domain.ParseRoomKey(*roomFlag)
	if err != nil {
		logger.Error("invalid room key", "room", *roomFlag, "error", err)
		os.Exit(1)
	}

	if cfg.Server.AuthToken == "" {
		logger.Error("TRACKER_TOKEN is required")
		os.Exit(1)
	}
	claims, err := auth.PeekClaims(cfg.Server.AuthToken)
	if err != nil {
		logger.Error("could not read user id from token", "error", err)
		os.Exit(1)
	}
	localUserID := claims.UserID.String()

	// 3. Initialize the Room Connection
	dialer := wsadapter.NewDialer(
		cfg.Server.WebSocketURL,
		cfg.Server.AuthToken,
		cfg.Realtime.HandshakeTimeout,
		logger,
	)
	manager := services.NewRoomManager(dialer, services.RoomManagerConfig{
		KeepaliveInterval: cfg.Realtime.KeepaliveInterval,
		ReconnectMinWait:  cfg.Realtime.ReconnectMinWait,
		ReconnectMaxWait:  cfg.Realtime.ReconnectMaxWait,
		SendQueueSize:     cfg.Realtime.SendQueueSize,
		SendRatePerSecond: cfg.Realtime.SendRatePerSecond,
		SendBurst:         cfg.Realtime.SendBurst,
		DialTimeout:       cfg.Realtime.HandshakeTimeout,
	}, logger)
	defer manager.Close()

	// 4. Attach the Room Engines
	presence, err := services.NewPresenceTracker(manager, room, services.PresenceTrackerConfig{
		ActiveWindow: cfg.Presence.ActiveWindow,
		IdleWindow:   cfg.Presence.IdleWindow,
	}, logger)
	if err != nil {
		logger.Error("failed to start presence tracker", "error", err)
		os.Exit(1)
	}
	defer presence.Close()

	typing, err := services.NewTypingCoordinator(manager, room, localUserID, services.TypingCoordinatorConfig{
		Debounce:      cfg.Typing.Debounce,
		StopAfter:     cfg.Typing.StopAfter,
		SweepInterval: cfg.Typing.SweepInterval,
		Expiry:        cfg.Typing.Expiry,
	}, logger)
	if err != nil {
		logger.Error("failed to start typing coordinator", "error", err)
		os.Exit(1)
	}
	defer typing.Close()

	comments, err := services.NewCommentSync(manager, room, logger)
	if err != nil {
		logger.Error("failed to start comment sync", "error", err)
		os.Exit(1)
	}
	defer comments.Close()

	// 5. Print Activity to Stdout
	for kind, line := range map[domain.EventKind]func(domain.Event) string{
		domain.KindUserJoined: func(e domain.Event) string {
			return fmt.Sprintf("+ %s joined", e.(*domain.UserJoinedEvent).UserID)
		},
		domain.KindUserLeft: func(e domain.Event) string {
			return fmt.Sprintf("- %s left", e.(*domain.UserLeftEvent).UserID)
		},
		domain.KindNewComment: func(e domain.Event) string {
			c := e.(*domain.NewCommentEvent).Comment
			return fmt.Sprintf("%s: %s", c.AuthorID, c.Content)
		},
		domain.KindTyping: func(e domain.Event) string {
			t := e.(*domain.TypingEvent)
			if t.IsTyping {
				return fmt.Sprintf("~ %s is typing", t.UserID)
			}
			return fmt.Sprintf("~ %s stopped typing", t.UserID)
		},
	} {
		print := line
		if _, err := manager.On(room, kind, func(e domain.Event) {
			fmt.Printf("[%s] %s\n", time.Now().Format("15:04:05"), print(e))
		}); err != nil {
			logger.Error("failed to subscribe", "kind", kind, "error", err)
			os.Exit(1)
		}
	}

	logger.Info("watching room",
		"room", room.String(),
		"user_id", localUserID,
		"server", cfg.Server.WebSocketURL,
	)

	// 6. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down",
		"online", len(presence.OnlineUsers()),
		"comments", comments.Len(),
	)
}
