package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/lorrc/trackboard-realtime/internal/config"
	"github.com/lorrc/trackboard-realtime/internal/core/domain"
	"github.com/lorrc/trackboard-realtime/internal/devserver"
	"github.com/lorrc/trackboard-realtime/internal/infrastructure/logging"
)

func main() {
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
		Output:      os.Stdout,
		ServiceName: "trackboard-devserver",
		Environment: cfg.App.Environment,
	})

	logger.Info("starting development collaborator stub",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	// 3. Initialize State and Hub
	store := devserver.NewStore()
	seedDemoData(store, logger)

	hub := devserver.NewHub(store, logger)
	go hub.Run()

	// 4. Wire the Server
	srv := devserver.NewServer(cfg.DevServer, store, hub, logger)
	httpLogger := &logging.HTTPRequestLogger{Logger: logger}
	router := devserver.NewRouter(cfg.DevServer, srv, httpLogger)

	// Print a usable token so a client can connect immediately.
	if token, err := srv.TokenManager().GenerateToken(uuid.New(), "dev-user"); err == nil {
		logger.Info("issued development token", "token", token)
	}

	// 5. Start Server with Graceful Shutdown
	server := &http.Server{
		Addr:         cfg.DevServer.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.DevServer.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutdown signal received", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server shutdown complete")
}

// seedDemoData loads a small board so drag interactions work out of the
// box against the stub.
func seedDemoData(store *devserver.Store, logger *slog.Logger) {
	board := &domain.Board{
		Columns: []domain.Column{
			{Status: "Open", Tickets: []domain.TicketCard{
				{ID: "t1", Title: "Set up project skeleton", Status: "Open", Priority: "high"},
				{ID: "t2", Title: "Design board layout", Status: "Open", Priority: "medium"},
				{ID: "t3", Title: "Write onboarding docs", Status: "Open", Priority: "low"},
			}},
			{Status: "In Progress", Tickets: []domain.TicketCard{
				{ID: "t4", Title: "Implement drag and drop", Status: "In Progress", Priority: "high"},
			}},
			{Status: "Done", Tickets: []domain.TicketCard{
				{ID: "t5", Title: "Pick a task tracker", Status: "Done", Priority: "low"},
			}},
		},
	}
	if err := store.SeedBoard("demo", board); err != nil {
		logger.Warn("failed to seed demo board", "error", err)
		return
	}
	logger.Info("seeded demo board", "project_id", "demo", "tickets", board.TicketCount())
}
