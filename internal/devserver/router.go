package devserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/lorrc/trackboard-realtime/internal/config"
	"github.com/lorrc/trackboard-realtime/internal/infrastructure/logging"
)

// NewRouter builds the stub's HTTP surface: the websocket endpoint plus
// the REST endpoints under /api/v1, matching the paths the client
// library uses.
func NewRouter(cfg config.DevServerConfig, srv *Server, httpLogger *logging.HTTPRequestLogger) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(RequestLogger(httpLogger))
	r.Use(Recovery(httpLogger))

	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", RequestIDHeader},
		ExposedHeaders:   []string{RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	limiter := NewRateLimiter(cfg.RequestsPerSecond, cfg.BurstSize)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", srv.HandleHealth)

		// Real-time rooms
		r.Get("/ws/{entityType}/{entityId}", srv.HandleWebSocket)

		// REST surface, rate limited
		r.Group(func(r chi.Router) {
			r.Use(limiter.Middleware)

			r.Route("/projects/{projectID}/board", func(r chi.Router) {
				r.Get("/", srv.HandleGetBoard)
				r.Put("/", srv.HandleSeedBoard)
				r.Put("/columns/{status}/order", srv.HandleReorderColumn)
			})
			r.Post("/board/tickets/move", srv.HandleMoveTicket)

			r.Route("/tickets", func(r chi.Router) {
				r.Get("/", srv.HandleListTickets)
				r.Post("/", srv.HandleCreateTicket)
				r.Get("/{ticketID}", srv.HandleGetTicket)
				r.Put("/{ticketID}", srv.HandleUpdateTicket)
				r.Delete("/{ticketID}", srv.HandleDeleteTicket)
			})
		})
	})

	return r
}
