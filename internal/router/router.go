package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"buiq-backend/internal/handlers"
	"buiq-backend/internal/middleware"
	"buiq-backend/internal/websocket"
)

// Limits groups the per-IP limiters applied to the API.
type Limits struct {
	Session *middleware.RateLimiter
	Send    *middleware.RateLimiter
}

func New(
	sessionAuth *middleware.SessionAuth,
	chatHandler *handlers.ChatHandler,
	wsHub *websocket.Hub,
	limits Limits,
	frontendURL string,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	r.Get("/", handlers.Page)
	r.Get("/health", handlers.Health)

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Session Routes ────
		r.With(limits.Session.Middleware).Post("/session", chatHandler.CreateSession)

		r.Group(func(r chi.Router) {
			r.Use(sessionAuth.Middleware)
			r.Delete("/session", chatHandler.EndSession)
			r.Get("/status", chatHandler.Status)

			// ──── Message Routes ────
			r.Route("/messages", func(r chi.Router) {
				r.Get("/", chatHandler.ListMessages)
				r.With(limits.Send.Middleware).Post("/", chatHandler.SendMessage)
			})
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
