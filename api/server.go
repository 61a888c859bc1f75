/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the status HTTP router (chi), middleware stack, and route
  definitions. The bot itself talks over the Mattermost websocket; this
  server only exposes operational state for monitoring.

ROUTER: chi

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for dashboards

ROUTES:
  /healthz              Liveness probe
  /api/status           Bot counters (sessions, users, reports)
  /api/reports          Recent report run history

SECURITY NOTE:
  No authentication middleware. Bind the status port to localhost or a
  private network; it exposes usage counters, never credentials.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/bot/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/healthz", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", h.Status)
		r.Get("/reports", h.ListReports)
	})

	return r
}
