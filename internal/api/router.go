package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Station flow control
		r.Route("/stations", func(r chi.Router) {
			r.Get("/", s.handleListStations)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetStation)
				r.Post("/inbound", s.handleStartInbound)
				r.Post("/outbound", s.handleStartOutbound)
				r.Post("/confirm", s.handleConfirm)
				r.Post("/dispose", s.handleDispose)
				r.Post("/lift", s.handleLiftCommand)
				r.Post("/water", s.handleWaterCommand)
			})
		})

		// Task history
		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", s.handleListTasks)
			r.Get("/{id}", s.handleGetTask)
		})

		// Tray inventory
		r.Route("/trays", func(r chi.Router) {
			r.Get("/", s.handleListTrays)
			r.Get("/slots", s.handleSuggestSlots)
			r.Get("/blocking", s.handleBlocking)
			r.Get("/{id}", s.handleGetTray)
		})

		// Lighting bus
		r.Post("/lighting/dim", s.handleLightingDim)

		// WebSocket
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
