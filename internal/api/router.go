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
		// Health check
		r.Get("/health", s.handleHealth)

		// System metrics
		r.Get("/metrics", s.handleMetrics)

		// Automation endpoints
		r.Route("/automations", func(r chi.Router) {
			r.Get("/", s.handleListAutomations)
			r.Post("/", s.handleCreateAutomation)
			r.Get("/graphs", s.handleListGraphs)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetAutomation)
				r.Patch("/", s.handleUpdateAutomation)
				r.Delete("/", s.handleDeleteAutomation)
				r.Get("/graph", s.handleGetGraph)
			})
		})

		// Dependency analysis endpoints
		r.Route("/dependencies", func(r chi.Router) {
			r.Get("/", s.handleDependencyGraph)
			r.Get("/chains", s.handleDependencyChains)
			r.Get("/circular", s.handleCircularDependencies)
			r.Get("/opportunities", s.handleOpportunities)
			r.Get("/impact/{id}", s.handleImpactAnalysis)
			r.Get("/execution-order/{id}", s.handleExecutionOrder)
		})

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
