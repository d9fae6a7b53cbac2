// Package api exposes the import wizard over HTTP.
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures all API routes.
func SetupRoutes(h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	// CORS - the wizard UI runs on a separate origin in development
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Route("/imports", func(r chi.Router) {
			r.Post("/", h.HandleCreateSession)
			r.Get("/fields", h.HandleGetFields)
			r.Get("/history", h.HandleListHistory)

			r.Route("/{sessionId}", func(r chi.Router) {
				r.Get("/", h.HandleGetSession)
				r.Delete("/", h.HandleCloseSession)
				r.Post("/upload", h.HandleUpload)
				r.Put("/mappings", h.HandleSetMapping)
				r.Post("/confirm", h.HandleConfirmMapping)
				r.Post("/back", h.HandleBack)
				r.Post("/rows/{index}/toggle", h.HandleToggleRow)
				r.Post("/start", h.HandleStartImport)
				r.Get("/progress", h.HandleProgress)
				r.Get("/results", h.HandleResults)
			})
		})
	})

	return r
}
