/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the back-office frontend

SECURITY NOTE:
  No authentication middleware here. In production the authorization and
  data-scoping collaborator sits in front of these routes.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
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
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/stats", h.GetStats)
		r.Post("/proofs", h.RegisterProof)

		// Policy routes
		r.Route("/policies", func(r chi.Router) {
			r.Get("/", h.ListPolicies)
			r.Post("/", h.CreatePolicy)
			r.Get("/{id}", h.GetPolicy)
			r.Get("/{id}/stats", h.GetPolicyStats)
			r.Get("/{id}/credits", h.ListCredits)
			r.Post("/{id}/credits", h.RecordCredit)
		})

		// Installment routes
		r.Route("/installments", func(r chi.Router) {
			r.Get("/{id}", h.GetInstallment)
			r.Get("/{id}/payments", h.ListPayments)
			r.Post("/{id}/payments", h.RegisterPayment)
			r.Get("/{id}/extensions", h.ListExtensions)
			r.Post("/{id}/extensions", h.ExtendDueDate)
			r.Get("/{id}/candidates", h.ListCandidates)
			r.Post("/{id}/redistribution/preview", h.PreviewSplit)
			r.Post("/{id}/redistribution", h.ApplyRedistribution)
		})
	})

	return r
}
