package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"

	"github.com/quillpress/engine/internal/api/handlers"
	mw "github.com/quillpress/engine/internal/api/middleware"
)

type Dependencies struct {
	HMACSecret   []byte
	AuthHandler  *handlers.AuthHandler
	UsersHandler *handlers.UsersHandler
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.Recovery)
	r.Use(mw.Logging)
	r.Use(mw.CORS)
	r.Use(mw.RateLimit(10, 20))
	r.Use(chimid.Compress(5))

	// Health endpoints
	hh := handlers.NewHealthHandler()
	r.Get("/healthz", hh.Liveness)
	r.Get("/readyz", hh.Readiness)

	r.Route("/api/v1", func(api chi.Router) {
		// Auth routes (public)
		api.Post("/auth/login", dep.AuthHandler.Login)

		// User management (authenticated)
		api.Route("/users", func(ur chi.Router) {
			ur.Use(mw.Auth(dep.HMACSecret))

			// Listing and creation are admin operations; the remaining
			// routes check self-or-admin per request.
			ur.With(mw.RequireAdmin).Get("/", dep.UsersHandler.List)
			ur.With(mw.RequireAdmin).Post("/", dep.UsersHandler.Create)

			ur.Get("/{id}", dep.UsersHandler.Get)
			ur.Put("/{id}", dep.UsersHandler.Update)
			ur.Put("/{id}/password", dep.UsersHandler.UpdatePassword)
		})
	})

	return r
}
