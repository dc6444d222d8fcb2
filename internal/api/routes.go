package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// buildRouter assembles the route tree. Auth and health stay open; every
// /api route requires a session (when auth is enabled) and a tenant
// context, and generation routes additionally pass the rate limiter.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Tenant-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.health.HandleHealth)

	if s.authManager != nil {
		r.Route("/auth", func(r chi.Router) {
			r.Get("/login", s.authManager.HandleLogin)
			r.Get("/callback", s.authManager.HandleCallback)
			r.Get("/logout", s.authManager.HandleLogout)
			r.Get("/me", s.authManager.HandleUserInfo)
		})
	}

	r.Route("/api", func(r chi.Router) {
		if s.authManager != nil && s.cfg.Auth.Enabled {
			r.Use(s.authManager.RequireAuth)
		}
		r.Use(s.tenants.RequireTenant)

		r.Route("/ai", func(r chi.Router) {
			r.Use(s.rateLimiter.Middleware)
			s.generation.RegisterRoutes(r)
		})

		r.Route("/personalization", func(r chi.Router) {
			s.personalization.RegisterRoutes(r)
		})

		r.Route("/export", func(r chi.Router) {
			s.exports.RegisterRoutes(r)
		})

		r.Route("/templates", func(r chi.Router) {
			s.templatesH.RegisterRoutes(r)
		})
	})

	return r
}
