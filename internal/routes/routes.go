package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/creatorsgarden/garden/internal/auth"
	"github.com/creatorsgarden/garden/internal/handlers"
	"github.com/creatorsgarden/garden/internal/middleware"
)

// RegisterRoutes registers all application routes. The rate limiter is
// applied globally by the caller; this wires the auth and CSRF layers.
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	adminHandler *handlers.AdminHandler,
	sessions auth.SessionValidator,
	csrf middleware.CSRFValidator,
	recorder auth.SecurityRecorder,
) {
	// Public routes - no session required
	router.Post("/auth/register", authHandler.Register)
	router.Post("/auth/login", authHandler.Login)

	// Protected routes - session cookie plus CSRF header on mutations
	router.Group(func(r chi.Router) {
		r.Use(auth.RequireSession(sessions))
		r.Use(middleware.RequireCSRF(csrf, recorder))

		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/users/me", userHandler.Me)
		r.Post("/users/me/password", userHandler.ChangePassword)

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(recorder, "admin"))
			r.Get("/admin/users", adminHandler.ListUsers)
			r.Post("/admin/users/{id}/unlock", adminHandler.UnlockUser)
			r.Post("/admin/users/{id}/suspend", adminHandler.SuspendUser)
			r.Post("/admin/users/{id}/activate", adminHandler.ActivateUser)
			r.Get("/admin/security-events", adminHandler.QueryEvents)
			r.Get("/admin/security-events/anomalies", adminHandler.DetectAnomalies)
		})
	})
}
