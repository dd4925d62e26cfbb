package routes

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/loringw/nasablog/internal/auth"
	"github.com/loringw/nasablog/internal/handlers"
	"github.com/loringw/nasablog/internal/middleware"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	adminHandler *handlers.AdminHandler,
	sessions *auth.SessionManager,
	users auth.UserLookup,
	logger *slog.Logger,
) {
	// Public routes - no authentication required
	router.Post("/auth/login", authHandler.Login)
	router.Post("/auth/register", authHandler.Register)
	router.Post("/auth/logout", authHandler.Logout)
	router.Get("/auth/captcha", authHandler.Captcha)

	// Authenticated routes. Login and register carry credentials in the
	// body, so CSRF protection only applies once requests ride the session
	// cookie.
	router.Group(func(r chi.Router) {
		r.Use(auth.RequireSession(sessions))
		r.Use(middleware.CSRFProtection(logger))

		r.Get("/auth/me", authHandler.Me)

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin(users))

			r.Get("/admin/users", adminHandler.ListUsers)
			r.Post("/admin/users", adminHandler.CreateUser)
			r.Put("/admin/users/{id}", adminHandler.UpdateUser)
			r.Delete("/admin/users/{id}", adminHandler.DeleteUser)
			r.Post("/admin/users/{id}/approve", adminHandler.ApproveUser)
			r.Post("/admin/users/{id}/toggle-admin", adminHandler.ToggleAdmin)
			r.Post("/admin/users/{id}/reset-password", adminHandler.ResetPassword)
			r.Get("/admin/login-attempts", adminHandler.ListLoginAttempts)
		})
	})
}
