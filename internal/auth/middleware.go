package auth

import (
	"context"
	"net/http"

	"github.com/loringw/nasablog/internal/models"
)

// RequireSession decodes the session cookie and injects the SessionContext
// into the request context. Requests without a valid session are rejected.
func RequireSession(sessions *SessionManager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := sessions.GetSession(r)
			if err != nil {
				http.Error(w, "authentication required", http.StatusUnauthorized)
				return
			}

			ctx := models.WithSession(r.Context(), session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin enforces the admin capability. Must run after RequireSession.
//
// Admin status is re-read from the database on every request so a revoked
// admin loses access immediately, not when their cookie expires.
func RequireAdmin(users UserLookup) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := models.SessionFromContext(r.Context())
			if !ok {
				http.Error(w, "authentication required", http.StatusUnauthorized)
				return
			}

			user, err := users.GetByID(r.Context(), session.UserID)
			if err != nil {
				http.Error(w, "authentication required", http.StatusUnauthorized)
				return
			}

			if !user.IsAdmin {
				http.Error(w, "admin access required", http.StatusForbidden)
				return
			}

			// Keep the context's admin flag in sync with the database.
			session.IsAdmin = user.IsAdmin
			ctx := models.WithSession(r.Context(), session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserLookup is the slice of the user repository the middleware needs
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}
