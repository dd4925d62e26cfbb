package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/loringw/nasablog/internal/auth"
)

// CSRFProtection validates the double-submit CSRF token on state-changing
// requests. The session travels in a cookie the browser attaches
// automatically, so every POST/PUT/DELETE/PATCH must also carry an
// X-CSRF-Token header matching the csrf_token cookie; a cross-site form
// post can send the cookie but cannot set the header.
func CSRFProtection(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isStateChangingMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			headerToken := r.Header.Get("X-CSRF-Token")
			if headerToken == "" {
				logger.Warn("CSRF token missing in request",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path))
				http.Error(w, "CSRF token missing", http.StatusForbidden)
				return
			}

			cookieToken, err := auth.GetCSRFCookie(r)
			if err != nil || subtle.ConstantTimeCompare([]byte(cookieToken), []byte(headerToken)) != 1 {
				logger.Warn("CSRF token validation failed",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path))
				http.Error(w, "CSRF token invalid", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// isStateChangingMethod checks if the HTTP method modifies state
func isStateChangingMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
		return true
	default:
		return false
	}
}
