package auth

import (
	"net/http"

	"github.com/gorilla/securecookie"
	"github.com/loringw/nasablog/internal/models"
)

const sessionCookieName = "session"

// CookieConfig holds cookie configuration settings
type CookieConfig struct {
	Domain   string // Empty string = current host only
	Secure   bool   // HTTPS only
	SameSite string // "strict", "lax", or "none"
	MaxAge   int    // Seconds; also the codec's validity window
}

// SessionManager encodes SessionContext values into signed (and optionally
// encrypted) cookies. The cookie is the only session transport; there is no
// server-side session store.
type SessionManager struct {
	codec  *securecookie.SecureCookie
	config CookieConfig
}

// NewSessionManager creates a SessionManager. hashKey is required; blockKey
// enables encryption when non-empty and must be 16, 24, or 32 bytes.
func NewSessionManager(hashKey, blockKey []byte, config CookieConfig) *SessionManager {
	if len(blockKey) == 0 {
		blockKey = nil
	}
	codec := securecookie.New(hashKey, blockKey)
	if config.MaxAge > 0 {
		codec.MaxAge(config.MaxAge)
	}
	return &SessionManager{codec: codec, config: config}
}

// SetSession writes the session cookie for an authenticated account
func (m *SessionManager) SetSession(w http.ResponseWriter, session models.SessionContext) error {
	encoded, err := m.codec.Encode(sessionCookieName, session)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    encoded,
		Path:     "/",
		Domain:   m.config.Domain,
		MaxAge:   m.config.MaxAge,
		HttpOnly: true,
		Secure:   m.config.Secure,
		SameSite: parseSameSite(m.config.SameSite),
	})
	return nil
}

// GetSession decodes the session cookie. A missing, expired, or tampered
// cookie returns an error; callers treat all of those as "not logged in".
func (m *SessionManager) GetSession(r *http.Request) (models.SessionContext, error) {
	var session models.SessionContext

	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return session, err
	}

	if err := m.codec.Decode(sessionCookieName, cookie.Value, &session); err != nil {
		return models.SessionContext{}, err
	}
	return session, nil
}

// ClearSession expires the session cookie
func (m *SessionManager) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   m.config.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.config.Secure,
		SameSite: parseSameSite(m.config.SameSite),
	})
}

// parseSameSite converts string to http.SameSite constant
func parseSameSite(sameSite string) http.SameSite {
	switch sameSite {
	case "strict":
		return http.SameSiteStrictMode
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteDefaultMode
	}
}
