package auth

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
)

const csrfCookieName = "csrf_token"

// GenerateCSRFToken returns a fresh random token for the double-submit
// cookie pattern.
func GenerateCSRFToken() (string, error) {
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(randomBytes), nil
}

// IssueCSRFCookie generates a token and sets it in a cookie the client can
// read. The cookie is intentionally not HttpOnly: clients echo the value
// back in the X-CSRF-Token header, which a cross-site form post cannot do.
func (m *SessionManager) IssueCSRFCookie(w http.ResponseWriter) (string, error) {
	token, err := GenerateCSRFToken()
	if err != nil {
		return "", err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		Domain:   m.config.Domain,
		MaxAge:   m.config.MaxAge,
		HttpOnly: false,
		Secure:   m.config.Secure,
		SameSite: parseSameSite(m.config.SameSite),
	})
	return token, nil
}

// ClearCSRFCookie expires the CSRF cookie
func (m *SessionManager) ClearCSRFCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    "",
		Path:     "/",
		Domain:   m.config.Domain,
		MaxAge:   -1,
		HttpOnly: false,
		Secure:   m.config.Secure,
		SameSite: parseSameSite(m.config.SameSite),
	})
}

// GetCSRFCookie retrieves the CSRF token from cookies
func GetCSRFCookie(r *http.Request) (string, error) {
	cookie, err := r.Cookie(csrfCookieName)
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}
