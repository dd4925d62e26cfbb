package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/loringw/nasablog/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessionManager(t *testing.T) *SessionManager {
	t.Helper()
	hashKey := []byte("test-hash-key-must-be-32-bytes!!")
	blockKey := []byte("test-block-key-16")[:16]
	return NewSessionManager(hashKey, blockKey, CookieConfig{
		SameSite: "lax",
		MaxAge:   3600,
	})
}

func TestSessionManager_RoundTrip(t *testing.T) {
	m := newTestSessionManager(t)

	rec := httptest.NewRecorder()
	session := models.SessionContext{UserID: "user123", Username: "carl", IsAdmin: true}
	require.NoError(t, m.SetSession(rec, session))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "session", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])

	decoded, err := m.GetSession(req)
	require.NoError(t, err)
	assert.Equal(t, session, decoded)
}

func TestSessionManager_MissingCookie(t *testing.T) {
	m := newTestSessionManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := m.GetSession(req)
	assert.Error(t, err)
}

func TestSessionManager_TamperedCookieRejected(t *testing.T) {
	m := newTestSessionManager(t)

	rec := httptest.NewRecorder()
	require.NoError(t, m.SetSession(rec, models.SessionContext{UserID: "user123", Username: "carl"}))

	cookie := rec.Result().Cookies()[0]
	cookie.Value = cookie.Value[:len(cookie.Value)-4] + "XXXX"

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)

	_, err := m.GetSession(req)
	assert.Error(t, err)
}

func TestSessionManager_DifferentKeysRejected(t *testing.T) {
	m1 := newTestSessionManager(t)
	m2 := NewSessionManager([]byte("another-hash-key-also-32-bytes!!"), nil, CookieConfig{MaxAge: 3600})

	rec := httptest.NewRecorder()
	require.NoError(t, m1.SetSession(rec, models.SessionContext{UserID: "user123"}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(rec.Result().Cookies()[0])

	_, err := m2.GetSession(req)
	assert.Error(t, err)
}

func TestSessionManager_ClearSession(t *testing.T) {
	m := newTestSessionManager(t)

	rec := httptest.NewRecorder()
	m.ClearSession(rec)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "session", cookies[0].Name)
	assert.Equal(t, -1, cookies[0].MaxAge)
	assert.Empty(t, cookies[0].Value)
}
