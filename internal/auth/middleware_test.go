package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/loringw/nasablog/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUserLookup struct {
	user *models.User
	err  error
}

func (s *stubUserLookup) GetByID(ctx context.Context, id string) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.user, nil
}

func sessionRequest(t *testing.T, m *SessionManager, session models.SessionContext) *http.Request {
	t.Helper()
	rec := httptest.NewRecorder()
	require.NoError(t, m.SetSession(rec, session))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(rec.Result().Cookies()[0])
	return req
}

func TestRequireSession_ValidCookie(t *testing.T) {
	m := newTestSessionManager(t)
	session := models.SessionContext{UserID: "user123", Username: "carl"}

	var got models.SessionContext
	var ok bool
	handler := RequireSession(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = models.SessionFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, sessionRequest(t, m, session))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, ok)
	assert.Equal(t, session, got)
}

func TestRequireSession_MissingCookie(t *testing.T) {
	m := newTestSessionManager(t)

	handler := RequireSession(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a session")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAdmin_AdminAllowed(t *testing.T) {
	m := newTestSessionManager(t)
	admin := &models.User{ID: "admin1", Username: "admin", IsAdmin: true}
	lookup := &stubUserLookup{user: admin}

	called := false
	handler := RequireSession(m)(RequireAdmin(lookup)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, sessionRequest(t, m, models.SessionContext{UserID: "admin1", Username: "admin", IsAdmin: true}))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)
}

func TestRequireAdmin_RevokedAdminRejected(t *testing.T) {
	// The cookie still claims admin, but the database says otherwise.
	m := newTestSessionManager(t)
	demoted := &models.User{ID: "admin1", Username: "admin", IsAdmin: false}
	lookup := &stubUserLookup{user: demoted}

	handler := RequireSession(m)(RequireAdmin(lookup)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run for a demoted admin")
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, sessionRequest(t, m, models.SessionContext{UserID: "admin1", Username: "admin", IsAdmin: true}))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAdmin_DeletedUserRejected(t *testing.T) {
	m := newTestSessionManager(t)
	lookup := &stubUserLookup{err: models.ErrNotFound}

	handler := RequireSession(m)(RequireAdmin(lookup)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run for a deleted account")
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, sessionRequest(t, m, models.SessionContext{UserID: "ghost", IsAdmin: true}))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAdmin_NoSession(t *testing.T) {
	lookup := &stubUserLookup{user: &models.User{IsAdmin: true}}

	handler := RequireAdmin(lookup)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a session")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
