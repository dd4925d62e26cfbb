package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/loringw/nasablog/internal/models"
	"github.com/loringw/nasablog/internal/services"
	pkghttp "github.com/loringw/nasablog/pkg/http"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithSessionContext attaches a session to the request context, as the
// session middleware would
func WithSessionContext(req *http.Request, session models.SessionContext) *http.Request {
	return req.WithContext(models.WithSession(req.Context(), session))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	LoginFunc    func(ctx context.Context, username, password, ipAddress, userAgent string) (*services.LoginResult, error)
	RegisterFunc func(ctx context.Context, in services.RegisterInput) (*models.User, error)
}

func (m *MockAuthService) Login(ctx context.Context, username, password, ipAddress, userAgent string) (*services.LoginResult, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, username, password, ipAddress, userAgent)
	}
	return nil, models.ErrInvalidCredentials
}

func (m *MockAuthService) Register(ctx context.Context, in services.RegisterInput) (*models.User, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, in)
	}
	return nil, models.ErrInternalServer
}

// MockUserService implements UserServiceInterface for testing
type MockUserService struct {
	ListFunc          func(ctx context.Context, actor models.SessionContext, limit, offset int) ([]*models.User, error)
	ApproveFunc       func(ctx context.Context, actor models.SessionContext, id string) (*models.User, error)
	ToggleAdminFunc   func(ctx context.Context, actor models.SessionContext, id string) (*models.User, error)
	UpdateFunc        func(ctx context.Context, actor models.SessionContext, id string, in services.UpdateUserInput) (*models.User, error)
	DeleteFunc        func(ctx context.Context, actor models.SessionContext, id string) error
	CreateFunc        func(ctx context.Context, actor models.SessionContext, in services.CreateUserInput) (*models.User, error)
	ResetPasswordFunc func(ctx context.Context, actor models.SessionContext, id, newPassword, confirm string) error
}

func (m *MockUserService) List(ctx context.Context, actor models.SessionContext, limit, offset int) ([]*models.User, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, actor, limit, offset)
	}
	return []*models.User{}, nil
}

func (m *MockUserService) Approve(ctx context.Context, actor models.SessionContext, id string) (*models.User, error) {
	if m.ApproveFunc != nil {
		return m.ApproveFunc(ctx, actor, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserService) ToggleAdmin(ctx context.Context, actor models.SessionContext, id string) (*models.User, error) {
	if m.ToggleAdminFunc != nil {
		return m.ToggleAdminFunc(ctx, actor, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserService) Update(ctx context.Context, actor models.SessionContext, id string, in services.UpdateUserInput) (*models.User, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, actor, id, in)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserService) Delete(ctx context.Context, actor models.SessionContext, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, actor, id)
	}
	return models.ErrNotFound
}

func (m *MockUserService) Create(ctx context.Context, actor models.SessionContext, in services.CreateUserInput) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, actor, in)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserService) ResetPassword(ctx context.Context, actor models.SessionContext, id, newPassword, confirm string) error {
	if m.ResetPasswordFunc != nil {
		return m.ResetPasswordFunc(ctx, actor, id, newPassword, confirm)
	}
	return models.ErrNotFound
}

// MockAttemptReader implements AttemptReader for testing
type MockAttemptReader struct {
	RecentAttemptsFunc func(ctx context.Context, actor models.SessionContext, limit int) ([]*models.LoginAttempt, error)
}

func (m *MockAttemptReader) RecentAttempts(ctx context.Context, actor models.SessionContext, limit int) ([]*models.LoginAttempt, error) {
	if m.RecentAttemptsFunc != nil {
		return m.RecentAttemptsFunc(ctx, actor, limit)
	}
	return []*models.LoginAttempt{}, nil
}
