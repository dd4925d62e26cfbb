package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/loringw/nasablog/internal/models"
	"github.com/loringw/nasablog/internal/services"
	pkghttp "github.com/loringw/nasablog/pkg/http"
)

// UserServiceInterface defines the admin user-management contract
type UserServiceInterface interface {
	List(ctx context.Context, actor models.SessionContext, limit, offset int) ([]*models.User, error)
	Approve(ctx context.Context, actor models.SessionContext, id string) (*models.User, error)
	ToggleAdmin(ctx context.Context, actor models.SessionContext, id string) (*models.User, error)
	Update(ctx context.Context, actor models.SessionContext, id string, in services.UpdateUserInput) (*models.User, error)
	Delete(ctx context.Context, actor models.SessionContext, id string) error
	Create(ctx context.Context, actor models.SessionContext, in services.CreateUserInput) (*models.User, error)
	ResetPassword(ctx context.Context, actor models.SessionContext, id, newPassword, confirm string) error
}

// AttemptReader exposes the audit trail to the admin surface
type AttemptReader interface {
	RecentAttempts(ctx context.Context, actor models.SessionContext, limit int) ([]*models.LoginAttempt, error)
}

// AdminHandler handles the admin user-management HTTP requests
type AdminHandler struct {
	users    UserServiceInterface
	attempts AttemptReader
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(users UserServiceInterface, attempts AttemptReader) *AdminHandler {
	return &AdminHandler{users: users, attempts: attempts}
}

// UserResponse is the account representation returned to admins. The
// password hash never leaves the service layer.
type UserResponse struct {
	ID               string     `json:"id"`
	Username         string     `json:"username"`
	Email            string     `json:"email"`
	IsActive         bool       `json:"is_active"`
	IsAdmin          bool       `json:"is_admin"`
	IsApproved       bool       `json:"is_approved"`
	FailedLoginCount int        `json:"failed_login_count"`
	LockedUntil      *time.Time `json:"locked_until,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

func toUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:               u.ID,
		Username:         u.Username,
		Email:            u.Email,
		IsActive:         u.IsActive,
		IsAdmin:          u.IsAdmin,
		IsApproved:       u.IsApproved,
		FailedLoginCount: u.FailedLoginCount,
		LockedUntil:      u.LockedUntil,
		CreatedAt:        u.CreatedAt,
	}
}

// UpdateUserRequest represents the request body for editing an account
type UpdateUserRequest struct {
	Username   string `json:"username" validate:"required,min=1,max=64"`
	Email      string `json:"email" validate:"required,email"`
	IsActive   bool   `json:"is_active"`
	IsAdmin    bool   `json:"is_admin"`
	IsApproved bool   `json:"is_approved"`
}

// CreateUserRequest represents the request body for the admin add-user form
type CreateUserRequest struct {
	Username        string `json:"username" validate:"required,min=1,max=64"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required"`
	IsActive        bool   `json:"is_active"`
	IsAdmin         bool   `json:"is_admin"`
	IsApproved      bool   `json:"is_approved"`
}

// ResetPasswordRequest represents the request body for an admin password reset
type ResetPasswordRequest struct {
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required"`
}

// writeUserError maps service errors to HTTP responses
func writeUserError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		pkghttp.WriteBadRequest(w, err.Error())
	case errors.Is(err, models.ErrForbidden):
		pkghttp.WriteForbidden(w, "admin access required")
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "user not found")
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, "username or email already registered")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}

func actorFromRequest(w http.ResponseWriter, r *http.Request) (models.SessionContext, bool) {
	session, ok := models.SessionFromContext(r.Context())
	if !ok {
		pkghttp.WriteUnauthorized(w, "unauthorized")
	}
	return session, ok
}

// ListUsers handles GET /admin/users
// Accepts optional query params ?limit=N and ?offset=N.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	users, err := h.users.List(r.Context(), actor, limit, offset)
	if err != nil {
		writeUserError(w, err)
		return
	}

	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

// ApproveUser handles POST /admin/users/{id}/approve
func (h *AdminHandler) ApproveUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	updated, err := h.users.Approve(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeUserError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserResponse(updated))
}

// ToggleAdmin handles POST /admin/users/{id}/toggle-admin
func (h *AdminHandler) ToggleAdmin(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	updated, err := h.users.ToggleAdmin(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeUserError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserResponse(updated))
}

// UpdateUser handles PUT /admin/users/{id}
func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	updated, err := h.users.Update(r.Context(), actor, chi.URLParam(r, "id"), services.UpdateUserInput{
		Username:   req.Username,
		Email:      req.Email,
		IsActive:   req.IsActive,
		IsAdmin:    req.IsAdmin,
		IsApproved: req.IsApproved,
	})
	if err != nil {
		writeUserError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserResponse(updated))
}

// DeleteUser handles DELETE /admin/users/{id}
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	if err := h.users.Delete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		writeUserError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CreateUser handles POST /admin/users
func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	created, err := h.users.Create(r.Context(), actor, services.CreateUserInput{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
		IsActive:        req.IsActive,
		IsAdmin:         req.IsAdmin,
		IsApproved:      req.IsApproved,
	})
	if err != nil {
		writeUserError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toUserResponse(created))
}

// ResetPassword handles POST /admin/users/{id}/reset-password
//
// A successful reset also zeroes the failure counter and clears any lock,
// including one still far in the future.
func (h *AdminHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.users.ResetPassword(r.Context(), actor, chi.URLParam(r, "id"), req.Password, req.PasswordConfirm); err != nil {
		writeUserError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListLoginAttempts handles GET /admin/login-attempts
// Accepts optional query param ?limit=N.
func (h *AdminHandler) ListLoginAttempts(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	attempts, err := h.attempts.RecentAttempts(r.Context(), actor, limit)
	if err != nil {
		writeUserError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(attempts)
}
