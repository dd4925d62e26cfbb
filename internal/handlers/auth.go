package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/loringw/nasablog/internal/auth"
	"github.com/loringw/nasablog/internal/models"
	"github.com/loringw/nasablog/internal/services"
	pkghttp "github.com/loringw/nasablog/pkg/http"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Login(ctx context.Context, username, password, ipAddress, userAgent string) (*services.LoginResult, error)
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service  AuthServiceInterface
	sessions *auth.SessionManager
	captcha  *auth.CaptchaManager
	ipConfig *pkghttp.IPConfig
	logger   *slog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, sessions *auth.SessionManager, captcha *auth.CaptchaManager, ipConfig *pkghttp.IPConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service:  service,
		sessions: sessions,
		captcha:  captcha,
		ipConfig: ipConfig,
		logger:   logger,
	}
}

// Request DTOs

// LoginRequest represents the request body for login
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest represents the request body for registration
type RegisterRequest struct {
	Username        string `json:"username" validate:"required,min=1,max=64"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required"`
	CaptchaToken    string `json:"captcha_token" validate:"required"`
	CaptchaAnswer   string `json:"captcha_answer" validate:"required"`
}

// LoginResponse represents the response body for a successful login
type LoginResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)
	userAgent := r.Header.Get("User-Agent")

	result, err := h.service.Login(r.Context(), req.Username, req.Password, ipAddress, userAgent)
	if err != nil {
		var lockedErr *models.AccountLockedError
		switch {
		case errors.Is(err, models.ErrValidation):
			pkghttp.WriteBadRequest(w, err.Error())
		case errors.As(err, &lockedErr):
			pkghttp.WriteLocked(w, "Account locked until "+lockedErr.Until.UTC().Format(time.RFC3339))
		case errors.Is(err, models.ErrInvalidCredentials):
			// Unknown username and wrong password produce the same response.
			// The remaining-attempts count stays out of the body and is only
			// recorded in the audit trail.
			pkghttp.WriteUnauthorized(w, "Invalid username or password")
		case errors.Is(err, models.ErrAccountPending):
			pkghttp.WriteForbidden(w, "Account is pending approval")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	if err := h.sessions.SetSession(w, result.Session); err != nil {
		h.logger.Error("failed to encode session cookie", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	// Session-bearing requests must echo this token in X-CSRF-Token.
	if _, err := h.sessions.IssueCSRFCookie(w); err != nil {
		h.logger.Error("failed to issue CSRF cookie", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(LoginResponse{
		UserID:   result.Session.UserID,
		Username: result.Session.Username,
		IsAdmin:  result.Session.IsAdmin,
	})
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	// An unreadable captcha token gets the same response as a wrong answer.
	expected, err := h.captcha.ExpectedAnswer(req.CaptchaToken)
	if err != nil {
		pkghttp.WriteBadRequest(w, "incorrect answer to security question")
		return
	}

	created, err := h.service.Register(r.Context(), services.RegisterInput{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
		CaptchaAnswer:   req.CaptchaAnswer,
		CaptchaExpected: expected,
	})
	if err != nil {
		if errors.Is(err, models.ErrValidation) {
			pkghttp.WriteBadRequest(w, err.Error())
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Registration received. Your account will be reviewed by an administrator.",
		"user_id": created.ID,
	})
}

// Logout handles POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.ClearSession(w)
	h.sessions.ClearCSRFCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Captcha handles GET /auth/captcha, issuing a fresh challenge
func (h *AuthHandler) Captcha(w http.ResponseWriter, r *http.Request) {
	challenge, err := h.captcha.NewChallenge()
	if err != nil {
		h.logger.Error("failed to generate captcha challenge", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(challenge)
}

// Me handles GET /auth/me, returning the current session identity
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	session, ok := models.SessionFromContext(r.Context())
	if !ok {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(LoginResponse{
		UserID:   session.UserID,
		Username: session.Username,
		IsAdmin:  session.IsAdmin,
	})
}
