package services

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/loringw/nasablog/internal/models"
	pkgauth "github.com/loringw/nasablog/pkg/auth"
	pkglogger "github.com/loringw/nasablog/pkg/logger"
)

// UserRepository defines the credential-store interface for the auth services
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	Update(ctx context.Context, id string, user *models.User) (*models.User, error)
	Delete(ctx context.Context, id string) error
	RecordLoginFailure(ctx context.Context, id string, now time.Time, threshold int, lockFor time.Duration) (*models.LockoutState, error)
	RecordLoginSuccess(ctx context.Context, id string) error
	ResetCredentials(ctx context.Context, id string, newHash string) error
}

// LockoutPolicy is the progressive-lockout configuration: Threshold
// consecutive failures lock the account for LockDuration.
type LockoutPolicy struct {
	Threshold    int
	LockDuration time.Duration
}

// AuthService orchestrates policy checks, credential verification, lockout
// state transitions, and audit writes for login and registration.
type AuthService struct {
	users       UserRepository
	auditor     AttemptAuditor
	policy      LockoutPolicy
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewAuthService creates a new AuthService
func NewAuthService(users UserRepository, auditor AttemptAuditor, policy LockoutPolicy, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *AuthService {
	return &AuthService{
		users:       users,
		auditor:     auditor,
		policy:      policy,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// LoginResult is the successful outcome of a login: the account identity
// and the session context the web layer is responsible for transmitting.
type LoginResult struct {
	AccountID string
	Session   models.SessionContext
}

// Login authenticates a user.
//
// Every attempt produces exactly one audit record, including attempts
// short-circuited by the lock check. The user-visible outcome for an
// unknown username is indistinguishable from a wrong password; only the
// internal log and audit trail differentiate the two.
func (s *AuthService) Login(ctx context.Context, username, password, ipAddress, userAgent string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, &models.ValidationError{Reason: "username and password are required"}
	}

	now := time.Now().UTC()

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("login failed: user not found")
			s.auditor.Record(ctx, username, ipAddress, userAgent, false, "user not found")
			return nil, models.ErrInvalidCredentials
		}
		s.logger.Error("failed to get user by username", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if !user.IsApproved {
		s.logger.Info("login blocked: account pending approval", slog.String("user_id", user.ID))
		s.auditor.Record(ctx, username, ipAddress, userAgent, false, "account pending approval")
		return nil, models.ErrAccountPending
	}

	// Lock check short-circuits before password verification: a locked
	// attempt is audited but does not advance the failure counter.
	if user.IsLocked(now) {
		s.logger.Info("login blocked: account locked",
			slog.String("user_id", user.ID),
			slog.Time("locked_until", user.LockedUntil.UTC()))
		s.auditor.Record(ctx, username, ipAddress, userAgent, false, "account locked")
		return nil, &models.AccountLockedError{Until: user.LockedUntil.UTC()}
	}

	if !pkgauth.ComparePassword(user.PasswordHash, password) {
		state, err := s.users.RecordLoginFailure(ctx, user.ID, now, s.policy.Threshold, s.policy.LockDuration)
		if err != nil {
			s.logger.Error("failed to record login failure", slog.String("user_id", user.ID), slog.Any("error", err))
			return nil, models.ErrInternalServer
		}

		s.auditor.Record(ctx, username, ipAddress, userAgent, false, "invalid password")

		remaining := s.policy.Threshold - state.FailedLoginCount
		if remaining < 0 {
			remaining = 0
		}
		return nil, &models.InvalidCredentialsError{Remaining: remaining}
	}

	if err := s.users.RecordLoginSuccess(ctx, user.ID); err != nil {
		s.logger.Error("failed to record login success", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditor.Record(ctx, username, ipAddress, userAgent, true, "")
	s.logger.Info("user logged in", slog.String("user_id", user.ID))

	return &LoginResult{
		AccountID: user.ID,
		Session: models.SessionContext{
			UserID:   user.ID,
			Username: user.Username,
			IsAdmin:  user.IsAdmin,
		},
	}, nil
}

// RegisterInput carries the registration form fields. CaptchaExpected is
// the challenge answer issued with the form; CaptchaAnswer is what the
// user typed.
type RegisterInput struct {
	Username        string
	Email           string
	Password        string
	PasswordConfirm string
	CaptchaAnswer   string
	CaptchaExpected string
}

// Register creates a new, unapproved account. Every failure branch returns
// a specific validation error and persists nothing.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)

	if strings.TrimSpace(in.CaptchaAnswer) == "" || strings.TrimSpace(in.CaptchaExpected) == "" {
		return nil, &models.ValidationError{Reason: "please complete the security check"}
	}

	got, err := strconv.Atoi(strings.TrimSpace(in.CaptchaAnswer))
	if err != nil {
		return nil, &models.ValidationError{Reason: "invalid security answer"}
	}
	want, err := strconv.Atoi(strings.TrimSpace(in.CaptchaExpected))
	if err != nil {
		return nil, &models.ValidationError{Reason: "invalid security answer"}
	}
	if got != want {
		return nil, &models.ValidationError{Reason: "incorrect answer to security question"}
	}

	if username == "" || email == "" || in.Password == "" {
		return nil, &models.ValidationError{Reason: "all fields are required"}
	}

	if in.Password != in.PasswordConfirm {
		return nil, &models.ValidationError{Reason: "passwords do not match"}
	}

	if err := pkgauth.ValidatePassword(in.Password); err != nil {
		return nil, &models.ValidationError{Reason: err.Error()}
	}

	// Uniqueness is case-sensitive exact match (see DESIGN.md).
	if err := checkIdentityAvailable(ctx, s.users, s.logger, username, email, ""); err != nil {
		return nil, err
	}

	hash, err := pkgauth.HashPassword(in.Password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
		IsApproved:   false,
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			// Lost the race with a concurrent registration
			return nil, &models.ValidationError{Reason: "username or email already registered"}
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user registered", slog.String("user_id", created.ID))
	s.auditLogger.LogAccountAction("user_registered", created.ID, created.ID, map[string]string{
		"email": pkglogger.SanitizedEmail(created.Email),
	})

	return created, nil
}

// checkIdentityAvailable reports a validation error when username or email
// is taken by an account other than excludeID. Shared by registration and
// the admin create/edit paths.
func checkIdentityAvailable(ctx context.Context, users UserRepository, logger *slog.Logger, username, email, excludeID string) error {
	existing, err := users.GetByUsername(ctx, username)
	if err == nil && existing.ID != excludeID {
		return &models.ValidationError{Reason: "username already taken"}
	}
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		logger.Error("failed to check username uniqueness", slog.Any("error", err))
		return models.ErrInternalServer
	}

	existing, err = users.GetByEmail(ctx, email)
	if err == nil && existing.ID != excludeID {
		return &models.ValidationError{Reason: "email already registered"}
	}
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		logger.Error("failed to check email uniqueness", slog.Any("error", err))
		return models.ErrInternalServer
	}

	return nil
}
