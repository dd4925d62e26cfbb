package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/loringw/nasablog/internal/models"
	pkgauth "github.com/loringw/nasablog/pkg/auth"
	pkglogger "github.com/loringw/nasablog/pkg/logger"
)

// UserService implements the admin user-management operations. Every
// operation takes the acting session explicitly and checks the admin
// capability up front; there is no ambient identity.
type UserService struct {
	users       UserRepository
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewUserService creates a new UserService
func NewUserService(users UserRepository, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *UserService {
	return &UserService{
		users:       users,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

func requireAdmin(actor models.SessionContext) error {
	if !actor.IsAdmin {
		return models.ErrForbidden
	}
	return nil
}

// List returns accounts for the admin screen, newest first.
func (s *UserService) List(ctx context.Context, actor models.SessionContext, limit, offset int) ([]*models.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	return s.users.List(ctx, limit, offset)
}

// Approve marks an account as approved, making it eligible to log in.
func (s *UserService) Approve(ctx context.Context, actor models.SessionContext, id string) (*models.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	user.IsApproved = true
	updated, err := s.users.Update(ctx, id, user)
	if err != nil {
		s.logger.Error("failed to approve user", slog.String("user_id", id), slog.Any("error", err))
		return nil, err
	}

	s.auditLogger.LogAccountAction("user_approved", actor.UserID, id, nil)
	return updated, nil
}

// ToggleAdmin flips the admin flag. Admins cannot change their own status.
func (s *UserService) ToggleAdmin(ctx context.Context, actor models.SessionContext, id string) (*models.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	if actor.UserID == id {
		return nil, &models.ValidationError{Reason: "you cannot change your own admin status"}
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	user.IsAdmin = !user.IsAdmin
	updated, err := s.users.Update(ctx, id, user)
	if err != nil {
		s.logger.Error("failed to toggle admin flag", slog.String("user_id", id), slog.Any("error", err))
		return nil, err
	}

	event := "admin_revoked"
	if updated.IsAdmin {
		event = "admin_granted"
	}
	s.auditLogger.LogAccountAction(event, actor.UserID, id, nil)
	return updated, nil
}

// UpdateUserInput carries the editable account fields.
type UpdateUserInput struct {
	Username   string
	Email      string
	IsActive   bool
	IsAdmin    bool
	IsApproved bool
}

// Update edits an account's identity and status flags.
func (s *UserService) Update(ctx context.Context, actor models.SessionContext, id string, in UpdateUserInput) (*models.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)
	if username == "" || email == "" {
		return nil, &models.ValidationError{Reason: "username and email are required"}
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := checkIdentityAvailable(ctx, s.users, s.logger, username, email, id); err != nil {
		return nil, err
	}

	user.Username = username
	user.Email = email
	user.IsActive = in.IsActive
	user.IsAdmin = in.IsAdmin
	user.IsApproved = in.IsApproved

	updated, err := s.users.Update(ctx, id, user)
	if err != nil {
		s.logger.Error("failed to update user", slog.String("user_id", id), slog.Any("error", err))
		return nil, err
	}

	s.auditLogger.LogAccountAction("user_updated", actor.UserID, id, nil)
	return updated, nil
}

// Delete removes an account permanently. Admins cannot delete themselves.
func (s *UserService) Delete(ctx context.Context, actor models.SessionContext, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}

	if actor.UserID == id {
		return &models.ValidationError{Reason: "you cannot delete your own account"}
	}

	if err := s.users.Delete(ctx, id); err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Error("failed to delete user", slog.String("user_id", id), slog.Any("error", err))
		}
		return err
	}

	s.auditLogger.LogAccountAction("user_deleted", actor.UserID, id, nil)
	return nil
}

// CreateUserInput carries the admin add-user form fields.
type CreateUserInput struct {
	Username        string
	Email           string
	Password        string
	PasswordConfirm string
	IsActive        bool
	IsAdmin         bool
	IsApproved      bool
}

// Create adds an account from the admin panel. Unlike self-registration it
// can start approved, but the password policy is the same.
func (s *UserService) Create(ctx context.Context, actor models.SessionContext, in CreateUserInput) (*models.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)
	if username == "" || email == "" || in.Password == "" {
		return nil, &models.ValidationError{Reason: "username, email, and password are required"}
	}

	if in.Password != in.PasswordConfirm {
		return nil, &models.ValidationError{Reason: "passwords do not match"}
	}

	if err := pkgauth.ValidatePassword(in.Password); err != nil {
		return nil, &models.ValidationError{Reason: err.Error()}
	}

	if err := checkIdentityAvailable(ctx, s.users, s.logger, username, email, ""); err != nil {
		return nil, err
	}

	hash, err := pkgauth.HashPassword(in.Password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	created, err := s.users.Create(ctx, &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		IsActive:     in.IsActive,
		IsAdmin:      in.IsAdmin,
		IsApproved:   in.IsApproved,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, &models.ValidationError{Reason: "username or email already registered"}
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("user_created", actor.UserID, created.ID, nil)
	return created, nil
}

// ResetPassword is the administrative credential reset: it enforces the
// password policy, then installs the new hash, zeroes the failure counter,
// and clears any lock - even a lock far in the future.
func (s *UserService) ResetPassword(ctx context.Context, actor models.SessionContext, id, newPassword, confirm string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}

	if newPassword == "" || confirm == "" {
		return &models.ValidationError{Reason: "both password fields are required"}
	}

	if newPassword != confirm {
		return &models.ValidationError{Reason: "passwords do not match"}
	}

	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return &models.ValidationError{Reason: err.Error()}
	}

	if _, err := s.users.GetByID(ctx, id); err != nil {
		return err
	}

	hash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.users.ResetCredentials(ctx, id, hash); err != nil {
		s.logger.Error("failed to reset credentials", slog.String("user_id", id), slog.Any("error", err))
		return err
	}

	s.auditLogger.LogAccountAction("password_reset", actor.UserID, id, nil)
	return nil
}
