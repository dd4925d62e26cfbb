package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/loringw/nasablog/internal/models"
	pkglogger "github.com/loringw/nasablog/pkg/logger"
)

// LoginAttemptRepository defines the persistence interface for the attempt log
type LoginAttemptRepository interface {
	RecordAttempt(ctx context.Context, attempt *models.LoginAttempt) error
	ListRecent(ctx context.Context, limit int) ([]*models.LoginAttempt, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// AttemptAuditor records authentication attempts. Implementations must be
// best-effort: recording never fails the caller.
type AttemptAuditor interface {
	Record(ctx context.Context, username, ipAddress, userAgent string, success bool, reason string)
}

// LoginAuditService appends login attempts to the audit trail with a
// dual-write pattern (slog + database). The database write is non-fatal:
// an unavailable audit store must never block an authentication outcome,
// so failures are logged internally and swallowed.
type LoginAuditService struct {
	repo        LoginAttemptRepository
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewLoginAuditService creates a new LoginAuditService
func NewLoginAuditService(repo LoginAttemptRepository, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *LoginAuditService {
	return &LoginAuditService{
		repo:        repo,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// Record appends a LoginAttempt. The username is stored as submitted, even
// when it matched no account.
func (s *LoginAuditService) Record(ctx context.Context, username, ipAddress, userAgent string, success bool, reason string) {
	eventType := "login_failed"
	if success {
		eventType = "login_success"
	}

	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:     eventType,
		Username:      username,
		IPAddress:     ipAddress,
		UserAgent:     userAgent,
		Success:       success,
		FailureReason: reason,
	})

	attempt := &models.LoginAttempt{
		Username:    username,
		IPAddress:   ipAddress,
		UserAgent:   userAgent,
		Success:     success,
		AttemptTime: time.Now().UTC(),
	}
	if reason != "" {
		attempt.Reason = &reason
	}

	if err := s.repo.RecordAttempt(ctx, attempt); err != nil {
		s.logger.Error("failed to persist login attempt",
			slog.String("username", username),
			slog.Any("error", err),
		)
	}
}

// RecentAttempts returns the newest entries of the audit trail for the
// admin surface.
func (s *LoginAuditService) RecentAttempts(ctx context.Context, actor models.SessionContext, limit int) ([]*models.LoginAttempt, error) {
	if !actor.IsAdmin {
		return nil, models.ErrForbidden
	}

	if limit <= 0 || limit > 500 {
		limit = 100
	}

	return s.repo.ListRecent(ctx, limit)
}

// PurgeOlderThan deletes attempts past the retention horizon.
func (s *LoginAuditService) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.repo.DeleteOlderThan(ctx, cutoff)
}
