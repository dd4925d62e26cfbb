package services

import (
	"context"
	"sync"
	"time"

	"github.com/loringw/nasablog/internal/models"
	pkgauth "github.com/loringw/nasablog/pkg/auth"
)

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	GetByIDFunc            func(ctx context.Context, id string) (*models.User, error)
	GetByUsernameFunc      func(ctx context.Context, username string) (*models.User, error)
	GetByEmailFunc         func(ctx context.Context, email string) (*models.User, error)
	ListFunc               func(ctx context.Context, limit, offset int) ([]*models.User, error)
	CreateFunc             func(ctx context.Context, user *models.User) (*models.User, error)
	UpdateFunc             func(ctx context.Context, id string, user *models.User) (*models.User, error)
	DeleteFunc             func(ctx context.Context, id string) error
	RecordLoginFailureFunc func(ctx context.Context, id string, now time.Time, threshold int, lockFor time.Duration) (*models.LockoutState, error)
	RecordLoginSuccessFunc func(ctx context.Context, id string) error
	ResetCredentialsFunc   func(ctx context.Context, id string, newHash string) error
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if m.GetByUsernameFunc != nil {
		return m.GetByUsernameFunc(ctx, username)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	return []*models.User{}, nil
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) Update(ctx context.Context, id string, user *models.User) (*models.User, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *MockUserRepository) RecordLoginFailure(ctx context.Context, id string, now time.Time, threshold int, lockFor time.Duration) (*models.LockoutState, error) {
	if m.RecordLoginFailureFunc != nil {
		return m.RecordLoginFailureFunc(ctx, id, now, threshold, lockFor)
	}
	return &models.LockoutState{FailedLoginCount: 1}, nil
}

func (m *MockUserRepository) RecordLoginSuccess(ctx context.Context, id string) error {
	if m.RecordLoginSuccessFunc != nil {
		return m.RecordLoginSuccessFunc(ctx, id)
	}
	return nil
}

func (m *MockUserRepository) ResetCredentials(ctx context.Context, id string, newHash string) error {
	if m.ResetCredentialsFunc != nil {
		return m.ResetCredentialsFunc(ctx, id, newHash)
	}
	return nil
}

// MockLoginAttemptRepository implements LoginAttemptRepository for testing
type MockLoginAttemptRepository struct {
	RecordAttemptFunc   func(ctx context.Context, attempt *models.LoginAttempt) error
	ListRecentFunc      func(ctx context.Context, limit int) ([]*models.LoginAttempt, error)
	DeleteOlderThanFunc func(ctx context.Context, cutoff time.Time) (int64, error)

	mu       sync.Mutex
	Recorded []*models.LoginAttempt
}

func (m *MockLoginAttemptRepository) RecordAttempt(ctx context.Context, attempt *models.LoginAttempt) error {
	m.mu.Lock()
	m.Recorded = append(m.Recorded, attempt)
	m.mu.Unlock()

	if m.RecordAttemptFunc != nil {
		return m.RecordAttemptFunc(ctx, attempt)
	}
	return nil
}

func (m *MockLoginAttemptRepository) ListRecent(ctx context.Context, limit int) ([]*models.LoginAttempt, error) {
	if m.ListRecentFunc != nil {
		return m.ListRecentFunc(ctx, limit)
	}
	return []*models.LoginAttempt{}, nil
}

func (m *MockLoginAttemptRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if m.DeleteOlderThanFunc != nil {
		return m.DeleteOlderThanFunc(ctx, cutoff)
	}
	return 0, nil
}

// RecordedAttempt is what the MockAuditor captured for one call
type RecordedAttempt struct {
	Username  string
	IPAddress string
	UserAgent string
	Success   bool
	Reason    string
}

// MockAuditor implements AttemptAuditor and captures every call
type MockAuditor struct {
	mu       sync.Mutex
	Attempts []RecordedAttempt
}

func (m *MockAuditor) Record(ctx context.Context, username, ipAddress, userAgent string, success bool, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Attempts = append(m.Attempts, RecordedAttempt{
		Username:  username,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		Success:   success,
		Reason:    reason,
	})
}

var (
	testHashOnce sync.Once
	testHash     string
)

// TestPassword is the plaintext matching NewTestUser's stored hash
const TestPassword = "OrbitalMechanics#2024!"

// NewTestUser returns an approved, active, unlocked account whose password
// is TestPassword. The bcrypt hash is computed once per test binary.
func NewTestUser(id, username, email string) *models.User {
	testHashOnce.Do(func() {
		h, err := pkgauth.HashPassword(TestPassword)
		if err != nil {
			panic(err)
		}
		testHash = h
	})

	now := time.Now().UTC()
	return &models.User{
		ID:           id,
		Username:     username,
		Email:        email,
		PasswordHash: testHash,
		IsActive:     true,
		IsApproved:   true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// DefaultLockoutPolicy mirrors the production defaults
func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{Threshold: 10, LockDuration: 30 * time.Minute}
}
