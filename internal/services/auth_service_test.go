package services

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/loringw/nasablog/internal/models"
	pkglogger "github.com/loringw/nasablog/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuthService(users *MockUserRepository, auditor *MockAuditor) *AuthService {
	logger := slog.Default()
	return NewAuthService(users, auditor, DefaultLockoutPolicy(), logger, pkglogger.NewAuditLogger(logger))
}

// ============================================================================
// Login Tests
// ============================================================================

func TestAuthService_Login_Success(t *testing.T) {
	user := NewTestUser("user123", "carl", "carl@example.com")
	user.IsAdmin = true

	successRecorded := false
	users := &MockUserRepository{
		GetByUsernameFunc: func(ctx context.Context, username string) (*models.User, error) {
			return user, nil
		},
		RecordLoginSuccessFunc: func(ctx context.Context, id string) error {
			successRecorded = true
			assert.Equal(t, "user123", id)
			return nil
		},
	}
	auditor := &MockAuditor{}

	svc := newTestAuthService(users, auditor)
	result, err := svc.Login(context.Background(), "carl", TestPassword, "203.0.113.5", "test-agent")

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "user123", result.AccountID)
	assert.Equal(t, "carl", result.Session.Username)
	assert.True(t, result.Session.IsAdmin)
	assert.True(t, successRecorded)

	require.Len(t, auditor.Attempts, 1)
	assert.True(t, auditor.Attempts[0].Success)
	assert.Equal(t, "carl", auditor.Attempts[0].Username)
	assert.Equal(t, "203.0.113.5", auditor.Attempts[0].IPAddress)
}

func TestAuthService_Login_UserNotFound(t *testing.T) {
	users := &MockUserRepository{}
	auditor := &MockAuditor{}

	svc := newTestAuthService(users, auditor)
	result, err := svc.Login(context.Background(), "nobody", "whatever-password", "203.0.113.5", "test-agent")

	assert.Nil(t, result)
	// User-visible outcome must be the generic invalid-credentials error,
	// identical to a wrong password.
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)

	// The audit trail does differentiate, for operator visibility.
	require.Len(t, auditor.Attempts, 1)
	assert.False(t, auditor.Attempts[0].Success)
	assert.Equal(t, "user not found", auditor.Attempts[0].Reason)
	assert.Equal(t, "nobody", auditor.Attempts[0].Username)
}

func TestAuthService_Login_PendingApproval(t *testing.T) {
	user := NewTestUser("user123", "carl", "carl@example.com")
	user.IsApproved = false

	users := &MockUserRepository{
		GetByUsernameFunc: func(ctx context.Context, username string) (*models.User, error) {
			return user, nil
		},
	}
	auditor := &MockAuditor{}

	svc := newTestAuthService(users, auditor)
	result, err := svc.Login(context.Background(), "carl", TestPassword, "203.0.113.5", "test-agent")

	assert.Nil(t, result)
	assert.ErrorIs(t, err, models.ErrAccountPending)

	require.Len(t, auditor.Attempts, 1)
	assert.Equal(t, "account pending approval", auditor.Attempts[0].Reason)
}

func TestAuthService_Login_LockedShortCircuits(t *testing.T) {
	until := time.Now().UTC().Add(10 * time.Minute)
	user := NewTestUser("user123", "carl", "carl@example.com")
	user.FailedLoginCount = 10
	user.LockedUntil = &until

	users := &MockUserRepository{
		GetByUsernameFunc: func(ctx context.Context, username string) (*models.User, error) {
			return user, nil
		},
		RecordLoginFailureFunc: func(ctx context.Context, id string, now time.Time, threshold int, lockFor time.Duration) (*models.LockoutState, error) {
			t.Fatal("locked attempt must not advance the failure counter")
			return nil, nil
		},
	}
	auditor := &MockAuditor{}

	svc := newTestAuthService(users, auditor)
	result, err := svc.Login(context.Background(), "carl", TestPassword, "203.0.113.5", "test-agent")

	assert.Nil(t, result)
	assert.ErrorIs(t, err, models.ErrAccountLocked)

	var lockedErr *models.AccountLockedError
	require.ErrorAs(t, err, &lockedErr)
	assert.Equal(t, until, lockedErr.Until)

	// The short-circuited attempt is still audited as a failure.
	require.Len(t, auditor.Attempts, 1)
	assert.False(t, auditor.Attempts[0].Success)
	assert.Equal(t, "account locked", auditor.Attempts[0].Reason)
}

func TestAuthService_Login_ExpiredLockVerifiesPassword(t *testing.T) {
	until := time.Now().UTC().Add(-1 * time.Minute)
	user := NewTestUser("user123", "carl", "carl@example.com")
	user.FailedLoginCount = 10
	user.LockedUntil = &until

	users := &MockUserRepository{
		GetByUsernameFunc: func(ctx context.Context, username string) (*models.User, error) {
			return user, nil
		},
	}
	auditor := &MockAuditor{}

	svc := newTestAuthService(users, auditor)
	result, err := svc.Login(context.Background(), "carl", TestPassword, "203.0.113.5", "test-agent")

	require.NoError(t, err)
	assert.Equal(t, "user123", result.AccountID)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	user := NewTestUser("user123", "carl", "carl@example.com")

	users := &MockUserRepository{
		GetByUsernameFunc: func(ctx context.Context, username string) (*models.User, error) {
			return user, nil
		},
		RecordLoginFailureFunc: func(ctx context.Context, id string, now time.Time, threshold int, lockFor time.Duration) (*models.LockoutState, error) {
			assert.Equal(t, "user123", id)
			assert.Equal(t, 10, threshold)
			assert.Equal(t, 30*time.Minute, lockFor)
			return &models.LockoutState{FailedLoginCount: 3}, nil
		},
	}
	auditor := &MockAuditor{}

	svc := newTestAuthService(users, auditor)
	result, err := svc.Login(context.Background(), "carl", "wrong-password", "203.0.113.5", "test-agent")

	assert.Nil(t, result)

	var invalidErr *models.InvalidCredentialsError
	require.ErrorAs(t, err, &invalidErr)
	assert.Equal(t, 7, invalidErr.Remaining)
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)

	require.Len(t, auditor.Attempts, 1)
	assert.Equal(t, "invalid password", auditor.Attempts[0].Reason)
}

func TestAuthService_Login_TenthFailureLocks(t *testing.T) {
	user := NewTestUser("user123", "carl", "carl@example.com")
	user.FailedLoginCount = 9

	lockedUntil := time.Now().UTC().Add(30 * time.Minute)
	users := &MockUserRepository{
		GetByUsernameFunc: func(ctx context.Context, username string) (*models.User, error) {
			return user, nil
		},
		RecordLoginFailureFunc: func(ctx context.Context, id string, now time.Time, threshold int, lockFor time.Duration) (*models.LockoutState, error) {
			return &models.LockoutState{FailedLoginCount: 10, LockedUntil: &lockedUntil}, nil
		},
	}
	auditor := &MockAuditor{}

	svc := newTestAuthService(users, auditor)
	_, err := svc.Login(context.Background(), "carl", "wrong-password", "203.0.113.5", "test-agent")

	var invalidErr *models.InvalidCredentialsError
	require.ErrorAs(t, err, &invalidErr)
	assert.Equal(t, 0, invalidErr.Remaining)
}

func TestAuthService_Login_FailureRecordPersistenceError(t *testing.T) {
	user := NewTestUser("user123", "carl", "carl@example.com")

	users := &MockUserRepository{
		GetByUsernameFunc: func(ctx context.Context, username string) (*models.User, error) {
			return user, nil
		},
		RecordLoginFailureFunc: func(ctx context.Context, id string, now time.Time, threshold int, lockFor time.Duration) (*models.LockoutState, error) {
			return nil, errors.New("connection reset")
		},
	}
	auditor := &MockAuditor{}

	svc := newTestAuthService(users, auditor)
	result, err := svc.Login(context.Background(), "carl", "wrong-password", "203.0.113.5", "test-agent")

	assert.Nil(t, result)
	assert.ErrorIs(t, err, models.ErrInternalServer)
}

func TestAuthService_Login_SuccessRecordPersistenceError(t *testing.T) {
	user := NewTestUser("user123", "carl", "carl@example.com")

	users := &MockUserRepository{
		GetByUsernameFunc: func(ctx context.Context, username string) (*models.User, error) {
			return user, nil
		},
		RecordLoginSuccessFunc: func(ctx context.Context, id string) error {
			return errors.New("connection reset")
		},
	}
	auditor := &MockAuditor{}

	svc := newTestAuthService(users, auditor)
	result, err := svc.Login(context.Background(), "carl", TestPassword, "203.0.113.5", "test-agent")

	// The attempt must not be reported as succeeded when the counter
	// reset could not be persisted.
	assert.Nil(t, result)
	assert.ErrorIs(t, err, models.ErrInternalServer)
}

func TestAuthService_Login_EmptyInput(t *testing.T) {
	users := &MockUserRepository{}
	auditor := &MockAuditor{}
	svc := newTestAuthService(users, auditor)

	_, err := svc.Login(context.Background(), "", "password", "203.0.113.5", "test-agent")
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = svc.Login(context.Background(), "carl", "", "203.0.113.5", "test-agent")
	assert.ErrorIs(t, err, models.ErrValidation)

	assert.Empty(t, auditor.Attempts)
}

func TestAuthService_Login_EveryOutcomeAudited(t *testing.T) {
	until := time.Now().UTC().Add(10 * time.Minute)
	locked := NewTestUser("u-locked", "locked", "locked@example.com")
	locked.LockedUntil = &until
	pending := NewTestUser("u-pending", "pending", "pending@example.com")
	pending.IsApproved = false
	active := NewTestUser("u-active", "active", "active@example.com")

	users := &MockUserRepository{
		GetByUsernameFunc: func(ctx context.Context, username string) (*models.User, error) {
			switch username {
			case "locked":
				return locked, nil
			case "pending":
				return pending, nil
			case "active":
				return active, nil
			}
			return nil, models.ErrNotFound
		},
	}
	auditor := &MockAuditor{}
	svc := newTestAuthService(users, auditor)

	ctx := context.Background()
	svc.Login(ctx, "ghost", "x", "ip", "ua")              // not found
	svc.Login(ctx, "pending", "x", "ip", "ua")            // pending approval
	svc.Login(ctx, "locked", "x", "ip", "ua")             // locked
	svc.Login(ctx, "active", "wrong", "ip", "ua")         // wrong password
	svc.Login(ctx, "active", TestPassword, "ip", "ua")    // success

	require.Len(t, auditor.Attempts, 5)
	assert.Equal(t, []bool{false, false, false, false, true}, []bool{
		auditor.Attempts[0].Success,
		auditor.Attempts[1].Success,
		auditor.Attempts[2].Success,
		auditor.Attempts[3].Success,
		auditor.Attempts[4].Success,
	})
}

// ============================================================================
// Register Tests
// ============================================================================

func validRegisterInput() RegisterInput {
	return RegisterInput{
		Username:        "newuser",
		Email:           "newuser@example.com",
		Password:        "Aa1!Aa1!Aa1!Aa1!",
		PasswordConfirm: "Aa1!Aa1!Aa1!Aa1!",
		CaptchaAnswer:   "11",
		CaptchaExpected: "11",
	}
}

func TestAuthService_Register_Success(t *testing.T) {
	var createdUser *models.User
	users := &MockUserRepository{
		CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
			user.ID = "user123"
			createdUser = user
			return user, nil
		},
	}

	svc := newTestAuthService(users, &MockAuditor{})
	created, err := svc.Register(context.Background(), validRegisterInput())

	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, "newuser", created.Username)
	assert.False(t, created.IsApproved, "new accounts must start unapproved")
	assert.True(t, created.IsActive)
	assert.NotEqual(t, "Aa1!Aa1!Aa1!Aa1!", createdUser.PasswordHash)
	assert.NotEmpty(t, createdUser.PasswordHash)
}

func TestAuthService_Register_CaptchaMismatch(t *testing.T) {
	svc := newTestAuthService(&MockUserRepository{}, &MockAuditor{})

	in := validRegisterInput()
	in.CaptchaAnswer = "12"

	_, err := svc.Register(context.Background(), in)
	require.ErrorIs(t, err, models.ErrValidation)
	assert.Contains(t, err.Error(), "security question")
}

func TestAuthService_Register_CaptchaNotInteger(t *testing.T) {
	svc := newTestAuthService(&MockUserRepository{}, &MockAuditor{})

	in := validRegisterInput()
	in.CaptchaAnswer = "eleven"

	_, err := svc.Register(context.Background(), in)
	require.ErrorIs(t, err, models.ErrValidation)
	assert.Contains(t, err.Error(), "invalid security answer")
}

func TestAuthService_Register_CaptchaMissing(t *testing.T) {
	svc := newTestAuthService(&MockUserRepository{}, &MockAuditor{})

	in := validRegisterInput()
	in.CaptchaAnswer = ""

	_, err := svc.Register(context.Background(), in)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestAuthService_Register_MissingFields(t *testing.T) {
	svc := newTestAuthService(&MockUserRepository{}, &MockAuditor{})

	in := validRegisterInput()
	in.Email = ""

	_, err := svc.Register(context.Background(), in)
	require.ErrorIs(t, err, models.ErrValidation)
	assert.Contains(t, err.Error(), "required")
}

func TestAuthService_Register_PasswordMismatch(t *testing.T) {
	svc := newTestAuthService(&MockUserRepository{}, &MockAuditor{})

	in := validRegisterInput()
	in.PasswordConfirm = "Bb2@Bb2@Bb2@Bb2@"

	_, err := svc.Register(context.Background(), in)
	require.ErrorIs(t, err, models.ErrValidation)
	assert.Contains(t, err.Error(), "do not match")
}

func TestAuthService_Register_WeakPassword(t *testing.T) {
	svc := newTestAuthService(&MockUserRepository{}, &MockAuditor{})

	in := validRegisterInput()
	in.Password = "short"
	in.PasswordConfirm = "short"

	_, err := svc.Register(context.Background(), in)
	require.ErrorIs(t, err, models.ErrValidation)
	assert.Contains(t, err.Error(), "16 characters")
}

func TestAuthService_Register_UsernameTaken(t *testing.T) {
	existing := NewTestUser("other", "newuser", "other@example.com")
	users := &MockUserRepository{
		GetByUsernameFunc: func(ctx context.Context, username string) (*models.User, error) {
			return existing, nil
		},
	}

	svc := newTestAuthService(users, &MockAuditor{})
	_, err := svc.Register(context.Background(), validRegisterInput())

	require.ErrorIs(t, err, models.ErrValidation)
	assert.Contains(t, err.Error(), "username already taken")
}

func TestAuthService_Register_EmailTaken(t *testing.T) {
	existing := NewTestUser("other", "someoneelse", "newuser@example.com")
	users := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return existing, nil
		},
	}

	svc := newTestAuthService(users, &MockAuditor{})
	_, err := svc.Register(context.Background(), validRegisterInput())

	require.ErrorIs(t, err, models.ErrValidation)
	assert.Contains(t, err.Error(), "email already registered")
}

func TestAuthService_Register_CreateConflictRace(t *testing.T) {
	users := &MockUserRepository{
		CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
			return nil, models.ErrConflict
		},
	}

	svc := newTestAuthService(users, &MockAuditor{})
	_, err := svc.Register(context.Background(), validRegisterInput())

	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestAuthService_Register_CaseSensitiveUniqueness(t *testing.T) {
	// "Alice" and "alice" are distinct identities; lookups happen with the
	// submitted spelling.
	var lookedUp string
	users := &MockUserRepository{
		GetByUsernameFunc: func(ctx context.Context, username string) (*models.User, error) {
			lookedUp = username
			return nil, models.ErrNotFound
		},
		CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
			user.ID = "user123"
			return user, nil
		},
	}

	svc := newTestAuthService(users, &MockAuditor{})
	in := validRegisterInput()
	in.Username = "Alice"

	_, err := svc.Register(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "Alice", lookedUp)
}
