package models

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrForbidden      = errors.New("forbidden")
	ErrValidation     = errors.New("validation failed")
	ErrInternalServer = errors.New("internal server error")

	// Authentication outcomes
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountPending     = errors.New("account is pending approval")
	ErrAccountLocked      = errors.New("account is temporarily locked")
)

// AccountLockedError carries the lock expiry so callers can tell the user
// when to retry. Times are UTC.
type AccountLockedError struct {
	Until time.Time
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account is locked until %s", e.Until.UTC().Format(time.RFC3339))
}

func (e *AccountLockedError) Unwrap() error { return ErrAccountLocked }

// InvalidCredentialsError carries the number of attempts remaining before
// lockout. Remaining of zero means the failed attempt triggered a lock.
type InvalidCredentialsError struct {
	Remaining int
}

func (e *InvalidCredentialsError) Error() string {
	if e.Remaining > 0 {
		return fmt.Sprintf("invalid username or password (%d attempts remaining)", e.Remaining)
	}
	return "invalid username or password"
}

func (e *InvalidCredentialsError) Unwrap() error { return ErrInvalidCredentials }

// ValidationError wraps a specific, user-presentable validation failure.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func (e *ValidationError) Unwrap() error { return ErrValidation }
