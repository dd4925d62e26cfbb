package models

import (
	"time"
)

type User struct {
	ID               string
	Username         string
	Email            string
	PasswordHash     string
	IsActive         bool
	IsAdmin          bool
	IsApproved       bool // gates login eligibility; new accounts start unapproved
	FailedLoginCount int
	LockedUntil      *time.Time // Temporary account lock expiration
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsLocked reports whether the account is locked at the given instant.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}
