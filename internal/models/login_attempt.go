package models

import "time"

// LoginAttempt is a single entry in the append-only authentication audit
// trail. Username is recorded exactly as submitted, whether or not it
// resolved to an account.
type LoginAttempt struct {
	ID          string    `json:"id" db:"id"`
	Username    string    `json:"username" db:"username"`
	IPAddress   string    `json:"ip_address" db:"ip_address"`
	UserAgent   string    `json:"user_agent" db:"user_agent"`
	Success     bool      `json:"success" db:"success"`
	Reason      *string   `json:"reason,omitempty" db:"reason"`
	AttemptTime time.Time `json:"attempt_time" db:"attempt_time"`
}

// LockoutState is the post-mutation view of an account's failure counter,
// returned by the atomic failure-recording update.
type LockoutState struct {
	FailedLoginCount int
	LockedUntil      *time.Time
}
