package auth

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

const (
	BcryptCost     = 14 // OWASP 2026 recommendation - stronger than cost 12 (Feb 2026)
	MinPasswordLen = 16 // characters, not bytes
	MinCategories  = 3  // of: uppercase, lowercase, digit, symbol
)

// Policy violation reasons
const (
	ReasonTooShort               = "too_short"
	ReasonInsufficientComplexity = "insufficient_complexity"
)

// PasswordPolicyError reports why a password failed validation.
type PasswordPolicyError struct {
	Reason string
}

func (e *PasswordPolicyError) Error() string {
	switch e.Reason {
	case ReasonTooShort:
		return fmt.Sprintf("password must be at least %d characters long", MinPasswordLen)
	case ReasonInsufficientComplexity:
		return fmt.Sprintf("password must contain at least %d of: uppercase, lowercase, number, symbol", MinCategories)
	}
	return "password validation failed"
}

func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// ComparePassword checks a plaintext password against a stored hash.
// The comparison is constant-time; a mismatch is reported as false, never
// as an error.
func ComparePassword(hashedPassword, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}

// ValidatePassword enforces the account password policy: at least
// MinPasswordLen characters, and at least MinCategories of the four
// character categories present. Deterministic and side-effect free.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLen {
		return &PasswordPolicyError{Reason: ReasonTooShort}
	}

	hasUpper := false
	hasLower := false
	hasDigit := false
	hasSymbol := false

	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSymbol = true
		}
	}

	categories := 0
	for _, present := range []bool{hasUpper, hasLower, hasDigit, hasSymbol} {
		if present {
			categories++
		}
	}

	if categories < MinCategories {
		return &PasswordPolicyError{Reason: ReasonInsufficientComplexity}
	}

	return nil
}
