package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/loringw/nasablog/internal/database"
	"github.com/loringw/nasablog/internal/models"
)

const userColumns = `id, username, email, password_hash, is_active, is_admin, is_approved, failed_login_count, locked_until, created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{pool: db.Pool}
}

// rowScanner interface for scanning user rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User
	var lockedUntil *time.Time

	err := scanner.Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.IsActive, &user.IsAdmin, &user.IsApproved,
		&user.FailedLoginCount, &lockedUntil,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	user.LockedUntil = lockedUntil
	return &user, nil
}

func scanUserRows(rows pgx.Rows) ([]*models.User, error) {
	defer rows.Close()

	users := make([]*models.User, 0)

	for rows.Next() {
		user, err := scanUserRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return users, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, id))
}

// GetByUsername resolves a login identity. The match is case-sensitive exact
// equality; "Alice" and "alice" are distinct accounts.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, username))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, email))
}

func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	return scanUserRows(rows)
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	user.ID = uuid.New().String()

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `
		INSERT INTO users (id, username, email, password_hash, is_active, is_admin, is_approved, failed_login_count, locked_until, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + userColumns

	return scanUserRow(r.pool.QueryRow(ctx, query,
		user.ID, user.Username, user.Email, user.PasswordHash,
		user.IsActive, user.IsAdmin, user.IsApproved,
		user.FailedLoginCount, user.LockedUntil,
		user.CreatedAt, user.UpdatedAt,
	))
}

// Update rewrites the identity and status flags of an account. Credential
// and lockout fields are mutated only through the dedicated operations below.
func (r *UserRepository) Update(ctx context.Context, id string, user *models.User) (*models.User, error) {
	query := `
		UPDATE users
		SET username = $1, email = $2, is_active = $3, is_admin = $4, is_approved = $5, updated_at = $6
		WHERE id = $7
		RETURNING ` + userColumns

	return scanUserRow(r.pool.QueryRow(ctx, query,
		user.Username, user.Email, user.IsActive, user.IsAdmin, user.IsApproved,
		time.Now().UTC(), id,
	))
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM users WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// RecordLoginFailure increments the failure counter and, if the
// post-increment count reaches the threshold, sets the lock expiry - as a
// single statement, so two concurrent failures cannot both read the
// pre-increment count and under-count the lockout. A fresh lock is taken
// only when the account is not already locked (an expired lock is re-armed
// on the next failure over threshold). Returns the post-increment state.
func (r *UserRepository) RecordLoginFailure(ctx context.Context, id string, now time.Time, threshold int, lockFor time.Duration) (*models.LockoutState, error) {
	now = now.UTC()
	lockExpiry := now.Add(lockFor)

	query := `
		UPDATE users
		SET failed_login_count = failed_login_count + 1,
		    locked_until = CASE
		        WHEN failed_login_count + 1 >= $2 AND (locked_until IS NULL OR locked_until <= $3)
		        THEN $4
		        ELSE locked_until
		    END,
		    updated_at = $3
		WHERE id = $1
		RETURNING failed_login_count, locked_until
	`

	var state models.LockoutState
	err := r.pool.QueryRow(ctx, query, id, threshold, now, lockExpiry).
		Scan(&state.FailedLoginCount, &state.LockedUntil)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &state, nil
}

// RecordLoginSuccess zeroes the failure counter and clears any lock.
func (r *UserRepository) RecordLoginSuccess(ctx context.Context, id string) error {
	query := `
		UPDATE users
		SET failed_login_count = 0, locked_until = NULL, updated_at = $2
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id, time.Now().UTC())
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// ResetCredentials is the administrative reset: new password hash, counter
// zeroed, lock cleared regardless of current lock state.
func (r *UserRepository) ResetCredentials(ctx context.Context, id string, newHash string) error {
	query := `
		UPDATE users
		SET password_hash = $2, failed_login_count = 0, locked_until = NULL, updated_at = $3
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id, newHash, time.Now().UTC())
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}
