package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/Isma450/inkpost/internal/errs"
	"github.com/Isma450/inkpost/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

// Create inserts a new account row.
func (r *UserRepo) Create(ctx context.Context, a *model.Account) error {
	const q = `
INSERT INTO users (id, username, email, pwd_hash, salt_auth, is_staff)
VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.Pool.Exec(ctx, q, a.ID, a.Username, a.Email, a.PwdHash, a.SaltAuth, a.IsStaff)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetByID selects an account by ID.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	const q = `
SELECT id, username, email, pwd_hash, salt_auth, is_staff, created_at
FROM users WHERE id=$1`
	return r.scanOne(r.db.Pool.QueryRow(ctx, q, id))
}

// GetByUsername selects an account by username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.Account, error) {
	const q = `
SELECT id, username, email, pwd_hash, salt_auth, is_staff, created_at
FROM users WHERE username=$1`
	return r.scanOne(r.db.Pool.QueryRow(ctx, q, username))
}

// GetByEmail selects an account by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	const q = `
SELECT id, username, email, pwd_hash, salt_auth, is_staff, created_at
FROM users WHERE email=$1`
	return r.scanOne(r.db.Pool.QueryRow(ctx, q, email))
}

type row interface{ Scan(dest ...any) error }

func (r *UserRepo) scanOne(rw row) (*model.Account, error) {
	var a model.Account
	if err := rw.Scan(&a.ID, &a.Username, &a.Email, &a.PwdHash, &a.SaltAuth, &a.IsStaff, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// SetPassword replaces the stored password hash and salt.
func (r *UserRepo) SetPassword(ctx context.Context, id uuid.UUID, pwdHash, saltAuth []byte) error {
	const q = `UPDATE users SET pwd_hash=$2, salt_auth=$3 WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, id, pwdHash, saltAuth)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// CreateReset stores a single-use password-reset token.
func (r *UserRepo) CreateReset(ctx context.Context, token, userID uuid.UUID, expiresAt time.Time) error {
	const q = `
INSERT INTO password_resets (token, user_id, expires_at)
VALUES ($1, $2, $3)`
	_, err := r.db.Pool.Exec(ctx, q, token, userID, expiresAt)
	return err
}

// ConsumeReset marks the token used and returns its owner. Tokens that are
// missing, expired or already used all report ErrNotFound.
func (r *UserRepo) ConsumeReset(ctx context.Context, token uuid.UUID) (uuid.UUID, error) {
	const q = `
UPDATE password_resets
SET used = TRUE
WHERE token=$1 AND NOT used AND expires_at > now()
RETURNING user_id`
	var userID uuid.UUID
	if err := r.db.Pool.QueryRow(ctx, q, token).Scan(&userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, errs.ErrNotFound
		}
		return uuid.Nil, err
	}
	return userID, nil
}
