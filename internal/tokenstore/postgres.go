package tokenstore

import (
	"context"
	"errors"
	"time"

	"github.com/Isma450/inkpost/internal/errs"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PG is the PostgreSQL-backed refresh-token store.
type PG struct{ pool pgxQuerier }

// NewPG constructs a PostgreSQL-backed store over any querier.
func NewPG(pool pgxQuerier) *PG { return &PG{pool: pool} }

// Save records a token hash for a user.
func (s *PG) Save(ctx context.Context, tokenHash []byte, userID uuid.UUID, expiresAt time.Time) error {
	const q = `
INSERT INTO refresh_tokens (token_hash, user_id, expires_at)
VALUES ($1, $2, $3)`
	_, err := s.pool.Exec(ctx, q, tokenHash, userID, expiresAt)
	return err
}

// Resolve returns the owner of a live token hash.
func (s *PG) Resolve(ctx context.Context, tokenHash []byte) (uuid.UUID, error) {
	const q = `
SELECT user_id FROM refresh_tokens
WHERE token_hash=$1 AND expires_at > now()`
	var userID uuid.UUID
	if err := s.pool.QueryRow(ctx, q, tokenHash).Scan(&userID); err != nil {
		if errors.Is(err, context.Canceled) {
			return uuid.Nil, err
		}
		return uuid.Nil, errs.ErrNotFound
	}
	return userID, nil
}

// Delete revokes a single token hash.
func (s *PG) Delete(ctx context.Context, tokenHash []byte) error {
	const q = `DELETE FROM refresh_tokens WHERE token_hash=$1`
	_, err := s.pool.Exec(ctx, q, tokenHash)
	return err
}

// DeleteForUser revokes every token the user holds.
func (s *PG) DeleteForUser(ctx context.Context, userID uuid.UUID) error {
	const q = `DELETE FROM refresh_tokens WHERE user_id=$1`
	_, err := s.pool.Exec(ctx, q, userID)
	return err
}
