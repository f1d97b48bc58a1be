// Package tokenstore persists refresh tokens between renewals.
// Tokens are stored hashed; the plaintext value only ever travels to the client.
package tokenstore

import (
	"context"
	"crypto/sha256"
	"time"

	"github.com/gofrs/uuid/v5"
)

// Store holds issued refresh tokens until they are rotated or revoked.
type Store interface {
	// Save records a token hash for a user with an absolute expiry.
	Save(ctx context.Context, tokenHash []byte, userID uuid.UUID, expiresAt time.Time) error
	// Resolve returns the owner of a live token hash; expired or unknown
	// hashes report errs.ErrNotFound.
	Resolve(ctx context.Context, tokenHash []byte) (uuid.UUID, error)
	// Delete revokes a single token hash.
	Delete(ctx context.Context, tokenHash []byte) error
	// DeleteForUser revokes every token a user holds (logout everywhere).
	DeleteForUser(ctx context.Context, userID uuid.UUID) error
}

// Hash derives the storage key for a plaintext refresh token.
func Hash(token string) []byte {
	h := sha256.Sum256([]byte(token))
	return h[:]
}
