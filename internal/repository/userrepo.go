// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"
	"time"

	"github.com/Isma450/inkpost/internal/model"
	"github.com/gofrs/uuid/v5"
)

// UserRepository provides access to accounts and password-reset tokens.
type UserRepository interface {
	// Create inserts a new account.
	Create(ctx context.Context, a *model.Account) error
	// GetByID loads an account by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Account, error)
	// GetByUsername loads an account by username.
	GetByUsername(ctx context.Context, username string) (*model.Account, error)
	// GetByEmail loads an account by email.
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
	// SetPassword replaces the stored hash and salt.
	SetPassword(ctx context.Context, id uuid.UUID, pwdHash, saltAuth []byte) error

	// CreateReset stores a single-use password-reset token.
	CreateReset(ctx context.Context, token, userID uuid.UUID, expiresAt time.Time) error
	// ConsumeReset marks the token used and returns its owner; expired or
	// already-used tokens report ErrNotFound.
	ConsumeReset(ctx context.Context, token uuid.UUID) (uuid.UUID, error)
}
