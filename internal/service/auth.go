// Package service contains application services for authentication and posts.
package service

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	pkgcrypto "github.com/Isma450/inkpost/internal/crypto"
	"github.com/Isma450/inkpost/internal/errs"
	"github.com/Isma450/inkpost/internal/limiter"
	"github.com/Isma450/inkpost/internal/model"
	"github.com/Isma450/inkpost/internal/repository"
	"github.com/Isma450/inkpost/internal/tokenstore"
	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
)

// AuthService defines authentication operations exposed over the API.
type AuthService interface {
	// Register creates a new account and signs it in.
	Register(ctx context.Context, username, email, password string) (model.Tokens, model.Account, error)
	// LoginWithIP applies rate-limiting and authenticates the user.
	LoginWithIP(ctx context.Context, username, password, ip string) (model.Tokens, model.Account, error)
	// Refresh rotates a refresh token and issues a fresh access token.
	Refresh(ctx context.Context, refreshToken string) (model.Tokens, error)
	// Logout revokes the presented refresh token.
	Logout(ctx context.Context, refreshToken string) error
	// RequestPasswordReset mints a single-use reset token for the account.
	RequestPasswordReset(ctx context.Context, email string) (string, error)
	// ConfirmPasswordReset consumes a reset token and sets a new password.
	ConfirmPasswordReset(ctx context.Context, token, password string) error
	// Account loads the account behind an authenticated user ID.
	Account(ctx context.Context, id uuid.UUID) (model.Account, error)
}

// AuthServiceImpl implements AuthService over repositories and the token store.
type AuthServiceImpl struct {
	users      repository.UserRepository
	tokens     tokenstore.Store
	signKey    []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	resetTTL   time.Duration
	lim        limiter.Limiter
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(users repository.UserRepository, tokens tokenstore.Store, signKey []byte,
	accessTTL, refreshTTL time.Duration, lim limiter.Limiter) *AuthServiceImpl {
	return &AuthServiceImpl{
		users:      users,
		tokens:     tokens,
		signKey:    signKey,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		resetTTL:   time.Hour,
		lim:        lim,
	}
}

// Register creates a new account with a per-user salt and signs it in.
func (s *AuthServiceImpl) Register(ctx context.Context, username, email, password string) (model.Tokens, model.Account, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return model.Tokens{}, model.Account{}, fmt.Errorf("%w: empty username/email/password", errs.ErrValidation)
	}
	uid, err := uuid.NewV4()
	if err != nil {
		return model.Tokens{}, model.Account{}, err
	}
	saltAuth, err := pkgcrypto.NewSalt()
	if err != nil {
		return model.Tokens{}, model.Account{}, err
	}

	a := &model.Account{
		ID:       uid,
		Username: username,
		Email:    email,
		PwdHash:  pkgcrypto.HashPassword([]byte(password), saltAuth),
		SaltAuth: saltAuth,
	}
	if err := s.users.Create(ctx, a); err != nil {
		return model.Tokens{}, model.Account{}, err
	}

	tok, err := s.issueTokens(ctx, a.ID)
	if err != nil {
		return model.Tokens{}, model.Account{}, err
	}
	return tok, *a, nil
}

// LoginWithIP authenticates with rate limiting by (username, ip).
func (s *AuthServiceImpl) LoginWithIP(ctx context.Context, username, password, ip string) (model.Tokens, model.Account, error) {
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, username, ipHash)
	if err != nil {
		return model.Tokens{}, model.Account{}, err
	}
	if !allowed {
		return model.Tokens{}, model.Account{}, errs.ErrRateLimited
	}

	a, err := s.users.GetByUsername(ctx, username)
	if err != nil || !pkgcrypto.VerifyPassword([]byte(password), a.SaltAuth, a.PwdHash) {
		if blocked, _, ferr := s.lim.Failure(ctx, username, ipHash); ferr == nil && blocked {
			return model.Tokens{}, model.Account{}, errs.ErrRateLimited
		}
		// unknown user and wrong password are indistinguishable
		return model.Tokens{}, model.Account{}, errs.ErrUnauthorized
	}

	// Success: reset counters (best-effort).
	_ = s.lim.Success(ctx, username, ipHash)

	tok, err := s.issueTokens(ctx, a.ID)
	if err != nil {
		return model.Tokens{}, model.Account{}, err
	}
	return tok, *a, nil
}

// Refresh rotates the presented refresh token and issues a fresh access token.
// The old token is revoked before the new pair is returned.
func (s *AuthServiceImpl) Refresh(ctx context.Context, refreshToken string) (model.Tokens, error) {
	if refreshToken == "" {
		return model.Tokens{}, errs.ErrUnauthorized
	}
	hash := tokenstore.Hash(refreshToken)
	userID, err := s.tokens.Resolve(ctx, hash)
	if err != nil {
		return model.Tokens{}, errs.ErrUnauthorized
	}
	if err := s.tokens.Delete(ctx, hash); err != nil {
		return model.Tokens{}, err
	}
	return s.issueTokens(ctx, userID)
}

// Logout revokes the presented refresh token. Unknown tokens are not an error.
func (s *AuthServiceImpl) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.tokens.Delete(ctx, tokenstore.Hash(refreshToken))
}

// RequestPasswordReset mints a single-use reset token for the account with
// the given email. Delivery is the caller's concern.
func (s *AuthServiceImpl) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	a, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	token, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	if err := s.users.CreateReset(ctx, token, a.ID, time.Now().Add(s.resetTTL)); err != nil {
		return "", err
	}
	return token.String(), nil
}

// ConfirmPasswordReset consumes the reset token and replaces the password.
func (s *AuthServiceImpl) ConfirmPasswordReset(ctx context.Context, token, password string) error {
	if password == "" {
		return fmt.Errorf("%w: empty password", errs.ErrValidation)
	}
	tokenID, err := uuid.FromString(token)
	if err != nil {
		return errs.ErrNotFound
	}
	userID, err := s.users.ConsumeReset(ctx, tokenID)
	if err != nil {
		return err
	}
	salt, err := pkgcrypto.NewSalt()
	if err != nil {
		return err
	}
	if err := s.users.SetPassword(ctx, userID, pkgcrypto.HashPassword([]byte(password), salt), salt); err != nil {
		return err
	}
	// force re-login everywhere after a password change
	return s.tokens.DeleteForUser(ctx, userID)
}

// Account loads the account behind an authenticated user ID.
func (s *AuthServiceImpl) Account(ctx context.Context, id uuid.UUID) (model.Account, error) {
	a, err := s.users.GetByID(ctx, id)
	if err != nil {
		return model.Account{}, err
	}
	return *a, nil
}

// issueTokens creates a signed HS256 access token plus an opaque rotating
// refresh token stored hashed.
func (s *AuthServiceImpl) issueTokens(ctx context.Context, userID uuid.UUID) (model.Tokens, error) {
	now := time.Now()
	exp := now.Add(s.accessTTL)
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signKey)
	if err != nil {
		return model.Tokens{}, err
	}

	raw, err := pkgcrypto.RandBytes(32)
	if err != nil {
		return model.Tokens{}, err
	}
	refresh := hex.EncodeToString(raw)
	if err := s.tokens.Save(ctx, tokenstore.Hash(refresh), userID, now.Add(s.refreshTTL)); err != nil {
		return model.Tokens{}, err
	}

	return model.Tokens{AccessToken: access, RefreshToken: refresh, ExpiresAt: exp}, nil
}
