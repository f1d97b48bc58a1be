// Package session owns the authenticated-user value on the client. It is the
// single writer of the Session; every other component reads snapshots or
// subscribes for changes.
package session

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/Isma450/inkpost/internal/client/api"
	"github.com/Isma450/inkpost/internal/model"
)

// Store persists the session between process runs.
type Store interface {
	Load() (model.Session, bool)
	Save(model.Session) error
	Clear() error
}

// AuthAPI is the remote auth transport the controller drives.
type AuthAPI interface {
	Register(ctx context.Context, username, email, password string) (api.AuthResult, error)
	Login(ctx context.Context, username, password string) (api.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (model.Tokens, error)
	Logout(ctx context.Context, refreshToken string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, token, password string) error
}

// Controller is the session state machine: Anonymous or Authenticated.
type Controller struct {
	mu    sync.RWMutex
	sess  model.Session
	api   AuthAPI
	store Store
	subs  []func(model.Session)
	log   *zap.Logger
}

// NewController starts Anonymous, then promotes synchronously from the store.
// A previously stored token is trusted without a network round-trip; its
// validity is confirmed lazily by the first authorized request.
func NewController(store Store, log *zap.Logger) *Controller {
	c := &Controller{store: store, log: log}
	if sess, ok := store.Load(); ok {
		c.sess = sess
	}
	return c
}

// Bind attaches the auth transport. Separate from the constructor because the
// transport's interceptors need the controller first.
func (c *Controller) Bind(a AuthAPI) { c.api = a }

// Current returns a snapshot of the session.
func (c *Controller) Current() model.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return snapshot(c.sess)
}

// Token returns the live access token for the outbound interceptor.
func (c *Controller) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sess.Token
}

// Subscribe registers an observer notified after every session change.
func (c *Controller) Subscribe(fn func(model.Session)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs = append(c.subs, fn)
}

// Register creates an account and transitions to Authenticated on success.
// On failure the state and the stored credentials are untouched.
func (c *Controller) Register(ctx context.Context, username, email, password string) (model.User, error) {
	res, err := c.api.Register(ctx, username, email, password)
	if err != nil {
		return model.User{}, err
	}
	c.set(model.Session{User: &res.User, Token: res.Access, RefreshToken: res.Refresh})
	return res.User, nil
}

// Login authenticates and transitions to Authenticated on success.
func (c *Controller) Login(ctx context.Context, username, password string) (model.User, error) {
	res, err := c.api.Login(ctx, username, password)
	if err != nil {
		return model.User{}, err
	}
	c.set(model.Session{User: &res.User, Token: res.Access, RefreshToken: res.Refresh})
	return res.User, nil
}

// Renew swaps the access token without changing the user. It does NOT log
// out on failure; that decision belongs to the caller (the inbound
// interceptor), which keeps this primitive side-effect free.
func (c *Controller) Renew(ctx context.Context) error {
	c.mu.RLock()
	refresh := c.sess.RefreshToken
	authed := c.sess.Authenticated()
	c.mu.RUnlock()
	if !authed || refresh == "" {
		return errors.New("no session to renew")
	}

	tok, err := c.api.Refresh(ctx, refresh)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.sess.Token = tok.AccessToken
	if tok.RefreshToken != "" {
		c.sess.RefreshToken = tok.RefreshToken
	}
	sess := c.sess
	c.mu.Unlock()

	if err := c.store.Save(sess); err != nil {
		c.log.Warn("persist renewed session", zap.Error(err))
	}
	c.notify(sess)
	return nil
}

// Logout tears the local session down unconditionally. The remote
// invalidation is best-effort: a network fault never blocks logging out.
func (c *Controller) Logout(ctx context.Context) {
	c.mu.RLock()
	refresh := c.sess.RefreshToken
	c.mu.RUnlock()

	if refresh != "" && c.api != nil {
		if err := c.api.Logout(ctx, refresh); err != nil {
			c.log.Warn("remote logout failed, clearing locally", zap.Error(err))
		}
	}
	c.Expire()
}

// Expire drops the session locally without touching the network. The
// renewal interceptor calls it when the refresh credential is rejected:
// a remote logout with dead credentials could only fail or recurse.
func (c *Controller) Expire() {
	c.mu.Lock()
	c.sess = model.Session{}
	c.mu.Unlock()
	if err := c.store.Clear(); err != nil {
		c.log.Warn("clear credential store", zap.Error(err))
	}
	c.notify(model.Session{})
}

// ResetPasswordRequest asks for a reset token by email. Stateless: the
// session value is untouched either way.
func (c *Controller) ResetPasswordRequest(ctx context.Context, email string) error {
	return c.api.RequestPasswordReset(ctx, email)
}

// ResetPasswordConfirm completes a reset with the token. Stateless too.
func (c *Controller) ResetPasswordConfirm(ctx context.Context, token, password string) error {
	return c.api.ConfirmPasswordReset(ctx, token, password)
}

func (c *Controller) set(sess model.Session) {
	c.mu.Lock()
	c.sess = sess
	c.mu.Unlock()
	if err := c.store.Save(sess); err != nil {
		c.log.Warn("persist session", zap.Error(err))
	}
	c.notify(sess)
}

func (c *Controller) notify(sess model.Session) {
	c.mu.RLock()
	subs := append(([]func(model.Session))(nil), c.subs...)
	c.mu.RUnlock()
	for _, fn := range subs {
		fn(snapshot(sess))
	}
}

func snapshot(s model.Session) model.Session {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}
