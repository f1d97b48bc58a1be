// Package api is the HTTP client for the inkpost service. It implements the
// auth transport, the post fetch service and the mutation transport consumed
// by the session controller and the optimistic feed engine.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"

	"github.com/Isma450/inkpost/internal/client/transport"
	"github.com/Isma450/inkpost/internal/errs"
	"github.com/Isma450/inkpost/internal/model"
	"github.com/gofrs/uuid/v5"
)

// Client talks JSON over HTTP to the inkpost API.
type Client struct {
	base string
	http *http.Client
}

// New constructs a Client. The http.Client is expected to carry the
// interceptor chain and the request timeout.
func New(baseURL string, httpc *http.Client) *Client {
	return &Client{base: strings.TrimRight(baseURL, "/"), http: httpc}
}

// --- auth transport ---

// AuthResult is what register/login hand back to the session controller.
type AuthResult struct {
	User    model.User `json:"user"`
	Access  string     `json:"access"`
	Refresh string     `json:"refresh"`
}

// Register creates an account and signs it in.
func (c *Client) Register(ctx context.Context, username, email, password string) (AuthResult, error) {
	var out AuthResult
	err := c.do(ctx, http.MethodPost, "/api/register",
		map[string]string{"username": username, "email": email, "password": password}, &out)
	return out, err
}

// Login authenticates with a username and password.
func (c *Client) Login(ctx context.Context, username, password string) (AuthResult, error) {
	var out AuthResult
	err := c.do(ctx, http.MethodPost, "/api/login",
		map[string]string{"username": username, "password": password}, &out)
	return out, err
}

// Refresh exchanges the refresh token for a fresh pair. The request is
// exempt from the renewal interceptor: a 401 here must never recurse.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (model.Tokens, error) {
	var out model.Tokens
	err := c.do(transport.WithRenewalExempt(ctx), http.MethodPost, "/api/token/refresh",
		map[string]string{"refresh": refreshToken}, &out)
	return out, err
}

// Logout revokes the refresh token server-side.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	return c.do(ctx, http.MethodPost, "/api/logout",
		map[string]string{"refresh": refreshToken}, nil)
}

// RequestPasswordReset asks the server to mint a reset token for the email.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/api/password/reset",
		map[string]string{"email": email}, nil)
}

// ConfirmPasswordReset sets a new password using a reset token.
func (c *Client) ConfirmPasswordReset(ctx context.Context, token, password string) error {
	return c.do(ctx, http.MethodPost, "/api/password/reset/"+token,
		map[string]string{"password": password}, nil)
}

// --- post fetch service ---

// ListPosts fetches all published posts. Transient network failures are
// retried briefly; everything else surfaces at once.
func (c *Client) ListPosts(ctx context.Context) ([]model.Post, error) {
	var out []model.Post
	err := c.fetch(ctx, "/api/posts", &out)
	return out, err
}

// GetPost fetches a single post; it is also the resync path after a failed
// optimistic mutation.
func (c *Client) GetPost(ctx context.Context, id int64) (model.Post, error) {
	var out model.Post
	err := c.fetch(ctx, "/api/posts/"+strconv.FormatInt(id, 10), &out)
	return out, err
}

// AuthorProfile fetches an author's identity and published posts.
func (c *Client) AuthorProfile(ctx context.Context, authorID uuid.UUID) (model.AuthorProfile, error) {
	var out model.AuthorProfile
	err := c.fetch(ctx, "/api/authors/"+authorID.String(), &out)
	return out, err
}

func (c *Client) fetch(ctx context.Context, path string, out any) error {
	return retry.Do(
		func() error {
			err := c.do(ctx, http.MethodGet, path, nil, out)
			if err != nil && !errsIsUnavailable(err) {
				return retry.Unrecoverable(err)
			}
			return err
		},
		retry.Attempts(3),
		retry.Delay(300*time.Millisecond),
		retry.MaxDelay(2*time.Second),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
}

// --- mutation transport ---

// ToggleReaction flips the caller's (emoji) reaction on a post and returns
// the authoritative aggregate.
func (c *Client) ToggleReaction(ctx context.Context, postID int64, emoji model.Emoji) (model.Post, error) {
	var out model.Post
	err := c.do(ctx, http.MethodPost, "/api/posts/"+strconv.FormatInt(postID, 10)+"/reactions",
		map[string]string{"emoji": string(emoji)}, &out)
	return out, err
}

// AddComment appends a comment and returns the authoritative aggregate.
func (c *Client) AddComment(ctx context.Context, postID int64, content string) (model.Post, error) {
	var out model.Post
	err := c.do(ctx, http.MethodPost, "/api/posts/"+strconv.FormatInt(postID, 10)+"/comments",
		map[string]string{"content": content}, &out)
	return out, err
}

// CreatePost publishes a new post (staff only).
func (c *Client) CreatePost(ctx context.Context, title, content string) (model.Post, error) {
	var out model.Post
	err := c.do(ctx, http.MethodPost, "/api/posts",
		map[string]string{"title": title, "content": content}, &out)
	return out, err
}

// --- plumbing ---

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// timeouts, refused connections, DNS: all network failures
		return fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			io.Copy(io.Discard, resp.Body) //nolint:errcheck
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return statusError(resp)
}

// statusError maps an error response onto the shared sentinels, keeping the
// server's message where it has one.
func statusError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&payload)

	var sentinel error
	switch resp.StatusCode {
	case http.StatusBadRequest:
		sentinel = errs.ErrValidation
	case http.StatusUnauthorized:
		sentinel = errs.ErrUnauthorized
	case http.StatusForbidden:
		sentinel = errs.ErrForbidden
	case http.StatusNotFound:
		sentinel = errs.ErrNotFound
	case http.StatusConflict:
		sentinel = errs.ErrAlreadyExists
	case http.StatusTooManyRequests:
		sentinel = errs.ErrRateLimited
	default:
		sentinel = errs.ErrUnavailable
	}
	if payload.Error != "" {
		return fmt.Errorf("%w: %s", sentinel, payload.Error)
	}
	return fmt.Errorf("%w: http %d", sentinel, resp.StatusCode)
}

func errsIsUnavailable(err error) bool {
	return errors.Is(err, errs.ErrUnavailable)
}
