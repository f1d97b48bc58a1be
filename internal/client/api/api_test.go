package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Isma450/inkpost/internal/errs"
	"github.com/Isma450/inkpost/internal/model"
	"github.com/gofrs/uuid/v5"
)

func newTestClient(h http.Handler) (*Client, *httptest.Server) {
	srv := httptest.NewServer(h)
	return New(srv.URL, srv.Client()), srv
}

func TestClient_Login(t *testing.T) {
	t.Parallel()

	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/login" || r.Method != http.MethodPost {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in["username"] != "alice" || in["password"] != "pw" {
			t.Errorf("bad payload: %v", in)
		}
		_ = json.NewEncoder(w).Encode(AuthResult{
			User:    model.User{Username: "alice"},
			Access:  "acc",
			Refresh: "ref",
		})
	}))
	defer srv.Close()

	res, err := c.Login(context.Background(), "alice", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.User.Username != "alice" || res.Access != "acc" || res.Refresh != "ref" {
		t.Fatalf("bad result: %+v", res)
	}
}

func TestClient_StatusMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status int
		want   error
	}{
		{http.StatusBadRequest, errs.ErrValidation},
		{http.StatusUnauthorized, errs.ErrUnauthorized},
		{http.StatusForbidden, errs.ErrForbidden},
		{http.StatusNotFound, errs.ErrNotFound},
		{http.StatusConflict, errs.ErrAlreadyExists},
		{http.StatusTooManyRequests, errs.ErrRateLimited},
		{http.StatusBadGateway, errs.ErrUnavailable},
	}
	for _, tc := range cases {
		c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tc.status)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "nope"})
		}))

		_, err := c.CreatePost(context.Background(), "t", "c")
		srv.Close()

		if !errors.Is(err, tc.want) {
			t.Fatalf("status %d: want %v, got %v", tc.status, tc.want, err)
		}
	}
}

func TestClient_ErrorKeepsServerMessage(t *testing.T) {
	t.Parallel()

	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unknown emoji"})
	}))
	defer srv.Close()

	_, err := c.ToggleReaction(context.Background(), 1, "NOPE")
	if err == nil || !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want validation error, got %v", err)
	}
	if got := err.Error(); got != "validation failed: unknown emoji" {
		t.Fatalf("server message lost: %q", got)
	}
}

func TestClient_FetchRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode([]model.Post{{ID: 7, Title: "t"}})
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	posts, err := c.ListPosts(ctx)
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	if len(posts) != 1 || posts[0].ID != 7 {
		t.Fatalf("bad posts: %+v", posts)
	}
	if calls.Load() != 3 {
		t.Fatalf("want 2 retries before success, saw %d calls", calls.Load())
	}
}

func TestClient_FetchDoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := c.GetPost(context.Background(), 404); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("404 must not be retried, saw %d calls", calls.Load())
	}
}

func TestClient_NetworkFailureIsUnavailable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	c := New(srv.URL, srv.Client())
	srv.Close() // nothing listens anymore

	_, err := c.ToggleReaction(context.Background(), 1, model.EmojiLike)
	if !errors.Is(err, errs.ErrUnavailable) {
		t.Fatalf("want ErrUnavailable on refused connection, got %v", err)
	}
}

func TestClient_MutationSendsJSONBody(t *testing.T) {
	t.Parallel()

	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("bad content type %q", ct)
		}
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in["content"] != "hello" {
			t.Errorf("bad payload: %v", in)
		}
		_ = json.NewEncoder(w).Encode(model.Post{ID: 1})
	}))
	defer srv.Close()

	if _, err := c.AddComment(context.Background(), 1, "hello"); err != nil {
		t.Fatalf("AddComment: %v", err)
	}
}

func TestClient_AuthorProfile(t *testing.T) {
	t.Parallel()

	authorID := uuid.Must(uuid.NewV4())
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/authors/"+authorID.String() || r.Method != http.MethodGet {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(model.AuthorProfile{
			Author: model.User{ID: authorID, Username: "ines"},
			Posts:  []model.Post{{ID: 7, Title: "t"}},
		})
	}))
	defer srv.Close()

	profile, err := c.AuthorProfile(context.Background(), authorID)
	if err != nil {
		t.Fatalf("AuthorProfile: %v", err)
	}
	if profile.Author.Username != "ines" || len(profile.Posts) != 1 || profile.Posts[0].ID != 7 {
		t.Fatalf("bad profile: %+v", profile)
	}
}
