package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Isma450/inkpost/internal/errs"
	"github.com/Isma450/inkpost/internal/model"
	"github.com/Isma450/inkpost/internal/repository"
	"github.com/gofrs/uuid/v5"
)

// listPreviewLines is how many content lines the list view keeps per post.
const listPreviewLines = 5

// PostService defines read and mutation operations on the post aggregate.
type PostService interface {
	// List returns published posts with truncated content previews.
	List(ctx context.Context) ([]model.Post, error)
	// Get returns one published post in full.
	Get(ctx context.Context, id int64) (*model.Post, error)
	// AuthorProfile returns an author's identity with their published posts.
	AuthorProfile(ctx context.Context, authorID uuid.UUID) (*model.AuthorProfile, error)
	// Create publishes a new post.
	Create(ctx context.Context, authorID uuid.UUID, title, content string) (*model.Post, error)
	// AddComment appends a comment and returns the updated aggregate.
	AddComment(ctx context.Context, postID int64, authorID uuid.UUID, content string) (*model.Post, error)
	// ToggleReaction flips (post, user, emoji) and returns the updated aggregate.
	ToggleReaction(ctx context.Context, postID int64, userID uuid.UUID, emoji model.Emoji) (*model.Post, error)
}

// PostServiceImpl implements PostService over a PostRepository. The user
// repository backs the author-profile lookup.
type PostServiceImpl struct {
	posts repository.PostRepository
	users repository.UserRepository
}

// NewPostService constructs a PostService.
func NewPostService(posts repository.PostRepository, users repository.UserRepository) *PostServiceImpl {
	return &PostServiceImpl{posts: posts, users: users}
}

// List returns published posts; content is cut to a short preview and the
// per-emoji counts are computed server-side.
func (s *PostServiceImpl) List(ctx context.Context) ([]model.Post, error) {
	posts, err := s.posts.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range posts {
		lines := strings.Split(posts[i].Content, "\n")
		if len(lines) > listPreviewLines {
			posts[i].Content = strings.Join(lines[:listPreviewLines], "\n")
		}
		posts[i].Counts = posts[i].ReactionCounts()
	}
	return posts, nil
}

// Get returns one published post in full.
func (s *PostServiceImpl) Get(ctx context.Context, id int64) (*model.Post, error) {
	p, err := s.posts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Counts = p.ReactionCounts()
	return p, nil
}

// AuthorProfile returns the author's public identity together with their
// published posts, in full, newest first.
func (s *PostServiceImpl) AuthorProfile(ctx context.Context, authorID uuid.UUID) (*model.AuthorProfile, error) {
	acc, err := s.users.GetByID(ctx, authorID)
	if err != nil {
		return nil, err
	}
	posts, err := s.posts.ListByAuthor(ctx, authorID)
	if err != nil {
		return nil, err
	}
	for i := range posts {
		posts[i].Counts = posts[i].ReactionCounts()
	}
	return &model.AuthorProfile{Author: acc.Public(), Posts: posts}, nil
}

// Create publishes a new post.
func (s *PostServiceImpl) Create(ctx context.Context, authorID uuid.UUID, title, content string) (*model.Post, error) {
	title = strings.TrimSpace(title)
	if title == "" || strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: empty title/content", errs.ErrValidation)
	}
	p, err := s.posts.Create(ctx, authorID, title, content)
	if err != nil {
		return nil, err
	}
	p.Counts = p.ReactionCounts()
	return p, nil
}

// AddComment appends a comment and returns the whole aggregate; the client
// reconciles against this value, so it must carry the stored comment ID.
func (s *PostServiceImpl) AddComment(ctx context.Context, postID int64, authorID uuid.UUID, content string) (*model.Post, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: empty comment", errs.ErrValidation)
	}
	if err := s.posts.AddComment(ctx, postID, authorID, content); err != nil {
		return nil, err
	}
	return s.Get(ctx, postID)
}

// ToggleReaction removes (post, user, emoji) if present, else adds it, and
// returns the whole aggregate. A concurrent duplicate insert counts as the
// reaction being present, so it is not an error.
func (s *PostServiceImpl) ToggleReaction(ctx context.Context, postID int64, userID uuid.UUID, emoji model.Emoji) (*model.Post, error) {
	if !emoji.Valid() {
		return nil, fmt.Errorf("%w: unknown emoji %q", errs.ErrValidation, emoji)
	}
	// Existence check first so reacting to an unknown post is NotFound,
	// not a foreign-key error.
	if _, err := s.posts.Get(ctx, postID); err != nil {
		return nil, err
	}
	deleted, err := s.posts.DeleteReaction(ctx, postID, userID, emoji)
	if err != nil {
		return nil, err
	}
	if !deleted {
		if err := s.posts.InsertReaction(ctx, postID, userID, emoji); err != nil && !errors.Is(err, errs.ErrAlreadyExists) {
			return nil, err
		}
	}
	return s.Get(ctx, postID)
}
