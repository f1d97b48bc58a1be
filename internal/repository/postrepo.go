package repository

import (
	"context"

	"github.com/Isma450/inkpost/internal/model"
	"github.com/gofrs/uuid/v5"
)

// PostRepository provides access to posts and their comment/reaction collections.
type PostRepository interface {
	// List returns published posts, newest first, with comments and reactions attached.
	List(ctx context.Context) ([]model.Post, error)

	// ListByAuthor returns one author's published posts, newest first, with
	// comments and reactions attached.
	ListByAuthor(ctx context.Context, authorID uuid.UUID) ([]model.Post, error)

	// Get returns a single published post with comments and reactions attached.
	Get(ctx context.Context, id int64) (*model.Post, error)

	// Create inserts a new post and returns it with generated fields filled in.
	Create(ctx context.Context, authorID uuid.UUID, title, content string) (*model.Post, error)

	// AddComment appends a comment to a post.
	AddComment(ctx context.Context, postID int64, authorID uuid.UUID, content string) error

	// DeleteReaction removes (post, user, emoji); reports whether a row existed.
	DeleteReaction(ctx context.Context, postID int64, userID uuid.UUID, emoji model.Emoji) (bool, error)

	// InsertReaction adds (post, user, emoji). Inserting a duplicate returns
	// ErrAlreadyExists (unique index).
	InsertReaction(ctx context.Context, postID int64, userID uuid.UUID, emoji model.Emoji) error
}
