package postgres

import (
	"context"
	"errors"

	"github.com/Isma450/inkpost/internal/errs"
	"github.com/Isma450/inkpost/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// PostRepo implements PostRepository using PostgreSQL.
type PostRepo struct{ db *DB }

// NewPostRepo constructs a post repository.
func NewPostRepo(db *DB) *PostRepo { return &PostRepo{db: db} }

const postColumns = `
p.id, p.title, p.content, p.created_at, p.updated_at, p.published_at,
u.id, u.username, u.email, u.is_staff`

// List returns published posts, newest first, with sub-collections attached.
func (r *PostRepo) List(ctx context.Context) ([]model.Post, error) {
	const q = `
SELECT ` + postColumns + `
FROM posts p JOIN users u ON u.id = p.author_id
WHERE p.published_at <= now()
ORDER BY p.published_at DESC`
	return r.queryPosts(ctx, q)
}

// ListByAuthor returns one author's published posts, newest first, with
// sub-collections attached.
func (r *PostRepo) ListByAuthor(ctx context.Context, authorID uuid.UUID) ([]model.Post, error) {
	const q = `
SELECT ` + postColumns + `
FROM posts p JOIN users u ON u.id = p.author_id
WHERE p.author_id = $1 AND p.published_at <= now()
ORDER BY p.published_at DESC`
	return r.queryPosts(ctx, q, authorID)
}

func (r *PostRepo) queryPosts(ctx context.Context, q string, args ...any) ([]model.Post, error) {
	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []model.Post
	var ids []int64
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return []model.Post{}, nil
	}
	if err := r.attach(ctx, posts, ids); err != nil {
		return nil, err
	}
	return posts, nil
}

// Get returns a single published post with sub-collections attached.
func (r *PostRepo) Get(ctx context.Context, id int64) (*model.Post, error) {
	const q = `
SELECT ` + postColumns + `
FROM posts p JOIN users u ON u.id = p.author_id
WHERE p.id = $1 AND p.published_at <= now()`
	p, err := scanPost(r.db.Pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	posts := []model.Post{p}
	if err := r.attach(ctx, posts, []int64{id}); err != nil {
		return nil, err
	}
	return &posts[0], nil
}

// Create inserts a new post and returns the stored aggregate.
func (r *PostRepo) Create(ctx context.Context, authorID uuid.UUID, title, content string) (*model.Post, error) {
	const q = `
INSERT INTO posts (title, content, author_id)
VALUES ($1, $2, $3)
RETURNING id`
	var id int64
	if err := r.db.Pool.QueryRow(ctx, q, title, content, authorID).Scan(&id); err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

// AddComment appends a comment row.
func (r *PostRepo) AddComment(ctx context.Context, postID int64, authorID uuid.UUID, content string) error {
	const q = `
INSERT INTO comments (post_id, author_id, content)
VALUES ($1, $2, $3)`
	_, err := r.db.Pool.Exec(ctx, q, postID, authorID, content)
	return err
}

// DeleteReaction removes (post, user, emoji); reports whether a row existed.
func (r *PostRepo) DeleteReaction(ctx context.Context, postID int64, userID uuid.UUID, emoji model.Emoji) (bool, error) {
	const q = `DELETE FROM reactions WHERE post_id=$1 AND user_id=$2 AND emoji=$3`
	tag, err := r.db.Pool.Exec(ctx, q, postID, userID, string(emoji))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// InsertReaction adds (post, user, emoji).
func (r *PostRepo) InsertReaction(ctx context.Context, postID int64, userID uuid.UUID, emoji model.Emoji) error {
	const q = `
INSERT INTO reactions (post_id, user_id, emoji)
VALUES ($1, $2, $3)`
	_, err := r.db.Pool.Exec(ctx, q, postID, userID, string(emoji))
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

func scanPost(rw row) (model.Post, error) {
	var p model.Post
	err := rw.Scan(
		&p.ID, &p.Title, &p.Content, &p.CreatedAt, &p.UpdatedAt, &p.PublishedAt,
		&p.Author.ID, &p.Author.Username, &p.Author.Email, &p.Author.IsStaff,
	)
	if err != nil {
		return model.Post{}, err
	}
	p.Comments = []model.Comment{}
	p.Reactions = []model.Reaction{}
	return p, nil
}

// attach loads comments and reactions for the given posts in two queries.
func (r *PostRepo) attach(ctx context.Context, posts []model.Post, ids []int64) error {
	byID := make(map[int64]*model.Post, len(posts))
	for i := range posts {
		byID[posts[i].ID] = &posts[i]
	}

	const qc = `
SELECT c.post_id, c.id, c.content, c.created_at, u.id, u.username, u.email, u.is_staff
FROM comments c JOIN users u ON u.id = c.author_id
WHERE c.post_id = ANY($1)
ORDER BY c.created_at ASC`
	rows, err := r.db.Pool.Query(ctx, qc, ids)
	if err != nil {
		return err
	}
	for rows.Next() {
		var postID int64
		var c model.Comment
		if err := rows.Scan(&postID, &c.ID, &c.Content, &c.CreatedAt,
			&c.Author.ID, &c.Author.Username, &c.Author.Email, &c.Author.IsStaff); err != nil {
			rows.Close()
			return err
		}
		if p, ok := byID[postID]; ok {
			p.Comments = append(p.Comments, c)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	const qr = `
SELECT post_id, user_id, emoji, created_at
FROM reactions
WHERE post_id = ANY($1)
ORDER BY created_at ASC`
	rows, err = r.db.Pool.Query(ctx, qr, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var postID int64
		var re model.Reaction
		var emoji string
		if err := rows.Scan(&postID, &re.UserID, &emoji, &re.CreatedAt); err != nil {
			return err
		}
		re.Emoji = model.Emoji(emoji)
		if p, ok := byID[postID]; ok {
			p.Reactions = append(p.Reactions, re)
		}
	}
	return rows.Err()
}
