package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Isma450/inkpost/internal/errs"
	"github.com/Isma450/inkpost/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

func postRowColumns() []string {
	return []string{
		"id", "title", "content", "created_at", "updated_at", "published_at",
		"author_id", "username", "email", "is_staff",
	}
}

func expectAttach(mock pgxmock.PgxPoolIface, ids []int64, commentRows, reactionRows *pgxmock.Rows) {
	mock.ExpectQuery(`FROM comments c JOIN users u ON u\.id = c\.author_id\s+WHERE c\.post_id = ANY\(\$1\)`).
		WithArgs(ids).
		WillReturnRows(commentRows)
	mock.ExpectQuery(`FROM reactions\s+WHERE post_id = ANY\(\$1\)`).
		WithArgs(ids).
		WillReturnRows(reactionRows)
}

func emptyCommentRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"post_id", "id", "content", "created_at", "author_id", "username", "email", "is_staff"})
}

func emptyReactionRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"post_id", "user_id", "emoji", "created_at"})
}

func TestPostRepo_Get_WithCollections(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewPostRepo(db)

	now := time.Now()
	author := uuid.Must(uuid.NewV4())
	reader := uuid.Must(uuid.NewV4())

	mock.ExpectQuery(`FROM posts p JOIN users u ON u\.id = p\.author_id\s+WHERE p\.id = \$1 AND p\.published_at <= now\(\)`).
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows(postRowColumns()).
			AddRow(int64(1), "hello", "body", now, now, now, author, "alice", "a@example.com", true))

	comments := emptyCommentRows().
		AddRow(int64(1), int64(10), "nice", now, reader, "bob", "b@example.com", false)
	reactions := emptyReactionRows().
		AddRow(int64(1), reader, "LIKE", now)
	expectAttach(mock, []int64{1}, comments, reactions)

	p, err := r.Get(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, int64(1), p.ID)
	require.Equal(t, "alice", p.Author.Username)
	require.Len(t, p.Comments, 1)
	require.Equal(t, int64(10), p.Comments[0].ID)
	require.Equal(t, "bob", p.Comments[0].Author.Username)
	require.Len(t, p.Reactions, 1)
	require.Equal(t, model.EmojiLike, p.Reactions[0].Emoji)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepo_Get_NotFound(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewPostRepo(db)

	mock.ExpectQuery(`FROM posts p JOIN users u`).
		WithArgs(int64(404)).
		WillReturnError(pgx.ErrNoRows)

	_, err := r.Get(context.Background(), 404)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestPostRepo_List_Empty(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewPostRepo(db)

	mock.ExpectQuery(`FROM posts p JOIN users u ON u\.id = p\.author_id\s+WHERE p\.published_at <= now\(\)`).
		WillReturnRows(pgxmock.NewRows(postRowColumns()))

	posts, err := r.List(context.Background())
	require.NoError(t, err)
	require.NotNil(t, posts)
	require.Empty(t, posts)
	// no attach queries were issued for an empty list
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepo_List_AttachesCollections(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewPostRepo(db)

	now := time.Now()
	author := uuid.Must(uuid.NewV4())

	mock.ExpectQuery(`FROM posts p JOIN users u ON u\.id = p\.author_id`).
		WillReturnRows(pgxmock.NewRows(postRowColumns()).
			AddRow(int64(2), "second", "b2", now, now, now, author, "alice", "a@example.com", true).
			AddRow(int64(1), "first", "b1", now, now, now, author, "alice", "a@example.com", true))

	expectAttach(mock, []int64{2, 1}, emptyCommentRows(), emptyReactionRows())

	posts, err := r.List(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 2)
	require.Equal(t, int64(2), posts[0].ID)
	require.Empty(t, posts[0].Comments)
	require.NotNil(t, posts[0].Comments)
}

func TestPostRepo_Create(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewPostRepo(db)

	now := time.Now()
	author := uuid.Must(uuid.NewV4())

	mock.ExpectQuery(`INSERT INTO posts \(title, content, author_id\)`).
		WithArgs("t", "c", author).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery(`FROM posts p JOIN users u`).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows(postRowColumns()).
			AddRow(int64(7), "t", "c", now, now, now, author, "alice", "a@example.com", true))
	expectAttach(mock, []int64{7}, emptyCommentRows(), emptyReactionRows())

	p, err := r.Create(context.Background(), author, "t", "c")
	require.NoError(t, err)
	require.Equal(t, int64(7), p.ID)
}

func TestPostRepo_AddComment(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewPostRepo(db)

	author := uuid.Must(uuid.NewV4())
	mock.ExpectExec(`INSERT INTO comments \(post_id, author_id, content\)`).
		WithArgs(int64(1), author, "hi").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, r.AddComment(context.Background(), 1, author, "hi"))
}

func TestPostRepo_DeleteReaction(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewPostRepo(db)

	user := uuid.Must(uuid.NewV4())

	mock.ExpectExec(`DELETE FROM reactions WHERE post_id=\$1 AND user_id=\$2 AND emoji=\$3`).
		WithArgs(int64(1), user, "LIKE").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	deleted, err := r.DeleteReaction(context.Background(), 1, user, model.EmojiLike)
	require.NoError(t, err)
	require.True(t, deleted)

	mock.ExpectExec(`DELETE FROM reactions`).
		WithArgs(int64(1), user, "LIKE").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	deleted, err = r.DeleteReaction(context.Background(), 1, user, model.EmojiLike)
	require.NoError(t, err)
	require.False(t, deleted)
}

func TestPostRepo_InsertReaction_Duplicate(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewPostRepo(db)

	user := uuid.Must(uuid.NewV4())

	mock.ExpectExec(`INSERT INTO reactions \(post_id, user_id, emoji\)`).
		WithArgs(int64(1), user, "LOVE").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, r.InsertReaction(context.Background(), 1, user, model.EmojiLove))

	mock.ExpectExec(`INSERT INTO reactions`).
		WithArgs(int64(1), user, "LOVE").
		WillReturnError(&pgconn.PgError{Code: "23505"})
	require.ErrorIs(t, r.InsertReaction(context.Background(), 1, user, model.EmojiLove), errs.ErrAlreadyExists)
}

func TestPostRepo_ListByAuthor(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewPostRepo(db)

	now := time.Now()
	author := uuid.Must(uuid.NewV4())

	mock.ExpectQuery(`FROM posts p JOIN users u ON u\.id = p\.author_id\s+WHERE p\.author_id = \$1 AND p\.published_at <= now\(\)`).
		WithArgs(author).
		WillReturnRows(pgxmock.NewRows(postRowColumns()).
			AddRow(int64(4), "mine", "body", now, now, now, author, "alice", "a@example.com", false))
	expectAttach(mock, []int64{4}, emptyCommentRows(), emptyReactionRows())

	posts, err := r.ListByAuthor(context.Background(), author)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	require.Equal(t, int64(4), posts[0].ID)
	require.Equal(t, author, posts[0].Author.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepo_Get_DBErrorIsNotNotFound(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewPostRepo(db)

	mock.ExpectQuery(`FROM posts p JOIN users u`).
		WithArgs(int64(1)).
		WillReturnError(errors.New("connection reset"))

	_, err := r.Get(context.Background(), 1)
	require.Error(t, err)
	require.NotErrorIs(t, err, errs.ErrNotFound)
}
