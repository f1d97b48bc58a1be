package tokenstore

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/Isma450/inkpost/internal/errs"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

func TestHash_StableAndOpaque(t *testing.T) {
	t.Parallel()

	h1 := Hash("token-a")
	h2 := Hash("token-a")
	h3 := Hash("token-b")

	require.Equal(t, h1, h2)
	require.NotEqual(t, h1, h3)
	require.Len(t, h1, 32)
	require.False(t, bytes.Contains(h1, []byte("token-a")))
}

func TestPG_SaveResolveDelete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	s := NewPG(mock)

	userID := uuid.Must(uuid.NewV4())
	hash := Hash("refresh-token")
	exp := time.Now().Add(time.Hour)

	mock.ExpectExec(`INSERT INTO refresh_tokens \(token_hash, user_id, expires_at\)`).
		WithArgs(hash, userID, exp).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, s.Save(context.Background(), hash, userID, exp))

	mock.ExpectQuery(`SELECT user_id FROM refresh_tokens\s+WHERE token_hash=\$1 AND expires_at > now\(\)`).
		WithArgs(hash).
		WillReturnRows(pgxmock.NewRows([]string{"user_id"}).AddRow(userID))
	got, err := s.Resolve(context.Background(), hash)
	require.NoError(t, err)
	require.Equal(t, userID, got)

	mock.ExpectExec(`DELETE FROM refresh_tokens WHERE token_hash=\$1`).
		WithArgs(hash).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	require.NoError(t, s.Delete(context.Background(), hash))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPG_Resolve_ExpiredOrUnknown(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	s := NewPG(mock)

	mock.ExpectQuery(`SELECT user_id FROM refresh_tokens`).
		WithArgs(Hash("dead")).
		WillReturnError(pgx.ErrNoRows)

	_, err = s.Resolve(context.Background(), Hash("dead"))
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestPG_DeleteForUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	s := NewPG(mock)

	userID := uuid.Must(uuid.NewV4())
	mock.ExpectExec(`DELETE FROM refresh_tokens WHERE user_id=\$1`).
		WithArgs(userID).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	require.NoError(t, s.DeleteForUser(context.Background(), userID))
}
