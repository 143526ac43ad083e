package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"ucloud-proxy/internal/errs"
	"ucloud-proxy/internal/model"
)

func TestCacheRepo_Get(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewCacheRepo(db)
	ctx := context.Background()
	end := time.Now()

	mock.ExpectQuery(`SELECT id, info, endtime FROM homeworks WHERE id=\$1`).
		WithArgs("42").
		WillReturnRows(pgxmock.NewRows([]string{"id", "info", "endtime"}).
			AddRow("42", []byte(`{"id":"s1"}`), &end))
	e, err := r.Get(ctx, "42")
	require.NoError(t, err)
	require.Equal(t, "42", e.ID)
	require.NotNil(t, e.EndTime)

	mock.ExpectQuery(`SELECT id, info, endtime FROM homeworks WHERE id=\$1`).
		WithArgs("7").
		WillReturnError(pgx.ErrNoRows)
	_, err = r.Get(ctx, "7")
	require.ErrorIs(t, err, errs.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheRepo_GetMany(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewCacheRepo(db)
	ctx := context.Background()

	ids := []string{"1", "2", "3"}
	mock.ExpectQuery(`SELECT id, info, endtime FROM homeworks WHERE id = ANY\(\$1\)`).
		WithArgs(ids).
		WillReturnRows(pgxmock.NewRows([]string{"id", "info", "endtime"}).
			AddRow("1", []byte(`{"id":"s1"}`), (*time.Time)(nil)).
			AddRow("3", []byte(`{"id":"s2"}`), (*time.Time)(nil)))
	got, err := r.GetMany(ctx, ids)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Contains(t, got, "1")
	require.Contains(t, got, "3")
	require.NotContains(t, got, "2")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheRepo_GetMany_EmptySkipsQuery(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewCacheRepo(db)

	got, err := r.GetMany(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheRepo_UpsertMany(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewCacheRepo(db)

	entries := []model.CacheEntry{
		{ID: "1", Info: []byte(`{"id":"s1"}`)},
		{ID: "2", Info: []byte(`{"id":"s2"}`)},
	}
	const q = `INSERT INTO homeworks \(id, info, endtime\) VALUES \(\$1, \$2, \$3\) ON CONFLICT \(id\) DO UPDATE SET info=excluded.info, endtime=excluded.endtime`

	mock.ExpectBegin()
	mock.ExpectExec(q).WithArgs("1", entries[0].Info, (*time.Time)(nil)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(q).WithArgs("2", entries[1].Info, (*time.Time)(nil)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	require.NoError(t, r.UpsertMany(context.Background(), entries))

	// Re-upserting an existing id overwrites rather than failing.
	mock.ExpectBegin()
	mock.ExpectExec(q).WithArgs("1", entries[0].Info, (*time.Time)(nil)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()
	require.NoError(t, r.UpsertMany(context.Background(), entries[:1]))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheRepo_UpsertMany_RollsBackOnFailure(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewCacheRepo(db)

	entries := []model.CacheEntry{
		{ID: "1", Info: []byte(`{}`)},
		{ID: "2", Info: []byte(`{}`)},
	}
	const q = `INSERT INTO homeworks \(id, info, endtime\) VALUES \(\$1, \$2, \$3\) ON CONFLICT \(id\) DO UPDATE SET info=excluded.info, endtime=excluded.endtime`

	mock.ExpectBegin()
	mock.ExpectExec(q).WithArgs("1", entries[0].Info, (*time.Time)(nil)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(q).WithArgs("2", entries[1].Info, (*time.Time)(nil)).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := r.UpsertMany(context.Background(), entries)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheRepo_UpsertMany_EmptyIsNoop(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewCacheRepo(db)

	require.NoError(t, r.UpsertMany(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}
