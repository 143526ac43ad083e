package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"ucloud-proxy/internal/errs"
	"ucloud-proxy/internal/model"
)

// CacheRepo implements CourseCacheRepository using PostgreSQL.
type CacheRepo struct{ db *DB }

// NewCacheRepo constructs a course-cache repository.
func NewCacheRepo(db *DB) *CacheRepo { return &CacheRepo{db: db} }

// Get selects a single cache entry.
func (r *CacheRepo) Get(ctx context.Context, id string) (*model.CacheEntry, error) {
	const q = `SELECT id, info, endtime FROM homeworks WHERE id=$1`
	row := r.db.Pool.QueryRow(ctx, q, id)
	var e model.CacheEntry
	if err := row.Scan(&e.ID, &e.Info, &e.EndTime); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// GetMany selects all present entries for ids in a single IN-style query.
// Absent ids are simply missing from the returned map.
func (r *CacheRepo) GetMany(ctx context.Context, ids []string) (map[string]model.CacheEntry, error) {
	out := make(map[string]model.CacheEntry, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	const q = `SELECT id, info, endtime FROM homeworks WHERE id = ANY($1)`
	rows, err := r.db.Pool.Query(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var e model.CacheEntry
		if err := rows.Scan(&e.ID, &e.Info, &e.EndTime); err != nil {
			return nil, err
		}
		out[e.ID] = e
	}
	return out, rows.Err()
}

// UpsertMany inserts or overwrites entries inside one transaction, so a
// failure leaves no partial batch behind. Re-upserting an id replaces
// its blob; there is no duplicate-key failure mode.
func (r *CacheRepo) UpsertMany(ctx context.Context, entries []model.CacheEntry) (err error) {
	if len(entries) == 0 {
		return nil
	}
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = e
		}
	}()

	const q = `
INSERT INTO homeworks (id, info, endtime)
VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET info=excluded.info, endtime=excluded.endtime`
	for _, e := range entries {
		if _, err = tx.Exec(ctx, q, e.ID, e.Info, e.EndTime); err != nil {
			return err
		}
	}
	return nil
}
