package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"ucloud-proxy/internal/errs"
	"ucloud-proxy/internal/model"
)

// ShortURLRepo implements ShortURLRepository using PostgreSQL.
type ShortURLRepo struct{ db *DB }

// NewShortURLRepo constructs a short-link repository.
func NewShortURLRepo(db *DB) *ShortURLRepo { return &ShortURLRepo{db: db} }

// Create inserts a new short link row.
func (r *ShortURLRepo) Create(ctx context.Context, s *model.ShortURL) error {
	const q = `INSERT INTO shorturl (key, homework_id, username) VALUES ($1, $2, $3)`
	_, err := r.db.Pool.Exec(ctx, q, s.Key, s.HomeworkID, s.Username)
	return err
}

// Get selects a short link by key.
func (r *ShortURLRepo) Get(ctx context.Context, key string) (*model.ShortURL, error) {
	const q = `SELECT key, homework_id, username, created_at FROM shorturl WHERE key=$1`
	row := r.db.Pool.QueryRow(ctx, q, key)
	var s model.ShortURL
	if err := row.Scan(&s.Key, &s.HomeworkID, &s.Username, &s.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}
