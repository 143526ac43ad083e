package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"ucloud-proxy/internal/errs"
	"ucloud-proxy/internal/model"
)

// CredRepo implements CredentialRepository using PostgreSQL.
type CredRepo struct{ db *DB }

// NewCredRepo constructs a credential repository.
func NewCredRepo(db *DB) *CredRepo { return &CredRepo{db: db} }

// Get selects a credential by username.
func (r *CredRepo) Get(ctx context.Context, username string) (*model.Credential, error) {
	const q = `
SELECT username, pwd_hash, pwd_salt, session, updated_at
FROM users WHERE username=$1`
	row := r.db.Pool.QueryRow(ctx, q, username)
	var c model.Credential
	if err := row.Scan(&c.Username, &c.PwdHash, &c.PwdSalt, &c.SessionRaw, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// Upsert inserts or fully replaces the row keyed by username.
func (r *CredRepo) Upsert(ctx context.Context, c *model.Credential) error {
	const q = `
INSERT INTO users (username, pwd_hash, pwd_salt, session, updated_at)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (username)
DO UPDATE SET pwd_hash=excluded.pwd_hash, pwd_salt=excluded.pwd_salt, session=excluded.session, updated_at=now()`
	_, err := r.db.Pool.Exec(ctx, q, c.Username, c.PwdHash, c.PwdSalt, c.SessionRaw)
	return err
}

// UpdateSession replaces only the session blob for an existing row.
func (r *CredRepo) UpdateSession(ctx context.Context, username string, sessionRaw []byte) error {
	const q = `UPDATE users SET session=$2, updated_at=now() WHERE username=$1`
	tag, err := r.db.Pool.Exec(ctx, q, username, sessionRaw)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
