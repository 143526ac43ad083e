// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"ucloud-proxy/internal/model"
)

// CredentialRepository stores one row per username: the salted hash of
// the last password that logged in successfully, plus the serialized
// upstream session. Writes are full-record replacements by key.
type CredentialRepository interface {
	// Get loads a credential by username.
	Get(ctx context.Context, username string) (*model.Credential, error)
	// Upsert inserts or fully replaces the row for c.Username.
	Upsert(ctx context.Context, c *model.Credential) error
	// UpdateSession replaces only the session blob, leaving the password hash untouched.
	UpdateSession(ctx context.Context, username string, sessionRaw []byte) error
}
