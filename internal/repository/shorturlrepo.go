package repository

import (
	"context"

	"ucloud-proxy/internal/model"
)

// ShortURLRepository stores share links to assignments.
type ShortURLRepository interface {
	// Create inserts a new short link.
	Create(ctx context.Context, s *model.ShortURL) error
	// Get loads a short link by key.
	Get(ctx context.Context, key string) (*model.ShortURL, error)
}
