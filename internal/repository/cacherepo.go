package repository

import (
	"context"

	"ucloud-proxy/internal/model"
)

// CourseCacheRepository is the activity-id to course-info cache.
//
// The default policy never evicts; endtime is persisted so a time-based
// sweep can be added behind this interface without touching callers.
type CourseCacheRepository interface {
	// Get loads a single entry.
	Get(ctx context.Context, id string) (*model.CacheEntry, error)
	// GetMany loads all present entries for ids in one query.
	GetMany(ctx context.Context, ids []string) (map[string]model.CacheEntry, error)
	// UpsertMany atomically inserts or overwrites the given entries.
	UpsertMany(ctx context.Context, entries []model.CacheEntry) error
}
