package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ucloud-proxy/internal/batch"
	"ucloud-proxy/internal/errs"
	"ucloud-proxy/internal/model"
	"ucloud-proxy/internal/repository"
)

// upstream endTime format, e.g. "2024-05-31 23:59:59".
const endTimeLayout = "2006-01-02 15:04:05"

// CourseAPI is the slice of the upstream client the reconciler needs.
type CourseAPI interface {
	// ListCourses fetches the user's current course sites.
	ListCourses(ctx context.Context, sess *model.Session) ([]model.CourseInfo, error)
	// SiteActivityIDs lists one category's activity ids on one site.
	SiteActivityIDs(ctx context.Context, sess *model.Session, cat model.Category, siteID string) ([]string, error)
	// SearchSiteWork searches one site's assignments by keyword.
	SearchSiteWork(ctx context.Context, sess *model.Session, siteID, keyword string) ([]string, error)
}

// CourseService reconciles activity-to-course lookups against the
// persistent cache, falling back to bounded upstream fan-out searches.
type CourseService interface {
	// AttachCourses returns the items with course info attached,
	// preserving input order and count. Items the search could not
	// place come back without course info.
	AttachCourses(ctx context.Context, sess *model.Session, items []model.UndoneListItem) ([]model.UndoneListItem, error)
	// CourseFor resolves the course of a single assignment, searching
	// by keyword on a cache miss. ErrNotFound when no course has it.
	CourseFor(ctx context.Context, sess *model.Session, id, keyword string) (*model.CourseInfo, error)
}

type CourseServiceImpl struct {
	cache repository.CourseCacheRepository
	api   CourseAPI
	limit int
	log   *zap.Logger
}

// NewCourseService constructs CourseService. limit caps concurrent
// per-site lookups within one search round.
func NewCourseService(cache repository.CourseCacheRepository, api CourseAPI, limit int, log *zap.Logger) *CourseServiceImpl {
	if limit <= 0 {
		limit = 5
	}
	return &CourseServiceImpl{cache: cache, api: api, limit: limit, log: log}
}

// AttachCourses implements the read-through path for the undone feed:
// one bulk cache read, per-category fan-out searches for the misses,
// one transactional cache write, then an order-preserving merge.
func (s *CourseServiceImpl) AttachCourses(ctx context.Context, sess *model.Session, items []model.UndoneListItem) ([]model.UndoneListItem, error) {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		if isNumeric(it.ActivityID) {
			ids = append(ids, it.ActivityID)
		}
	}

	cached, err := s.cache.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: read course cache: %v", errs.ErrStorage, err)
	}

	var missing []model.UndoneListItem
	for _, it := range items {
		if !isNumeric(it.ActivityID) {
			continue
		}
		if _, ok := cached[it.ActivityID]; !ok {
			missing = append(missing, it)
		}
	}

	resolved := make(map[string]model.CourseInfo)
	if len(missing) > 0 {
		s.log.Info("course cache split",
			zap.Int("total", len(items)),
			zap.Int("hit", len(cached)),
			zap.Int("miss", len(missing)),
		)
		resolved, err = s.resolveMissing(ctx, sess, missing)
		if err != nil {
			return nil, err
		}
	} else {
		s.log.Info("course cache hit for all items", zap.Int("total", len(items)))
	}

	out := make([]model.UndoneListItem, len(items))
	for i, it := range items {
		if e, ok := cached[it.ActivityID]; ok {
			var ci model.CourseInfo
			if err := json.Unmarshal(e.Info, &ci); err == nil {
				it.CourseInfo = &ci
			}
		} else if ci, ok := resolved[it.ActivityID]; ok {
			c := ci
			it.CourseInfo = &c
		}
		out[i] = it
	}
	return out, nil
}

// resolveMissing groups the missing items by category, runs one fan-out
// search per non-empty category over the user's course list, and
// persists everything it found in a single batched upsert.
func (s *CourseServiceImpl) resolveMissing(ctx context.Context, sess *model.Session, missing []model.UndoneListItem) (map[string]model.CourseInfo, error) {
	courses, err := s.api.ListCourses(ctx, sess)
	if err != nil {
		return nil, err
	}

	byCategory := make(map[model.Category][]string)
	endTimes := make(map[string]string, len(missing))
	for _, it := range missing {
		cat := model.CategoryOf(it.Type)
		if cat == model.CategoryUnknown {
			s.log.Debug("unsearchable activity type",
				zap.String("activityId", it.ActivityID), zap.Int("type", it.Type))
			continue
		}
		byCategory[cat] = append(byCategory[cat], it.ActivityID)
		endTimes[it.ActivityID] = it.EndTime
	}

	resolved := make(map[string]model.CourseInfo)
	for _, cat := range model.Categories {
		targets := byCategory[cat]
		if len(targets) == 0 {
			continue
		}
		found, err := batch.Resolve(ctx, targets, courses, s.limit,
			func(ctx context.Context, course model.CourseInfo) ([]batch.Pair[model.CourseInfo], error) {
				ids, err := s.api.SiteActivityIDs(ctx, sess, cat, course.ID)
				if err != nil {
					return nil, err
				}
				pairs := make([]batch.Pair[model.CourseInfo], 0, len(ids))
				for _, id := range ids {
					pairs = append(pairs, batch.Pair[model.CourseInfo]{ID: id, Payload: course})
				}
				return pairs, nil
			})
		if err != nil {
			return nil, err
		}
		for id, course := range found {
			resolved[id] = course
		}
	}

	if len(resolved) == 0 {
		return resolved, nil
	}
	entries := make([]model.CacheEntry, 0, len(resolved))
	for id, course := range resolved {
		info, err := json.Marshal(course)
		if err != nil {
			return nil, err
		}
		entries = append(entries, model.CacheEntry{
			ID:      id,
			Info:    info,
			EndTime: parseEndTime(endTimes[id]),
		})
	}
	if err := s.cache.UpsertMany(ctx, entries); err != nil {
		return nil, fmt.Errorf("%w: write course cache: %v", errs.ErrStorage, err)
	}
	return resolved, nil
}

// CourseFor is the single-id read-through variant used by /homework and
// /search: cache first, then a keyword search across the course list.
func (s *CourseServiceImpl) CourseFor(ctx context.Context, sess *model.Session, id, keyword string) (*model.CourseInfo, error) {
	entry, err := s.cache.Get(ctx, id)
	switch {
	case err == nil:
		var ci model.CourseInfo
		if jerr := json.Unmarshal(entry.Info, &ci); jerr == nil {
			s.log.Info("course cache hit", zap.String("activityId", id))
			return &ci, nil
		}
		// unreadable blob: fall through to a live search and overwrite
	case !errors.Is(err, errs.ErrNotFound):
		return nil, fmt.Errorf("%w: read course cache: %v", errs.ErrStorage, err)
	}

	courses, err := s.api.ListCourses(ctx, sess)
	if err != nil {
		return nil, err
	}
	found, err := batch.Resolve(ctx, []string{id}, courses, s.limit,
		func(ctx context.Context, course model.CourseInfo) ([]batch.Pair[model.CourseInfo], error) {
			ids, err := s.api.SearchSiteWork(ctx, sess, course.ID, keyword)
			if err != nil {
				return nil, err
			}
			pairs := make([]batch.Pair[model.CourseInfo], 0, len(ids))
			for _, matched := range ids {
				pairs = append(pairs, batch.Pair[model.CourseInfo]{ID: matched, Payload: course})
			}
			return pairs, nil
		})
	if err != nil {
		return nil, err
	}
	course, ok := found[id]
	if !ok {
		return nil, errs.ErrNotFound
	}

	info, err := json.Marshal(course)
	if err != nil {
		return nil, err
	}
	if err := s.cache.UpsertMany(ctx, []model.CacheEntry{{ID: id, Info: info}}); err != nil {
		return nil, fmt.Errorf("%w: write course cache: %v", errs.ErrStorage, err)
	}
	return &course, nil
}

// isNumeric reports whether s is a non-empty string of ASCII digits.
// The upstream feed mixes numeric activity ids with synthetic ones that
// no listing endpoint ever returns.
func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func parseEndTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.ParseInLocation(endTimeLayout, s, time.Local)
	if err != nil {
		return nil
	}
	return &t
}
