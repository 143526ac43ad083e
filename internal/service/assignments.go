package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"ucloud-proxy/internal/batch"
	"ucloud-proxy/internal/errs"
	"ucloud-proxy/internal/model"
)

// AssignmentAPI is the slice of the upstream client used for the
// undone feed and assignment details.
type AssignmentAPI interface {
	// UndoneList fetches the user's pending-activity feed.
	UndoneList(ctx context.Context, sess *model.Session) (*model.UndoneList, error)
	// Detail fetches one assignment's detail.
	Detail(ctx context.Context, sess *model.Session, assignmentID string) (*model.AssignmentDetail, error)
	// Resources resolves attachment metadata for the given references.
	Resources(ctx context.Context, sess *model.Session, refs []model.Resource) ([]model.ResourceDetail, error)
	// PreviewURL fetches the preview URL for one resource.
	PreviewURL(ctx context.Context, resourceID string) (string, error)
}

// AssignmentService assembles feed and detail responses: upstream data
// plus cached course info plus resolved attachment preview URLs.
type AssignmentService interface {
	// Undone returns the pending feed with course info attached.
	Undone(ctx context.Context, sess *model.Session) (*model.UndoneList, error)
	// Get returns one assignment with course info and resources attached.
	Get(ctx context.Context, sess *model.Session, id string) (*model.AssignmentDetail, error)
}

type AssignmentServiceImpl struct {
	api     AssignmentAPI
	courses CourseService
	limit   int
	log     *zap.Logger
}

// NewAssignmentService constructs AssignmentService. limit caps
// concurrent preview-URL lookups.
func NewAssignmentService(api AssignmentAPI, courses CourseService, limit int, log *zap.Logger) *AssignmentServiceImpl {
	if limit <= 0 {
		limit = 5
	}
	return &AssignmentServiceImpl{api: api, courses: courses, limit: limit, log: log}
}

// Undone fetches the feed and reconciles course info for every item.
func (s *AssignmentServiceImpl) Undone(ctx context.Context, sess *model.Session) (*model.UndoneList, error) {
	feed, err := s.api.UndoneList(ctx, sess)
	if err != nil {
		return nil, err
	}
	items, err := s.courses.AttachCourses(ctx, sess, feed.UndoneList)
	if err != nil {
		return nil, err
	}
	feed.UndoneList = items
	return feed, nil
}

// Get fetches an assignment's detail, attaches its course (keyword is
// the assignment title) and resolves attachment preview URLs.
func (s *AssignmentServiceImpl) Get(ctx context.Context, sess *model.Session, id string) (*model.AssignmentDetail, error) {
	detail, err := s.api.Detail(ctx, sess, id)
	if err != nil {
		return nil, err
	}

	course, err := s.courses.CourseFor(ctx, sess, id, detail.AssignmentTitle)
	switch {
	case err == nil:
		detail.CourseInfo = course
	case errors.Is(err, errs.ErrNotFound):
		s.log.Info("assignment not found in any course", zap.String("assignmentId", id))
	default:
		return nil, err
	}

	if len(detail.AssignmentResource) > 0 {
		resources, err := s.resolveResources(ctx, sess, detail.AssignmentResource)
		if err != nil {
			return nil, err
		}
		detail.Resource = resources
	}
	return detail, nil
}

// resolveResources loads attachment metadata and fans out the per-file
// preview-URL calls in bounded groups. Each id is its own bucket here:
// the fan-out machinery is the same, the search aspect degenerates.
func (s *AssignmentServiceImpl) resolveResources(ctx context.Context, sess *model.Session, refs []model.Resource) ([]model.ResourceDetail, error) {
	details, err := s.api.Resources(ctx, sess, refs)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(details))
	for _, d := range details {
		ids = append(ids, d.ID)
	}
	urls, err := batch.Resolve(ctx, ids, ids, s.limit,
		func(ctx context.Context, resourceID string) ([]batch.Pair[string], error) {
			u, err := s.api.PreviewURL(ctx, resourceID)
			if err != nil {
				return nil, err
			}
			if u == "" {
				return nil, nil
			}
			return []batch.Pair[string]{{ID: resourceID, Payload: u}}, nil
		})
	if err != nil {
		return nil, err
	}

	for i := range details {
		details[i].URL = urls[details[i].ID]
	}
	return details, nil
}
