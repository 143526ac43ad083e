// Package model defines domain entities used by services and repositories.
package model

import "time"

// Session is the upstream credential pair issued by a login or refresh.
// Owned by the session service; persisted as an opaque JSON blob.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       string `json:"user_id"`
	Username     string `json:"username"`
}

// Credential is a stored account row: the last password that logged in
// successfully (as a salted hash) plus the serialized session.
type Credential struct {
	Username   string // unique
	PwdHash    []byte // Argon2id(password, PwdSalt)
	PwdSalt    []byte
	SessionRaw []byte // JSON-serialized Session
	UpdatedAt  time.Time
}

// CacheEntry is one row of the course-info cache: activity id to the
// course it belongs to, stored as an opaque JSON blob.
type CacheEntry struct {
	ID      string // activity id, unique
	Info    []byte // JSON CourseInfo
	EndTime *time.Time
}

// CourseInfo identifies one upstream course site.
type CourseInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Teachers string `json:"teachers"`
}

// Category says which upstream listing an activity shows up in.
type Category int

const (
	CategoryUnknown Category = iota
	CategorySurvey
	CategoryHomework
	CategoryExam
)

// Categories lists the searchable categories in stable dispatch order.
var Categories = []Category{CategorySurvey, CategoryHomework, CategoryExam}

// CategoryOf maps the upstream activity type code to a Category.
// Codes observed: 2 survey, 3 homework, 4 exam. Anything else is unknown
// and is never searched.
func CategoryOf(typeCode int) Category {
	switch typeCode {
	case 2:
		return CategorySurvey
	case 3:
		return CategoryHomework
	case 4:
		return CategoryExam
	default:
		return CategoryUnknown
	}
}

func (c Category) String() string {
	switch c {
	case CategorySurvey:
		return "survey"
	case CategoryHomework:
		return "homework"
	case CategoryExam:
		return "exam"
	default:
		return "unknown"
	}
}

// UndoneListItem is one pending activity from the upstream undone feed.
// CourseInfo is attached by the reconciler; the upstream feed does not
// carry it.
type UndoneListItem struct {
	SiteID           int64       `json:"siteId"`
	SiteName         string      `json:"siteName"`
	ActivityName     string      `json:"activityName"`
	ActivityID       string      `json:"activityId"`
	Type             int         `json:"type"`
	EndTime          string      `json:"endTime"`
	AssignmentType   int         `json:"assignmentType"`
	EvaluationStatus int         `json:"evaluationStatus"`
	IsOpenEvaluation int         `json:"isOpenEvaluation"`
	CourseInfo       *CourseInfo `json:"courseInfo,omitempty"`
}

// UndoneList is the upstream undone feed.
type UndoneList struct {
	SiteNum    int              `json:"siteNum"`
	UndoneNum  int              `json:"undoneNum"`
	UndoneList []UndoneListItem `json:"undoneList"`
}

// Resource is an attachment reference on an assignment.
type Resource struct {
	ResourceID   string `json:"resourceId"`
	ResourceName string `json:"resourceName"`
	ResourceType string `json:"resourceType"`
}

// ResourceDetail is a resolved attachment with its preview URL.
type ResourceDetail struct {
	ID        string `json:"id"`
	StorageID string `json:"storageId"`
	Name      string `json:"name"`
	Ext       string `json:"ext"`
	URL       string `json:"url,omitempty"`
}

// AssignmentDetail is the upstream assignment detail, plus the fields
// the proxy attaches (course info, resolved resources).
type AssignmentDetail struct {
	ID                  string           `json:"id"`
	AssignmentTitle     string           `json:"assignmentTitle"`
	AssignmentContent   string           `json:"assignmentContent"`
	AssignmentType      int              `json:"assignmentType"`
	AssignmentBeginTime string           `json:"assignmentBeginTime"`
	AssignmentEndTime   string           `json:"assignmentEndTime"`
	AssignmentStatus    int              `json:"assignmentStatus"`
	IsOpenEvaluation    int              `json:"isOpenEvaluation"`
	AssignmentResource  []Resource       `json:"assignmentResource"`
	CourseInfo          *CourseInfo      `json:"courseInfo,omitempty"`
	Resource            []ResourceDetail `json:"resource,omitempty"`
}

// ShortURL maps a random key to an assignment owned by a user.
type ShortURL struct {
	Key        string // unique
	HomeworkID string
	Username   string
	CreatedAt  time.Time
}
