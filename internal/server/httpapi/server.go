// Package httpapi exposes the proxy's HTTP surface.
package httpapi

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"ucloud-proxy/internal/errs"
	"ucloud-proxy/internal/model"
	"ucloud-proxy/internal/repository"
	"ucloud-proxy/internal/service"
)

// Server wires services into HTTP handlers.
type Server struct {
	sessions    service.SessionService
	assignments service.AssignmentService
	courses     service.CourseService
	shorts      repository.ShortURLRepository
	log         *zap.Logger
}

// New constructs a Server with injected services.
func New(
	sessions service.SessionService,
	assignments service.AssignmentService,
	courses service.CourseService,
	shorts repository.ShortURLRepository,
	log *zap.Logger,
) *Server {
	return &Server{
		sessions:    sessions,
		assignments: assignments,
		courses:     courses,
		shorts:      shorts,
		log:         log,
	}
}

// Routes returns the full handler chain.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /undoneList", s.withSession(s.handleUndoneList))
	mux.Handle("GET /homework", s.withSession(s.handleHomework))
	mux.Handle("GET /search", s.withSession(s.handleSearch))
	mux.Handle("POST /short", s.withSession(s.handleShortCreate))
	mux.HandleFunc("GET /s/{key}", s.handleShortResolve)
	return Recover(s.log, Logging(s.log, mux))
}

// sessionHandler is a handler that runs with a resolved upstream session.
type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *model.Session)

// withSession authenticates the request with HTTP Basic credentials and
// resolves the user's upstream session before running next.
func (s *Server) withSession(next sessionHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok || username == "" || password == "" {
			w.Header().Set("WWW-Authenticate", `Basic realm="ucloud-proxy"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		sess, err := s.sessions.Resolve(r.Context(), username, password, remoteIP(r))
		if err != nil {
			s.writeError(w, err)
			return
		}
		next(w, r, sess)
	})
}

func (s *Server) handleUndoneList(w http.ResponseWriter, r *http.Request, sess *model.Session) {
	feed, err := s.assignments.Undone(r.Context(), sess)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, feed)
}

func (s *Server) handleHomework(w http.ResponseWriter, r *http.Request, sess *model.Session) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	detail, err := s.assignments.Get(r.Context(), sess, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, detail)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request, sess *model.Session) {
	q := r.URL.Query()
	id, keyword := q.Get("id"), q.Get("keyword")
	if id == "" || keyword == "" {
		http.Error(w, "invalid arguments", http.StatusBadRequest)
		return
	}
	course, err := s.courses.CourseFor(r.Context(), sess, id, keyword)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, course)
}

func (s *Server) handleShortCreate(w http.ResponseWriter, r *http.Request, sess *model.Session) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	key, err := uuid.NewV4()
	if err != nil {
		s.writeError(w, err)
		return
	}
	link := &model.ShortURL{Key: key.String(), HomeworkID: id, Username: sess.Username}
	if err := s.shorts.Create(r.Context(), link); err != nil {
		s.writeError(w, errs.ErrStorage)
		return
	}
	s.writeJSON(w, map[string]string{"key": link.Key})
}

// handleShortResolve serves a shared assignment without Basic auth: the
// link owner's stored session is re-resolved with no password, so only
// reuse and refresh can satisfy it.
func (s *Server) handleShortResolve(w http.ResponseWriter, r *http.Request) {
	link, err := s.shorts.Get(r.Context(), r.PathValue("key"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	sess, err := s.sessions.Resolve(r.Context(), link.Username, "", remoteIP(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	detail, err := s.assignments.Get(r.Context(), sess, link.HomeworkID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, detail)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("write response", zap.Error(err))
	}
}

// writeError maps service errors onto HTTP statuses. Authentication
// failures stay distinguishable from transient upstream failures so a
// client knows whether re-prompting for credentials makes sense.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errs.ErrCredentialRequired), errors.Is(err, errs.ErrInvalidCredentials):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, errs.ErrRateLimited):
		http.Error(w, err.Error(), http.StatusTooManyRequests)
	case errors.Is(err, errs.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, errs.ErrUpstreamUnavailable):
		http.Error(w, err.Error(), http.StatusBadGateway)
	case errors.Is(err, errs.ErrStorage):
		http.Error(w, "storage failure", http.StatusInternalServerError)
	default:
		s.log.Error("unhandled error", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
