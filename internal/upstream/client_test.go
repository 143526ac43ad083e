package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"ucloud-proxy/internal/errs"
	"ucloud-proxy/internal/model"
)

func TestAuthClient_Login(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/blade-auth/oauth/token" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != portalAuthorization {
			t.Errorf("missing portal authorization header")
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		switch r.PostForm.Get("grant_type") {
		case "password":
			if r.PostForm.Get("username") != "alice" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"bad credentials"}`))
				return
			}
			_, _ = w.Write([]byte(`{"access_token":"at","refresh_token":"rt","user_id":"u1"}`))
		case "refresh_token":
			_, _ = w.Write([]byte(`{"access_token":"at2","refresh_token":"rt2","user_id":"u1"}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"unsupported_grant_type"}`))
		}
	}))
	defer srv.Close()

	c := NewAuthClient(srv.URL, zap.NewNop())

	sess, err := c.Login(context.Background(), "alice", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if sess.AccessToken != "at" || sess.UserID != "u1" || sess.Username != "alice" {
		t.Fatalf("unexpected session: %+v", sess)
	}

	if _, err := c.Login(context.Background(), "mallory", "pw"); !errors.Is(err, errs.ErrInvalidCredentials) {
		t.Fatalf("want ErrInvalidCredentials, got %v", err)
	}

	sess, err = c.Refresh(context.Background(), "rt")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if sess.AccessToken != "at2" {
		t.Fatalf("unexpected refreshed session: %+v", sess)
	}
}

func TestAuthClient_UpstreamDown(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewAuthClient(srv.URL, zap.NewNop())
	if _, err := c.Login(context.Background(), "alice", "pw"); !errors.Is(err, errs.ErrUpstreamUnavailable) {
		t.Fatalf("want ErrUpstreamUnavailable on 5xx, got %v", err)
	}
}

func TestClient_UndoneList(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Blade-Auth") != "at" {
			t.Errorf("missing blade-auth header")
		}
		if r.URL.Query().Get("userId") != "u1" {
			t.Errorf("missing userId, got %q", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"success":true,"code":200,"data":{"siteNum":2,"undoneNum":1,"undoneList":[{"activityId":"42","activityName":"essay","type":3}]}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zap.NewNop())
	sess := &model.Session{AccessToken: "at", UserID: "u1"}

	feed, err := c.UndoneList(context.Background(), sess)
	if err != nil {
		t.Fatalf("UndoneList: %v", err)
	}
	if feed.UndoneNum != 1 || feed.UndoneList[0].ActivityID != "42" {
		t.Fatalf("unexpected feed: %+v", feed)
	}
}

func TestClient_EnvelopeFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"msg":"token expired","code":401}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zap.NewNop())
	_, err := c.UndoneList(context.Background(), &model.Session{AccessToken: "at"})
	if !errors.Is(err, errs.ErrUpstreamUnavailable) {
		t.Fatalf("want ErrUpstreamUnavailable on failed envelope, got %v", err)
	}
}

func TestClient_ListCourses(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":{"records":[
			{"id":"s1","siteName":"Calculus","teachers":[{"name":"Li"},{"name":"Wang"}]},
			{"id":"s2","siteName":"Physics","teachers":[]}
		]}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zap.NewNop())
	courses, err := c.ListCourses(context.Background(), &model.Session{AccessToken: "at", UserID: "u1"})
	if err != nil {
		t.Fatalf("ListCourses: %v", err)
	}
	if len(courses) != 2 {
		t.Fatalf("want 2 courses, got %d", len(courses))
	}
	if courses[0].Teachers != "Li, Wang" {
		t.Fatalf("teacher names must be joined, got %q", courses[0].Teachers)
	}
}

func TestClient_SiteActivityIDs_Dispatch(t *testing.T) {
	t.Parallel()

	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		_, _ = w.Write([]byte(`{"success":true,"data":{"records":[{"id":"7"}]}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zap.NewNop())
	sess := &model.Session{AccessToken: "at", UserID: "u1"}

	for _, cat := range model.Categories {
		ids, err := c.SiteActivityIDs(context.Background(), sess, cat, "s1")
		if err != nil {
			t.Fatalf("%v: %v", cat, err)
		}
		if len(ids) != 1 || ids[0] != "7" {
			t.Fatalf("%v: unexpected ids %v", cat, ids)
		}
	}
	want := []string{
		"/ykt-activity/survey/page/todo",
		"/ykt-site/work/student/list",
		"/ykt-site/examination/list-stu",
	}
	for i, p := range want {
		if paths[i] != p {
			t.Fatalf("category %d: want %s, got %s", i, p, paths[i])
		}
	}

	if _, err := c.SiteActivityIDs(context.Background(), sess, model.CategoryUnknown, "s1"); err == nil {
		t.Fatalf("unknown category must be rejected")
	}
}
