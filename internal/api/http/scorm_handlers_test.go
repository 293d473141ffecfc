package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	api "github.com/courseforge/lms/internal/api/http"
	authmw "github.com/courseforge/lms/internal/auth/middleware"
	"github.com/courseforge/lms/internal/rbac"
	"github.com/courseforge/lms/internal/scorm"
)

// asUser stands in for the JWT middleware: it stamps subject and role into
// the request context the way the real stack does after token validation.
func asUser(sub, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := rbac.WithSubject(r.Context(), sub)
			ctx = rbac.WithRole(ctx, role)
			ctx = authmw.WithDisplayName(ctx, sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newRouter(store scorm.Store, svc *scorm.Service, sub, role string) *chi.Mux {
	r := chi.NewRouter()
	r.Use(asUser(sub, role))
	r.Route("/scorm", func(sr chi.Router) {
		sr.With(rbac.Require("rte:call")).Post("/initialize/{scoID}", api.InitializeHandler(svc))
		sr.With(rbac.Require("rte:call")).Post("/get-value/{attemptID}", api.GetValueHandler(svc))
		sr.With(rbac.Require("rte:call")).Post("/set-value/{attemptID}", api.SetValueHandler(svc))
		sr.With(rbac.Require("rte:call")).Post("/commit/{attemptID}", api.CommitHandler(svc))
		sr.With(rbac.Require("rte:call")).Post("/finish/{attemptID}", api.FinishHandler(svc))
		sr.With(rbac.Require("rte:call")).Get("/get-last-error/{attemptID}", api.GetLastErrorHandler(svc))
		sr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/sco/{scoID}/attempts", api.ListSCOAttemptsHandler(svc))
		sr.With(rbac.Require("progress:view-own")).
			Get("/course/{courseID}/progress", api.CourseProgressHandler(svc))
		sr.With(rbac.Require("sco:create")).Post("/courses/{courseID}/scos", api.CreateSCOHandler(store))
		sr.With(rbac.Require("sco:view")).Get("/courses/{courseID}/scos", api.ListCourseSCOsHandler(store))
	})
	return r
}

func seed(t *testing.T) scorm.Store {
	t.Helper()
	ctx := context.Background()
	store := scorm.NewInMemoryStore()
	if err := store.PutCourse(ctx, scorm.Course{ID: "c1", Title: "Forklift Training"}); err != nil {
		t.Fatal(err)
	}
	err := store.PutSCO(ctx, scorm.SCO{
		ID: "s1", CourseID: "c1", Identifier: "forklift-01", Title: "Unit 1",
		LaunchURL: "unit1/index.html", ScormType: "sco",
	})
	if err != nil {
		t.Fatal(err)
	}
	err = store.PutEnrollment(ctx, scorm.Enrollment{ID: "e1", UserID: "alice", CourseID: "c1", IsActive: true})
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func doJSON(t *testing.T, h http.Handler, method, target, body string, out any) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if out != nil && rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("bad response body %q: %v", rec.Body.String(), err)
		}
	}
	return rec
}

func TestRTEFlowOverHTTP(t *testing.T) {
	store := seed(t)
	svc := scorm.NewService(store, nil)
	r := newRouter(store, svc, "alice", "learner")

	var init scorm.InitializeResult
	rec := doJSON(t, r, "POST", "/scorm/initialize/s1", "", &init)
	if rec.Code != http.StatusOK || !init.Success {
		t.Fatalf("initialize: code=%d body=%s", rec.Code, rec.Body.String())
	}
	id := init.AttemptID

	var set scorm.Result
	doJSON(t, r, "POST", "/scorm/set-value/"+id+"?element=cmi.location&value=page-2", "", &set)
	if !set.Success {
		t.Fatalf("set-value: %+v", set)
	}

	var get scorm.GetValueResult
	doJSON(t, r, "POST", "/scorm/get-value/"+id+"?element=cmi.location", "", &get)
	if get.Value != "page-2" {
		t.Fatalf("get-value = %q", get.Value)
	}

	var fin scorm.Result
	doJSON(t, r, "POST", "/scorm/finish/"+id, "", &fin)
	if !fin.Success {
		t.Fatalf("finish: %+v", fin)
	}

	// protocol errors still ship with HTTP 200
	var afterGet scorm.GetValueResult
	rec = doJSON(t, r, "POST", "/scorm/get-value/"+id+"?element=cmi.location", "", &afterGet)
	if rec.Code != http.StatusOK || afterGet.Success || afterGet.ErrorCode != scorm.ErrCodeGetAfterTermination {
		t.Fatalf("post-termination get: code=%d res=%+v", rec.Code, afterGet)
	}

	var attempts []scorm.Attempt
	doJSON(t, r, "GET", "/scorm/sco/s1/attempts", "", &attempts)
	if len(attempts) != 1 || attempts[0].ID != id {
		t.Fatalf("attempts listing: %+v", attempts)
	}

	var progress scorm.CourseProgress
	doJSON(t, r, "GET", "/scorm/course/c1/progress", "", &progress)
	if len(progress.SCOs) != 1 || progress.SCOs[0].CompletionStatus != scorm.CompletionIncomplete {
		t.Fatalf("course progress: %+v", progress)
	}
}

func TestProgressUnknownCourseIs404(t *testing.T) {
	store := seed(t)
	svc := scorm.NewService(store, nil)
	r := newRouter(store, svc, "alice", "learner")
	rec := doJSON(t, r, "GET", "/scorm/course/ghost/progress", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("code = %d, want 404", rec.Code)
	}
}

func TestAuthoringValidation(t *testing.T) {
	store := seed(t)
	svc := scorm.NewService(store, nil)
	r := newRouter(store, svc, "bob", "teacher")

	rec := doJSON(t, r, "POST", "/scorm/courses/c1/scos",
		`{"identifier":"forklift-02","title":"Unit 2","launch_url":"unit2/index.html","scorm_type":"quiz"}`, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad scorm_type accepted: code=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, r, "POST", "/scorm/courses/c1/scos",
		`{"identifier":"forklift-02","title":"Unit 2","launch_url":"unit2/index.html","scorm_type":"sco","order_index":2}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("valid sco rejected: code=%d body=%s", rec.Code, rec.Body.String())
	}

	scos, err := store.ListCourseSCOs(context.Background(), "c1")
	if err != nil || len(scos) != 2 {
		t.Fatalf("sco not persisted: %v %d", err, len(scos))
	}
}

func TestLearnerCannotAuthor(t *testing.T) {
	store := seed(t)
	svc := scorm.NewService(store, nil)
	r := newRouter(store, svc, "alice", "learner")
	rec := doJSON(t, r, "POST", "/scorm/courses/c1/scos",
		`{"identifier":"x","title":"X","launch_url":"x.html","scorm_type":"sco"}`, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("learner authored a SCO: code=%d", rec.Code)
	}
}
