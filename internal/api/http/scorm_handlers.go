package http

import (
	"errors"
	nethttp "net/http"

	"github.com/go-chi/chi/v5"

	"github.com/courseforge/lms/internal/scorm"
)

// SCORM RTE endpoints. Protocol errors ride inside the JSON body with the
// SCORM error code; the HTTP status stays 200 so a conformant player can
// poll return codes the way the SCORM API expects. Plain listings below use
// ordinary HTTP statuses.

// POST /scorm/initialize/{scoID}
func InitializeHandler(svc *scorm.Service) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		learner, ok := learnerFromContext(r)
		if !ok {
			nethttp.Error(w, "unauthorized", nethttp.StatusUnauthorized)
			return
		}
		res := svc.Initialize(r.Context(), learner, chi.URLParam(r, "scoID"))
		writeJSON(w, nethttp.StatusOK, res)
	}
}

// POST /scorm/get-value/{attemptID}?element=cmi.location
func GetValueHandler(svc *scorm.Service) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		learner, ok := learnerFromContext(r)
		if !ok {
			nethttp.Error(w, "unauthorized", nethttp.StatusUnauthorized)
			return
		}
		element := r.URL.Query().Get("element")
		res := svc.GetValue(r.Context(), learner, chi.URLParam(r, "attemptID"), element)
		writeJSON(w, nethttp.StatusOK, res)
	}
}

// POST /scorm/set-value/{attemptID}?element=cmi.location&value=page-4
func SetValueHandler(svc *scorm.Service) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		learner, ok := learnerFromContext(r)
		if !ok {
			nethttp.Error(w, "unauthorized", nethttp.StatusUnauthorized)
			return
		}
		q := r.URL.Query()
		res := svc.SetValue(r.Context(), learner, chi.URLParam(r, "attemptID"),
			q.Get("element"), q.Get("value"))
		writeJSON(w, nethttp.StatusOK, res)
	}
}

// POST /scorm/commit/{attemptID}
func CommitHandler(svc *scorm.Service) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		learner, ok := learnerFromContext(r)
		if !ok {
			nethttp.Error(w, "unauthorized", nethttp.StatusUnauthorized)
			return
		}
		res := svc.Commit(r.Context(), learner, chi.URLParam(r, "attemptID"))
		writeJSON(w, nethttp.StatusOK, res)
	}
}

// POST /scorm/finish/{attemptID}
func FinishHandler(svc *scorm.Service) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		learner, ok := learnerFromContext(r)
		if !ok {
			nethttp.Error(w, "unauthorized", nethttp.StatusUnauthorized)
			return
		}
		res := svc.Finish(r.Context(), learner, chi.URLParam(r, "attemptID"))
		writeJSON(w, nethttp.StatusOK, res)
	}
}

// GET /scorm/get-last-error/{attemptID}
func GetLastErrorHandler(svc *scorm.Service) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if _, ok := learnerFromContext(r); !ok {
			nethttp.Error(w, "unauthorized", nethttp.StatusUnauthorized)
			return
		}
		writeJSON(w, nethttp.StatusOK, svc.GetLastError(chi.URLParam(r, "attemptID")))
	}
}

// GET /scorm/sco/{scoID}/attempts — the caller's attempts, newest first.
func ListSCOAttemptsHandler(svc *scorm.Service) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		learner, ok := learnerFromContext(r)
		if !ok {
			nethttp.Error(w, "unauthorized", nethttp.StatusUnauthorized)
			return
		}
		attempts, err := svc.ListAttempts(r.Context(), learner, chi.URLParam(r, "scoID"))
		if err != nil {
			nethttp.Error(w, err.Error(), nethttp.StatusInternalServerError)
			return
		}
		if attempts == nil {
			attempts = []scorm.Attempt{}
		}
		writeJSON(w, nethttp.StatusOK, attempts)
	}
}

// GET /scorm/course/{courseID}/progress
func CourseProgressHandler(svc *scorm.Service) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		learner, ok := learnerFromContext(r)
		if !ok {
			nethttp.Error(w, "unauthorized", nethttp.StatusUnauthorized)
			return
		}
		progress, err := svc.CourseProgress(r.Context(), learner, chi.URLParam(r, "courseID"))
		if err != nil {
			if errors.Is(err, scorm.ErrCourseNotFound) {
				nethttp.Error(w, "course not found", nethttp.StatusNotFound)
				return
			}
			nethttp.Error(w, err.Error(), nethttp.StatusInternalServerError)
			return
		}
		writeJSON(w, nethttp.StatusOK, progress)
	}
}
