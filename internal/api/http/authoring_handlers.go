package http

import (
	"encoding/json"
	"errors"
	nethttp "net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/courseforge/lms/internal/scorm"
)

var validate = validator.New()

type createSCORequest struct {
	Identifier           string   `json:"identifier" validate:"required,max=255"`
	Title                string   `json:"title" validate:"required,max=255"`
	LaunchURL            string   `json:"launch_url" validate:"required,max=500"`
	ScormType            string   `json:"scorm_type" validate:"required,oneof=sco asset"`
	OrderIndex           int      `json:"order_index" validate:"gte=0"`
	Prerequisites        []string `json:"prerequisites"`
	MaxTimeAllowed       int64    `json:"max_time_allowed" validate:"gte=0"`
	TimeLimitAction      string   `json:"time_limit_action"`
	CompletionThreshold  *float64 `json:"completion_threshold" validate:"omitempty,gte=0,lte=1"`
	MinNormalizedMeasure *float64 `json:"min_normalized_measure" validate:"omitempty,gte=0,lte=1"`
	MasteryScore         *float64 `json:"mastery_score"`
	LaunchData           string   `json:"launch_data"`
}

// POST /scorm/courses/{courseID}/scos — register a SCO from package
// manifest data at authoring time. SCOs are not mutated once learners hold
// attempts against them; upserts here are for re-import of the same package.
func CreateSCOHandler(store scorm.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		courseID := chi.URLParam(r, "courseID")
		if _, err := store.GetCourse(r.Context(), courseID); err != nil {
			if errors.Is(err, scorm.ErrCourseNotFound) {
				nethttp.Error(w, "course not found", nethttp.StatusNotFound)
				return
			}
			nethttp.Error(w, err.Error(), nethttp.StatusInternalServerError)
			return
		}
		var req createSCORequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			nethttp.Error(w, "bad json", nethttp.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			nethttp.Error(w, err.Error(), nethttp.StatusUnprocessableEntity)
			return
		}
		sco := scorm.SCO{
			ID:                   uuid.NewString(),
			CourseID:             courseID,
			Identifier:           req.Identifier,
			Title:                req.Title,
			LaunchURL:            req.LaunchURL,
			ScormType:            req.ScormType,
			OrderIndex:           req.OrderIndex,
			Prerequisites:        req.Prerequisites,
			MaxTimeAllowed:       req.MaxTimeAllowed,
			TimeLimitAction:      req.TimeLimitAction,
			CompletionThreshold:  req.CompletionThreshold,
			MinNormalizedMeasure: req.MinNormalizedMeasure,
			MasteryScore:         req.MasteryScore,
			LaunchData:           req.LaunchData,
		}
		if err := store.PutSCO(r.Context(), sco); err != nil {
			nethttp.Error(w, err.Error(), nethttp.StatusInternalServerError)
			return
		}
		writeJSON(w, nethttp.StatusCreated, sco)
	}
}

// POST /scorm/courses — minimal course registration so packages have a
// home; full course CRUD lives in the catalog service.
func CreateCourseHandler(store scorm.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		var req struct {
			Title       string `json:"title" validate:"required,max=255"`
			IsPublished bool   `json:"is_published"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			nethttp.Error(w, "bad json", nethttp.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			nethttp.Error(w, err.Error(), nethttp.StatusUnprocessableEntity)
			return
		}
		c := scorm.Course{ID: uuid.NewString(), Title: req.Title, IsPublished: req.IsPublished}
		if err := store.PutCourse(r.Context(), c); err != nil {
			nethttp.Error(w, err.Error(), nethttp.StatusInternalServerError)
			return
		}
		writeJSON(w, nethttp.StatusCreated, c)
	}
}

// POST /scorm/courses/{courseID}/enrollments — activates a learner for a
// course. The RTE consumes the is_active flag as a launch precondition.
func EnrollHandler(store scorm.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		courseID := chi.URLParam(r, "courseID")
		if _, err := store.GetCourse(r.Context(), courseID); err != nil {
			if errors.Is(err, scorm.ErrCourseNotFound) {
				nethttp.Error(w, "course not found", nethttp.StatusNotFound)
				return
			}
			nethttp.Error(w, err.Error(), nethttp.StatusInternalServerError)
			return
		}
		var req struct {
			UserID string `json:"user_id" validate:"required"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			nethttp.Error(w, "bad json", nethttp.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			nethttp.Error(w, err.Error(), nethttp.StatusUnprocessableEntity)
			return
		}
		e := scorm.Enrollment{ID: uuid.NewString(), UserID: req.UserID, CourseID: courseID, IsActive: true}
		if err := store.PutEnrollment(r.Context(), e); err != nil {
			nethttp.Error(w, err.Error(), nethttp.StatusInternalServerError)
			return
		}
		writeJSON(w, nethttp.StatusCreated, e)
	}
}

// GET /scorm/courses/{courseID}/scos
func ListCourseSCOsHandler(store scorm.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		courseID := chi.URLParam(r, "courseID")
		if _, err := store.GetCourse(r.Context(), courseID); err != nil {
			if errors.Is(err, scorm.ErrCourseNotFound) {
				nethttp.Error(w, "course not found", nethttp.StatusNotFound)
				return
			}
			nethttp.Error(w, err.Error(), nethttp.StatusInternalServerError)
			return
		}
		scos, err := store.ListCourseSCOs(r.Context(), courseID)
		if err != nil {
			nethttp.Error(w, err.Error(), nethttp.StatusInternalServerError)
			return
		}
		if scos == nil {
			scos = []scorm.SCO{}
		}
		writeJSON(w, nethttp.StatusOK, scos)
	}
}
