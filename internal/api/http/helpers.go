package http

import (
	"encoding/json"
	nethttp "net/http"

	authmw "github.com/courseforge/lms/internal/auth/middleware"
	"github.com/courseforge/lms/internal/rbac"
	"github.com/courseforge/lms/internal/scorm"
)

func writeJSON(w nethttp.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// learnerFromContext builds the SCORM principal from the claims the JWT
// middleware placed in context.
func learnerFromContext(r *nethttp.Request) (scorm.Learner, bool) {
	sub := rbac.SubjectFromContext(r.Context())
	if sub == "" {
		return scorm.Learner{}, false
	}
	name := authmw.DisplayNameFromContext(r.Context())
	if name == "" {
		name = sub
	}
	return scorm.Learner{ID: sub, Name: name}, true
}
