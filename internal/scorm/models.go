package scorm

import "time"

// Completion status vocabulary (cmi.completion_status).
const (
	CompletionNotAttempted = "not attempted"
	CompletionIncomplete   = "incomplete"
	CompletionCompleted    = "completed"
	CompletionUnknown      = "unknown"
)

// Success status vocabulary (cmi.success_status).
const (
	SuccessPassed  = "passed"
	SuccessFailed  = "failed"
	SuccessUnknown = "unknown"
)

// Entry vocabulary (cmi.entry).
const (
	EntryAbInitio = "ab-initio"
	EntryResume   = "resume"
)

// Session state of an attempt. Persisted so Initialize/Commit/Finish
// preconditions are checked directly instead of inferred from row existence.
const (
	SessionUninitialized = "uninitialized"
	SessionActive        = "active"
	SessionTerminated    = "terminated"
)

type Course struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	IsPublished bool   `json:"is_published"`
}

// SCO is one launchable content unit from a SCORM package manifest.
// Created at authoring time; never mutated during a learner session.
type SCO struct {
	ID       string `json:"id"`
	CourseID string `json:"course_id"`

	Identifier string `json:"identifier"` // from imsmanifest.xml
	Title      string `json:"title"`
	LaunchURL  string `json:"launch_url"`
	ScormType  string `json:"scorm_type"` // "sco" or "asset"

	OrderIndex      int      `json:"order_index"`
	Prerequisites   []string `json:"prerequisites,omitempty"` // SCO identifiers
	MaxTimeAllowed  int64    `json:"max_time_allowed,omitempty"`
	TimeLimitAction string   `json:"time_limit_action,omitempty"`

	CompletionThreshold  *float64 `json:"completion_threshold,omitempty"`
	MinNormalizedMeasure *float64 `json:"min_normalized_measure,omitempty"`
	MasteryScore         *float64 `json:"mastery_score,omitempty"`

	LaunchData string `json:"launch_data,omitempty"` // opaque, handed to the player

	CreatedAt int64 `json:"created_at,omitempty"`
}

// Attempt is one learner's run through one SCO, numbered per (user, SCO)
// and scoped to an enrollment. It is the durable CMI mirror: all session
// state lives here, not in process memory.
type Attempt struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	SCOID        string `json:"sco_id"`
	EnrollmentID string `json:"enrollment_id"`

	AttemptNumber int    `json:"attempt_number"`
	SessionState  string `json:"session_state"`

	CompletionStatus string   `json:"completion_status"`
	SuccessStatus    string   `json:"success_status"`
	ScoreRaw         *float64 `json:"score_raw,omitempty"`
	ScoreMin         *float64 `json:"score_min,omitempty"`
	ScoreMax         *float64 `json:"score_max,omitempty"`
	ScoreScaled      *float64 `json:"score_scaled,omitempty"`

	SessionTime int64 `json:"session_time"` // seconds, current session
	TotalTime   int64 `json:"total_time"`   // seconds, cumulative

	Location        string   `json:"location,omitempty"`     // bookmark
	SuspendData     string   `json:"suspend_data,omitempty"` // opaque resume blob
	Entry           string   `json:"entry,omitempty"`        // ab-initio | resume | ""
	ExitMode        string   `json:"exit,omitempty"`         // time-out | suspend | logout | normal | ""
	ProgressMeasure *float64 `json:"progress_measure,omitempty"`

	StartedAt      time.Time  `json:"started_at"`
	LastAccessedAt time.Time  `json:"last_accessed_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// Open reports whether this attempt can still be resumed by Initialize.
func (a Attempt) Open() bool {
	return a.CompletionStatus == CompletionIncomplete || a.CompletionStatus == CompletionNotAttempted
}

// Enrollment links a learner to a course. Enrollment CRUD lives elsewhere;
// the RTE only needs the active flag as a launch precondition.
type Enrollment struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	CourseID string `json:"course_id"`
	IsActive bool   `json:"is_active"`
}

// SCOProgress is one row of the course progress projection: the learner's
// latest attempt per SCO, or vocabulary defaults when none exists.
type SCOProgress struct {
	SCOID            string   `json:"sco_id"`
	Title            string   `json:"title"`
	CompletionStatus string   `json:"completion_status"`
	SuccessStatus    string   `json:"success_status"`
	ScoreScaled      *float64 `json:"score_scaled"`
	TotalTime        int64    `json:"total_time"`
}

type CourseProgress struct {
	CourseID string        `json:"course_id"`
	SCOs     []SCOProgress `json:"scos"`
}
