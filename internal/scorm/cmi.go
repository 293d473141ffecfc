package scorm

import (
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"
)

// SuspendDataLimit is the SCORM 2004 cap on cmi.suspend_data, in characters.
const SuspendDataLimit = 64000

// Learner is the authenticated principal a session belongs to, used for the
// read-only cmi.learner_* elements.
type Learner struct {
	ID   string
	Name string
}

// cmiElement is one recognized entry of the data model: a formatter for
// GetValue and an optional mutator for SetValue. Elements with a nil set are
// read-only; writes to them are accepted and ignored, like writes to any
// element outside the registry. A set error surfaces as error code 405.
type cmiElement struct {
	get func(a *Attempt, l Learner) string
	set func(a *Attempt, value string, now time.Time) error
}

var cmiElements = map[string]cmiElement{
	"cmi.completion_status": {
		get: func(a *Attempt, _ Learner) string { return a.CompletionStatus },
		set: func(a *Attempt, value string, now time.Time) error {
			switch value {
			case CompletionCompleted, CompletionIncomplete, CompletionNotAttempted, CompletionUnknown:
				a.CompletionStatus = value
				if value == CompletionCompleted && a.CompletedAt == nil {
					t := now
					a.CompletedAt = &t
				}
			}
			return nil
		},
	},
	"cmi.success_status": {
		get: func(a *Attempt, _ Learner) string { return a.SuccessStatus },
		set: func(a *Attempt, value string, _ time.Time) error {
			switch value {
			case SuccessPassed, SuccessFailed, SuccessUnknown:
				a.SuccessStatus = value
			}
			return nil
		},
	},
	"cmi.score.raw": {
		get: func(a *Attempt, _ Learner) string { return floatString(a.ScoreRaw) },
		set: func(a *Attempt, value string, _ time.Time) error {
			return setOptFloat(&a.ScoreRaw, value)
		},
	},
	"cmi.score.min": {
		get: func(a *Attempt, _ Learner) string { return floatString(a.ScoreMin) },
		set: func(a *Attempt, value string, _ time.Time) error {
			return setOptFloat(&a.ScoreMin, value)
		},
	},
	"cmi.score.max": {
		get: func(a *Attempt, _ Learner) string { return floatString(a.ScoreMax) },
		set: func(a *Attempt, value string, _ time.Time) error {
			return setOptFloat(&a.ScoreMax, value)
		},
	},
	"cmi.score.scaled": {
		get: func(a *Attempt, _ Learner) string { return floatString(a.ScoreScaled) },
		// Accepted without clamping to [-1.0, 1.0]; known validation gap,
		// kept for compatibility with the deployed behavior.
		set: func(a *Attempt, value string, _ time.Time) error {
			return setOptFloat(&a.ScoreScaled, value)
		},
	},
	"cmi.location": {
		get: func(a *Attempt, _ Learner) string { return a.Location },
		set: func(a *Attempt, value string, _ time.Time) error {
			a.Location = value
			return nil
		},
	},
	"cmi.suspend_data": {
		get: func(a *Attempt, _ Learner) string { return a.SuspendData },
		set: func(a *Attempt, value string, _ time.Time) error {
			if utf8.RuneCountInString(value) > SuspendDataLimit {
				return fmt.Errorf("suspend_data exceeds %d characters", SuspendDataLimit)
			}
			a.SuspendData = value
			return nil
		},
	},
	"cmi.entry": {
		get: func(a *Attempt, _ Learner) string { return a.Entry },
	},
	"cmi.exit": {
		get: func(a *Attempt, _ Learner) string { return a.ExitMode },
		set: func(a *Attempt, value string, _ time.Time) error {
			a.ExitMode = value
			return nil
		},
	},
	"cmi.session_time": {
		get: func(a *Attempt, _ Learner) string { return FormatDuration(a.SessionTime) },
		set: func(a *Attempt, value string, _ time.Time) error {
			// Session time accumulates into total_time on every set; a
			// malformed token is ignored rather than rejected.
			if secs, ok := ParseSessionTime(value); ok {
				a.SessionTime = secs
				a.TotalTime += secs
			}
			return nil
		},
	},
	"cmi.total_time": {
		get: func(a *Attempt, _ Learner) string { return FormatDuration(a.TotalTime) },
	},
	"cmi.progress_measure": {
		get: func(a *Attempt, _ Learner) string { return floatString(a.ProgressMeasure) },
		set: func(a *Attempt, value string, _ time.Time) error {
			return setOptFloat(&a.ProgressMeasure, value)
		},
	},
	"cmi.learner_id": {
		get: func(_ *Attempt, l Learner) string { return l.ID },
	},
	"cmi.learner_name": {
		get: func(_ *Attempt, l Learner) string { return l.Name },
	},
	"cmi.mode": {
		get: func(_ *Attempt, _ Learner) string { return "normal" },
	},
	"cmi.credit": {
		get: func(_ *Attempt, _ Learner) string { return "credit" },
	},
}

func floatString(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'g', -1, 64)
}

// setOptFloat parses value into *dst; an empty string clears to null, a
// non-numeric token is a type mismatch.
func setOptFloat(dst **float64, value string) error {
	if value == "" {
		*dst = nil
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("not a number: %q", value)
	}
	*dst = &f
	return nil
}
