package scorm

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SCORM RTE error codes. These are wire-level strings polled by content
// players and conformance suites; they must stay byte-for-byte as defined
// by the SCORM 2004 4th Edition spec.
const (
	ErrCodeNoError                = "0"
	ErrCodeGeneralException       = "101"
	ErrCodeGetAfterTermination    = "123"
	ErrCodeSetAfterTermination    = "133"
	ErrCodeCommitAfterTermination = "143"
	ErrCodeNotFound               = "201" // invalid SCO or attempt id
	ErrCodeNotAuthorized          = "401" // not enrolled
	ErrCodeTypeMismatch           = "405" // bad value, also data size exceeded
	ErrCodeCommitFailure          = "391"
)

// Result is the protocol-level outcome of an RTE call. The player polls
// these fields; RTE operations never surface Go errors to the transport.
type Result struct {
	Success      bool   `json:"success"`
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message,omitempty"`
}

type InitializeResult struct {
	Result
	AttemptID    string   `json:"attempt_id,omitempty"`
	LaunchData   string   `json:"launch_data"`
	MasteryScore *float64 `json:"mastery_score"`
}

type GetValueResult struct {
	Result
	Value string `json:"value"`
}

// Service implements the SCORM 2004 RTE call sequence over a Store. Each
// call is an independent request/response operation; all session state
// lives in the durable attempt record.
type Service struct {
	store Store
	errs  *lastErrorRegister
	log   *zap.Logger
	now   func() time.Time
}

func NewService(store Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store: store,
		errs:  newLastErrorRegister(),
		log:   log,
		now:   time.Now,
	}
}

func ok() Result { return Result{Success: true, ErrorCode: ErrCodeNoError} }

func fail(code, msg string) Result {
	return Result{Success: false, ErrorCode: code, ErrorMessage: msg}
}

// Initialize opens a session: it resumes the learner's open attempt for the
// SCO if one exists, otherwise creates attempt number priorCount+1 ab-initio.
// Exactly one attempt row is created or touched.
func (s *Service) Initialize(ctx context.Context, learner Learner, scoID string) InitializeResult {
	sco, err := s.store.GetSCO(ctx, scoID)
	if err != nil {
		if errors.Is(err, ErrSCONotFound) {
			return InitializeResult{Result: fail(ErrCodeNotFound, "Invalid SCO ID")}
		}
		s.log.Error("sco lookup failed", zap.String("sco_id", scoID), zap.Error(err))
		return InitializeResult{Result: fail(ErrCodeGeneralException, err.Error())}
	}

	enrollment, err := s.store.GetActiveEnrollment(ctx, learner.ID, sco.CourseID)
	if err != nil {
		if errors.Is(err, ErrEnrollmentNotFound) {
			return InitializeResult{Result: fail(ErrCodeNotAuthorized, "User not enrolled")}
		}
		s.log.Error("enrollment lookup failed", zap.String("user_id", learner.ID), zap.Error(err))
		return InitializeResult{Result: fail(ErrCodeGeneralException, err.Error())}
	}

	attempt, err := s.store.FindOpenAttempt(ctx, learner.ID, scoID)
	switch {
	case err == nil:
		// Session resume, not a new attempt.
		attempt.Entry = EntryResume
		attempt.SessionState = SessionActive
		attempt.LastAccessedAt = s.now()
		if err := s.store.SaveAttempt(ctx, attempt); err != nil {
			return InitializeResult{Result: fail(ErrCodeGeneralException, err.Error())}
		}
	case errors.Is(err, ErrAttemptNotFound):
		attempt, err = s.newAttempt(ctx, learner, scoID, enrollment.ID)
		if err != nil {
			return InitializeResult{Result: fail(ErrCodeGeneralException, err.Error())}
		}
	default:
		return InitializeResult{Result: fail(ErrCodeGeneralException, err.Error())}
	}

	s.errs.record(attempt.ID, ErrCodeNoError)
	return InitializeResult{
		Result:       ok(),
		AttemptID:    attempt.ID,
		LaunchData:   sco.LaunchData,
		MasteryScore: sco.MasteryScore,
	}
}

func (s *Service) newAttempt(ctx context.Context, learner Learner, scoID, enrollmentID string) (Attempt, error) {
	prior, err := s.store.CountAttempts(ctx, learner.ID, scoID)
	if err != nil {
		return Attempt{}, err
	}
	now := s.now()
	attempt := Attempt{
		ID:               uuid.NewString(),
		UserID:           learner.ID,
		SCOID:            scoID,
		EnrollmentID:     enrollmentID,
		AttemptNumber:    prior + 1,
		SessionState:     SessionActive,
		CompletionStatus: CompletionNotAttempted,
		SuccessStatus:    SuccessUnknown,
		Entry:            EntryAbInitio,
		StartedAt:        now,
		LastAccessedAt:   now,
	}
	if err := s.store.InsertAttempt(ctx, attempt); err != nil {
		if errors.Is(err, ErrOpenAttemptExists) {
			// Lost a double-Initialize race (two tabs); resume the winner.
			existing, ferr := s.store.FindOpenAttempt(ctx, learner.ID, scoID)
			if ferr != nil {
				return Attempt{}, err
			}
			existing.Entry = EntryResume
			existing.SessionState = SessionActive
			existing.LastAccessedAt = now
			if serr := s.store.SaveAttempt(ctx, existing); serr != nil {
				return Attempt{}, serr
			}
			return existing, nil
		}
		return Attempt{}, err
	}
	return attempt, nil
}

// ownedAttempt fetches an attempt and checks it belongs to the caller.
// A foreign attempt reads as not-found so existence is not leaked.
func (s *Service) ownedAttempt(ctx context.Context, learner Learner, attemptID string) (Attempt, bool) {
	a, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil || a.UserID != learner.ID {
		return Attempt{}, false
	}
	return a, true
}

// GetValue reads one cmi.* element. Elements outside the registry read as
// an empty string with success: players probe speculatively and a hard
// error would abort conformant content.
func (s *Service) GetValue(ctx context.Context, learner Learner, attemptID, element string) GetValueResult {
	a, owned := s.ownedAttempt(ctx, learner, attemptID)
	if !owned {
		s.errs.record(attemptID, ErrCodeNotFound)
		return GetValueResult{Result: fail(ErrCodeNotFound, "")}
	}
	if a.SessionState == SessionTerminated {
		s.errs.record(attemptID, ErrCodeGetAfterTermination)
		return GetValueResult{Result: fail(ErrCodeGetAfterTermination, "session terminated")}
	}
	var value string
	if el, known := cmiElements[element]; known && el.get != nil {
		value = el.get(&a, learner)
	}
	s.errs.record(attemptID, ErrCodeNoError)
	return GetValueResult{Result: ok(), Value: value}
}

// SetValue writes one cmi.* element. Writes are applied to the durable
// attempt record immediately; Commit remains the protocol-level durability
// checkpoint. Unrecognized elements are accepted and ignored.
func (s *Service) SetValue(ctx context.Context, learner Learner, attemptID, element, value string) Result {
	a, owned := s.ownedAttempt(ctx, learner, attemptID)
	if !owned {
		s.errs.record(attemptID, ErrCodeNotFound)
		return fail(ErrCodeNotFound, "")
	}
	if a.SessionState == SessionTerminated {
		s.errs.record(attemptID, ErrCodeSetAfterTermination)
		return fail(ErrCodeSetAfterTermination, "session terminated")
	}
	if el, known := cmiElements[element]; known && el.set != nil {
		if err := el.set(&a, value, s.now()); err != nil {
			s.errs.record(attemptID, ErrCodeTypeMismatch)
			return fail(ErrCodeTypeMismatch, err.Error())
		}
	}
	a.LastAccessedAt = s.now()
	if err := s.store.SaveAttempt(ctx, a); err != nil {
		// The non-throwing contract downgrades internal failures.
		s.log.Warn("set-value save failed", zap.String("attempt_id", attemptID), zap.Error(err))
		s.errs.record(attemptID, ErrCodeTypeMismatch)
		return fail(ErrCodeTypeMismatch, err.Error())
	}
	s.errs.record(attemptID, ErrCodeNoError)
	return ok()
}

// Commit persists the attempt record. Idempotent from the caller's side; a
// persistence failure returns 391 and leaves retry to the player.
func (s *Service) Commit(ctx context.Context, learner Learner, attemptID string) Result {
	a, owned := s.ownedAttempt(ctx, learner, attemptID)
	if !owned {
		s.errs.record(attemptID, ErrCodeNotFound)
		return fail(ErrCodeNotFound, "")
	}
	if a.SessionState == SessionTerminated {
		s.errs.record(attemptID, ErrCodeCommitAfterTermination)
		return fail(ErrCodeCommitAfterTermination, "session terminated")
	}
	if err := s.store.SaveAttempt(ctx, a); err != nil {
		s.log.Warn("commit failed", zap.String("attempt_id", attemptID), zap.Error(err))
		s.errs.record(attemptID, ErrCodeCommitFailure)
		return fail(ErrCodeCommitFailure, err.Error())
	}
	s.errs.record(attemptID, ErrCodeNoError)
	return ok()
}

// Finish terminates the session: a still "not attempted" attempt becomes
// "incomplete" so no terminated session reads as untouched. Calling Finish
// again is a safe no-op beyond re-stamping last-accessed.
func (s *Service) Finish(ctx context.Context, learner Learner, attemptID string) Result {
	a, owned := s.ownedAttempt(ctx, learner, attemptID)
	if !owned {
		s.errs.record(attemptID, ErrCodeNotFound)
		return fail(ErrCodeNotFound, "")
	}
	a.LastAccessedAt = s.now()
	if a.SessionState != SessionTerminated {
		if a.CompletionStatus == CompletionNotAttempted {
			a.CompletionStatus = CompletionIncomplete
		}
		a.SessionState = SessionTerminated
	}
	if err := s.store.SaveAttempt(ctx, a); err != nil {
		s.log.Warn("finish failed", zap.String("attempt_id", attemptID), zap.Error(err))
		s.errs.record(attemptID, ErrCodeCommitFailure)
		return fail(ErrCodeCommitFailure, err.Error())
	}
	s.errs.record(attemptID, ErrCodeNoError)
	return ok()
}

// GetLastError reports the most recent non-success code for the attempt,
// cleared by any successful call.
func (s *Service) GetLastError(attemptID string) Result {
	return Result{Success: true, ErrorCode: s.errs.last(attemptID)}
}

// ListAttempts returns the caller's attempts for a SCO, newest first. This
// is a plain read-side listing, outside the RTE protocol surface.
func (s *Service) ListAttempts(ctx context.Context, learner Learner, scoID string) ([]Attempt, error) {
	return s.store.ListAttempts(ctx, learner.ID, scoID)
}
