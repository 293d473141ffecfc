package scorm

import (
	"context"
	"errors"
)

// CourseProgress projects the learner's latest attempt per SCO in a course
// (highest attempt_number, not the best-scoring one) for learner-facing
// progress reporting. SCOs without attempts report the vocabulary defaults.
func (s *Service) CourseProgress(ctx context.Context, learner Learner, courseID string) (CourseProgress, error) {
	if _, err := s.store.GetCourse(ctx, courseID); err != nil {
		return CourseProgress{}, err
	}
	scos, err := s.store.ListCourseSCOs(ctx, courseID)
	if err != nil {
		return CourseProgress{}, err
	}
	out := CourseProgress{CourseID: courseID, SCOs: make([]SCOProgress, 0, len(scos))}
	for _, sco := range scos {
		row := SCOProgress{
			SCOID:            sco.ID,
			Title:            sco.Title,
			CompletionStatus: CompletionNotAttempted,
			SuccessStatus:    SuccessUnknown,
		}
		latest, err := s.store.LatestAttempt(ctx, learner.ID, sco.ID)
		switch {
		case err == nil:
			row.CompletionStatus = latest.CompletionStatus
			row.SuccessStatus = latest.SuccessStatus
			row.ScoreScaled = latest.ScoreScaled
			row.TotalTime = latest.TotalTime
		case errors.Is(err, ErrAttemptNotFound):
			// keep defaults
		default:
			return CourseProgress{}, err
		}
		out.SCOs = append(out.SCOs, row)
	}
	return out, nil
}
