package scorm

import (
	"context"
	"errors"
)

var (
	ErrCourseNotFound     = errors.New("course not found")
	ErrSCONotFound        = errors.New("sco not found")
	ErrAttemptNotFound    = errors.New("attempt not found")
	ErrEnrollmentNotFound = errors.New("enrollment not found")

	// ErrOpenAttemptExists is returned by InsertAttempt when another open
	// attempt for the same (user, SCO) already holds the partial unique
	// index. Initialize handles it by re-reading and resuming.
	ErrOpenAttemptExists = errors.New("open attempt already exists")
)

type Store interface {
	PutCourse(ctx context.Context, c Course) error
	GetCourse(ctx context.Context, id string) (Course, error)

	PutSCO(ctx context.Context, s SCO) error
	GetSCO(ctx context.Context, id string) (SCO, error)
	ListCourseSCOs(ctx context.Context, courseID string) ([]SCO, error)

	PutEnrollment(ctx context.Context, e Enrollment) error
	// GetActiveEnrollment returns the learner's active enrollment for a
	// course, or ErrEnrollmentNotFound.
	GetActiveEnrollment(ctx context.Context, userID, courseID string) (Enrollment, error)

	// FindOpenAttempt returns the learner's open attempt for a SCO
	// (completion_status in {not attempted, incomplete}), or ErrAttemptNotFound.
	FindOpenAttempt(ctx context.Context, userID, scoID string) (Attempt, error)
	CountAttempts(ctx context.Context, userID, scoID string) (int, error)
	InsertAttempt(ctx context.Context, a Attempt) error
	GetAttempt(ctx context.Context, id string) (Attempt, error)
	SaveAttempt(ctx context.Context, a Attempt) error

	// ListAttempts returns the learner's attempts for a SCO, newest
	// attempt_number first.
	ListAttempts(ctx context.Context, userID, scoID string) ([]Attempt, error)
	// LatestAttempt returns the highest-numbered attempt, or ErrAttemptNotFound.
	LatestAttempt(ctx context.Context, userID, scoID string) (Attempt, error)
}
