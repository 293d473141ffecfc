package scorm_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/courseforge/lms/internal/db"
	"github.com/courseforge/lms/internal/scorm"
)

var sqliteSeq int

// openSQLiteStore spins up an in-memory sqlite database with the real
// schema, so the SQL store runs against the same DDL the gateway boots with.
func openSQLiteStore(t *testing.T) *scorm.SQLStore {
	t.Helper()
	sqliteSeq++
	dsn := fmt.Sprintf("file:scormtest%d.db?mode=memory&cache=shared", sqliteSeq)
	handle, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { handle.Close() })
	return scorm.NewSQLStore(handle, "sqlite")
}

func seedSQL(t *testing.T, store *scorm.SQLStore) {
	t.Helper()
	ctx := context.Background()
	if err := store.PutCourse(ctx, scorm.Course{ID: courseID, Title: "Safety Basics", IsPublished: true}); err != nil {
		t.Fatal(err)
	}
	mastery := 0.8
	if err := store.PutSCO(ctx, scorm.SCO{
		ID: scoID, CourseID: courseID, Identifier: "safety-module-7",
		Title: "Module 7", LaunchURL: "content/module7/index.html",
		ScormType: "sco", OrderIndex: 7, LaunchData: "lang=en", MasteryScore: &mastery,
	}); err != nil {
		t.Fatal(err)
	}
	if err := store.PutEnrollment(ctx, scorm.Enrollment{
		ID: "enr-1", UserID: learnerID, CourseID: courseID, IsActive: true,
	}); err != nil {
		t.Fatal(err)
	}
}

func TestSQLStoreRoundTrip(t *testing.T) {
	store := openSQLiteStore(t)
	seedSQL(t, store)
	ctx := context.Background()

	sco, err := store.GetSCO(ctx, scoID)
	if err != nil {
		t.Fatal(err)
	}
	if sco.MasteryScore == nil || *sco.MasteryScore != 0.8 || sco.LaunchData != "lang=en" {
		t.Fatalf("sco round trip: %+v", sco)
	}

	svc := scorm.NewService(store, nil)
	learner := scorm.Learner{ID: learnerID, Name: "Ada Learner"}

	res := svc.Initialize(ctx, learner, scoID)
	if !res.Success {
		t.Fatalf("initialize: %+v", res)
	}
	id := res.AttemptID

	svc.SetValue(ctx, learner, id, "cmi.session_time", "PT1H30M15S")
	svc.SetValue(ctx, learner, id, "cmi.score.scaled", "0.85")
	svc.SetValue(ctx, learner, id, "cmi.suspend_data", "lesson=4;slide=12")
	if r := svc.Commit(ctx, learner, id); !r.Success {
		t.Fatalf("commit: %+v", r)
	}

	a, err := store.GetAttempt(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if a.SessionTime != 5415 || a.TotalTime != 5415 {
		t.Errorf("times = %d/%d, want 5415/5415", a.SessionTime, a.TotalTime)
	}
	if a.ScoreScaled == nil || *a.ScoreScaled != 0.85 {
		t.Errorf("score_scaled = %v", a.ScoreScaled)
	}
	if a.SuspendData != "lesson=4;slide=12" {
		t.Errorf("suspend_data = %q", a.SuspendData)
	}

	if r := svc.Finish(ctx, learner, id); !r.Success {
		t.Fatalf("finish: %+v", r)
	}
	a, _ = store.GetAttempt(ctx, id)
	if a.SessionState != scorm.SessionTerminated || a.CompletionStatus != scorm.CompletionIncomplete {
		t.Errorf("post-finish state: %+v", a)
	}
}

func TestSQLStoreOpenAttemptUniqueIndex(t *testing.T) {
	store := openSQLiteStore(t)
	seedSQL(t, store)
	ctx := context.Background()
	svc := scorm.NewService(store, nil)
	learner := scorm.Learner{ID: learnerID, Name: "Ada Learner"}

	first := svc.Initialize(ctx, learner, scoID)
	if !first.Success {
		t.Fatalf("initialize: %+v", first)
	}

	// A raced insert against the open attempt trips the partial unique index.
	dup := scorm.Attempt{
		ID: "dup", UserID: learnerID, SCOID: scoID, EnrollmentID: "enr-1",
		AttemptNumber: 2, SessionState: scorm.SessionActive,
		CompletionStatus: scorm.CompletionNotAttempted, SuccessStatus: scorm.SuccessUnknown,
		Entry: scorm.EntryAbInitio, StartedAt: time.Now(), LastAccessedAt: time.Now(),
	}
	if err := store.InsertAttempt(ctx, dup); err != scorm.ErrOpenAttemptExists {
		t.Fatalf("duplicate open attempt err = %v, want ErrOpenAttemptExists", err)
	}

	// Initialize resolves the conflict by resuming the surviving attempt.
	second := svc.Initialize(ctx, learner, scoID)
	if !second.Success || second.AttemptID != first.AttemptID {
		t.Fatalf("conflict resume: %+v vs %+v", first, second)
	}
}

func TestSQLStoreLatestAttemptProjection(t *testing.T) {
	store := openSQLiteStore(t)
	seedSQL(t, store)
	ctx := context.Background()
	svc := scorm.NewService(store, nil)
	learner := scorm.Learner{ID: learnerID, Name: "Ada Learner"}

	first := svc.Initialize(ctx, learner, scoID)
	svc.SetValue(ctx, learner, first.AttemptID, "cmi.completion_status", "completed")
	svc.SetValue(ctx, learner, first.AttemptID, "cmi.success_status", "passed")
	svc.Finish(ctx, learner, first.AttemptID)

	second := svc.Initialize(ctx, learner, scoID)
	if second.AttemptID == first.AttemptID {
		t.Fatal("expected a new attempt after completion")
	}

	latest, err := store.LatestAttempt(ctx, learnerID, scoID)
	if err != nil {
		t.Fatal(err)
	}
	if latest.ID != second.AttemptID || latest.AttemptNumber != 2 {
		t.Fatalf("latest = %+v", latest)
	}

	list, err := store.ListAttempts(ctx, learnerID, scoID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].AttemptNumber != 2 || list[1].AttemptNumber != 1 {
		t.Fatalf("list ordering: %+v", list)
	}
}
