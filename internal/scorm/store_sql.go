package scorm

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// SQLStore persists the SCORM schema over database/sql. Placeholders use
// the $n form, which both the pgx stdlib driver and modernc sqlite accept.
type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

func (s *SQLStore) PutCourse(ctx context.Context, c Course) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO courses (id,title,is_published,created_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, is_published=EXCLUDED.is_published`,
		c.ID, c.Title, c.IsPublished, time.Now().Unix())
	return err
}

func (s *SQLStore) GetCourse(ctx context.Context, id string) (Course, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,title,is_published FROM courses WHERE id=$1`, id)
	var c Course
	if err := row.Scan(&c.ID, &c.Title, &c.IsPublished); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Course{}, ErrCourseNotFound
		}
		return Course{}, err
	}
	return c, nil
}

func (s *SQLStore) PutSCO(ctx context.Context, sc SCO) error {
	pj, err := json.Marshal(sc.Prerequisites)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO scos
		(id,course_id,identifier,title,launch_url,scorm_type,order_index,prerequisites_json,
		 max_time_allowed,time_limit_action,completion_threshold,min_normalized_measure,
		 mastery_score,launch_data,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		ON CONFLICT (id) DO UPDATE SET
		 title=EXCLUDED.title, launch_url=EXCLUDED.launch_url, scorm_type=EXCLUDED.scorm_type,
		 order_index=EXCLUDED.order_index, prerequisites_json=EXCLUDED.prerequisites_json,
		 max_time_allowed=EXCLUDED.max_time_allowed, time_limit_action=EXCLUDED.time_limit_action,
		 completion_threshold=EXCLUDED.completion_threshold,
		 min_normalized_measure=EXCLUDED.min_normalized_measure,
		 mastery_score=EXCLUDED.mastery_score, launch_data=EXCLUDED.launch_data`,
		sc.ID, sc.CourseID, sc.Identifier, sc.Title, sc.LaunchURL, sc.ScormType,
		sc.OrderIndex, string(pj), sc.MaxTimeAllowed, sc.TimeLimitAction,
		nullFloat(sc.CompletionThreshold), nullFloat(sc.MinNormalizedMeasure),
		nullFloat(sc.MasteryScore), sc.LaunchData, time.Now().Unix())
	return err
}

const scoColumns = `id,course_id,identifier,title,launch_url,scorm_type,order_index,
	prerequisites_json,max_time_allowed,time_limit_action,completion_threshold,
	min_normalized_measure,mastery_score,launch_data,created_at`

func scanSCO(row interface{ Scan(...any) error }) (SCO, error) {
	var (
		sc                 SCO
		pjson              string
		threshold, minNorm sql.NullFloat64
		mastery            sql.NullFloat64
	)
	err := row.Scan(&sc.ID, &sc.CourseID, &sc.Identifier, &sc.Title, &sc.LaunchURL,
		&sc.ScormType, &sc.OrderIndex, &pjson, &sc.MaxTimeAllowed, &sc.TimeLimitAction,
		&threshold, &minNorm, &mastery, &sc.LaunchData, &sc.CreatedAt)
	if err != nil {
		return SCO{}, err
	}
	if pjson != "" && pjson != "null" {
		if err := json.Unmarshal([]byte(pjson), &sc.Prerequisites); err != nil {
			return SCO{}, err
		}
	}
	sc.CompletionThreshold = floatPtr(threshold)
	sc.MinNormalizedMeasure = floatPtr(minNorm)
	sc.MasteryScore = floatPtr(mastery)
	return sc, nil
}

func (s *SQLStore) GetSCO(ctx context.Context, id string) (SCO, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+scoColumns+` FROM scos WHERE id=$1`, id)
	sc, err := scanSCO(row)
	if errors.Is(err, sql.ErrNoRows) {
		return SCO{}, ErrSCONotFound
	}
	return sc, err
}

func (s *SQLStore) ListCourseSCOs(ctx context.Context, courseID string) ([]SCO, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+scoColumns+` FROM scos WHERE course_id=$1 ORDER BY order_index, id`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SCO
	for rows.Next() {
		sc, err := scanSCO(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (s *SQLStore) PutEnrollment(ctx context.Context, e Enrollment) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO enrollments (id,user_id,course_id,is_active,enrolled_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (id) DO UPDATE SET is_active=EXCLUDED.is_active`,
		e.ID, e.UserID, e.CourseID, e.IsActive, time.Now().Unix())
	return err
}

func (s *SQLStore) GetActiveEnrollment(ctx context.Context, userID, courseID string) (Enrollment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,user_id,course_id,is_active FROM enrollments
		WHERE user_id=$1 AND course_id=$2 AND is_active`, userID, courseID)
	var e Enrollment
	if err := row.Scan(&e.ID, &e.UserID, &e.CourseID, &e.IsActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Enrollment{}, ErrEnrollmentNotFound
		}
		return Enrollment{}, err
	}
	return e, nil
}

const attemptColumns = `id,user_id,sco_id,enrollment_id,attempt_number,session_state,
	completion_status,success_status,score_raw,score_min,score_max,score_scaled,
	session_time,total_time,location,suspend_data,entry,exit_mode,progress_measure,
	started_at,last_accessed_at,completed_at`

func scanAttempt(row interface{ Scan(...any) error }) (Attempt, error) {
	var (
		a                        Attempt
		raw, min, max, scaled    sql.NullFloat64
		progress                 sql.NullFloat64
		started, accessed, compl sql.NullInt64
	)
	err := row.Scan(&a.ID, &a.UserID, &a.SCOID, &a.EnrollmentID, &a.AttemptNumber,
		&a.SessionState, &a.CompletionStatus, &a.SuccessStatus, &raw, &min, &max, &scaled,
		&a.SessionTime, &a.TotalTime, &a.Location, &a.SuspendData, &a.Entry, &a.ExitMode,
		&progress, &started, &accessed, &compl)
	if err != nil {
		return Attempt{}, err
	}
	a.ScoreRaw = floatPtr(raw)
	a.ScoreMin = floatPtr(min)
	a.ScoreMax = floatPtr(max)
	a.ScoreScaled = floatPtr(scaled)
	a.ProgressMeasure = floatPtr(progress)
	if started.Valid {
		a.StartedAt = time.Unix(started.Int64, 0).UTC()
	}
	if accessed.Valid {
		a.LastAccessedAt = time.Unix(accessed.Int64, 0).UTC()
	}
	if compl.Valid {
		t := time.Unix(compl.Int64, 0).UTC()
		a.CompletedAt = &t
	}
	return a, nil
}

func (s *SQLStore) FindOpenAttempt(ctx context.Context, userID, scoID string) (Attempt, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+attemptColumns+` FROM learner_attempts
		WHERE user_id=$1 AND sco_id=$2 AND completion_status IN ('not attempted','incomplete')
		ORDER BY attempt_number DESC LIMIT 1`, userID, scoID)
	a, err := scanAttempt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, ErrAttemptNotFound
	}
	return a, err
}

func (s *SQLStore) CountAttempts(ctx context.Context, userID, scoID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM learner_attempts
		WHERE user_id=$1 AND sco_id=$2`, userID, scoID).Scan(&n)
	return n, err
}

func (s *SQLStore) InsertAttempt(ctx context.Context, a Attempt) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO learner_attempts (`+attemptColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)`,
		a.ID, a.UserID, a.SCOID, a.EnrollmentID, a.AttemptNumber, a.SessionState,
		a.CompletionStatus, a.SuccessStatus, nullFloat(a.ScoreRaw), nullFloat(a.ScoreMin),
		nullFloat(a.ScoreMax), nullFloat(a.ScoreScaled), a.SessionTime, a.TotalTime,
		a.Location, a.SuspendData, a.Entry, a.ExitMode, nullFloat(a.ProgressMeasure),
		a.StartedAt.Unix(), a.LastAccessedAt.Unix(), nullTime(a.CompletedAt))
	if err != nil && isUniqueViolation(err) {
		return ErrOpenAttemptExists
	}
	return err
}

func (s *SQLStore) GetAttempt(ctx context.Context, id string) (Attempt, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+attemptColumns+` FROM learner_attempts WHERE id=$1`, id)
	a, err := scanAttempt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, ErrAttemptNotFound
	}
	return a, err
}

func (s *SQLStore) SaveAttempt(ctx context.Context, a Attempt) error {
	res, err := s.db.ExecContext(ctx, `UPDATE learner_attempts SET
		session_state=$1, completion_status=$2, success_status=$3,
		score_raw=$4, score_min=$5, score_max=$6, score_scaled=$7,
		session_time=$8, total_time=$9, location=$10, suspend_data=$11,
		entry=$12, exit_mode=$13, progress_measure=$14,
		last_accessed_at=$15, completed_at=$16
		WHERE id=$17`,
		a.SessionState, a.CompletionStatus, a.SuccessStatus,
		nullFloat(a.ScoreRaw), nullFloat(a.ScoreMin), nullFloat(a.ScoreMax), nullFloat(a.ScoreScaled),
		a.SessionTime, a.TotalTime, a.Location, a.SuspendData,
		a.Entry, a.ExitMode, nullFloat(a.ProgressMeasure),
		a.LastAccessedAt.Unix(), nullTime(a.CompletedAt), a.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrAttemptNotFound
	}
	return nil
}

func (s *SQLStore) ListAttempts(ctx context.Context, userID, scoID string) ([]Attempt, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+attemptColumns+` FROM learner_attempts
		WHERE user_id=$1 AND sco_id=$2 ORDER BY attempt_number DESC`, userID, scoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLStore) LatestAttempt(ctx context.Context, userID, scoID string) (Attempt, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+attemptColumns+` FROM learner_attempts
		WHERE user_id=$1 AND sco_id=$2 ORDER BY attempt_number DESC LIMIT 1`, userID, scoID)
	a, err := scanAttempt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, ErrAttemptNotFound
	}
	return a, err
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || // sqlite
		strings.Contains(msg, "duplicate key") // postgres
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	f := n.Float64
	return &f
}

func nullTime(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}
