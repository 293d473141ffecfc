package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens a DB and ensures schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:courseforge.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/courseforge?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schemaSQLite = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS courses (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  is_published INTEGER NOT NULL DEFAULT 0,
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS scos (
  id TEXT PRIMARY KEY,
  course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
  identifier TEXT NOT NULL UNIQUE,          -- from imsmanifest.xml
  title TEXT NOT NULL,
  launch_url TEXT NOT NULL,
  scorm_type TEXT NOT NULL,                 -- sco|asset
  order_index INTEGER NOT NULL DEFAULT 0,
  prerequisites_json TEXT NOT NULL DEFAULT '[]',
  max_time_allowed INTEGER NOT NULL DEFAULT 0,
  time_limit_action TEXT NOT NULL DEFAULT '',
  completion_threshold REAL,
  min_normalized_measure REAL,
  mastery_score REAL,
  launch_data TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS enrollments (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
  is_active INTEGER NOT NULL DEFAULT 1,
  enrolled_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS learner_attempts (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  sco_id TEXT NOT NULL REFERENCES scos(id) ON DELETE CASCADE,
  enrollment_id TEXT NOT NULL REFERENCES enrollments(id),
  attempt_number INTEGER NOT NULL DEFAULT 1,
  session_state TEXT NOT NULL DEFAULT 'uninitialized',
  completion_status TEXT NOT NULL DEFAULT 'not attempted',
  success_status TEXT NOT NULL DEFAULT 'unknown',
  score_raw REAL,
  score_min REAL,
  score_max REAL,
  score_scaled REAL,
  session_time INTEGER NOT NULL DEFAULT 0,
  total_time INTEGER NOT NULL DEFAULT 0,
  location TEXT NOT NULL DEFAULT '',
  suspend_data TEXT NOT NULL DEFAULT '',
  entry TEXT NOT NULL DEFAULT '',
  exit_mode TEXT NOT NULL DEFAULT '',
  progress_measure REAL,
  started_at INTEGER NOT NULL,
  last_accessed_at INTEGER NOT NULL,
  completed_at INTEGER
);

-- At most one open attempt per (user, SCO); closes the double-Initialize race.
CREATE UNIQUE INDEX IF NOT EXISTS uq_open_attempt
  ON learner_attempts (user_id, sco_id)
  WHERE completion_status IN ('not attempted','incomplete');

CREATE INDEX IF NOT EXISTS idx_attempts_user_sco
  ON learner_attempts (user_id, sco_id, attempt_number);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS courses (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  is_published BOOLEAN NOT NULL DEFAULT FALSE,
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS scos (
  id TEXT PRIMARY KEY,
  course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
  identifier TEXT NOT NULL UNIQUE,
  title TEXT NOT NULL,
  launch_url TEXT NOT NULL,
  scorm_type TEXT NOT NULL,
  order_index INTEGER NOT NULL DEFAULT 0,
  prerequisites_json TEXT NOT NULL DEFAULT '[]',
  max_time_allowed BIGINT NOT NULL DEFAULT 0,
  time_limit_action TEXT NOT NULL DEFAULT '',
  completion_threshold DOUBLE PRECISION,
  min_normalized_measure DOUBLE PRECISION,
  mastery_score DOUBLE PRECISION,
  launch_data TEXT NOT NULL DEFAULT '',
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS enrollments (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
  is_active BOOLEAN NOT NULL DEFAULT TRUE,
  enrolled_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS learner_attempts (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  sco_id TEXT NOT NULL REFERENCES scos(id) ON DELETE CASCADE,
  enrollment_id TEXT NOT NULL REFERENCES enrollments(id),
  attempt_number INTEGER NOT NULL DEFAULT 1,
  session_state TEXT NOT NULL DEFAULT 'uninitialized',
  completion_status TEXT NOT NULL DEFAULT 'not attempted',
  success_status TEXT NOT NULL DEFAULT 'unknown',
  score_raw DOUBLE PRECISION,
  score_min DOUBLE PRECISION,
  score_max DOUBLE PRECISION,
  score_scaled DOUBLE PRECISION,
  session_time BIGINT NOT NULL DEFAULT 0,
  total_time BIGINT NOT NULL DEFAULT 0,
  location TEXT NOT NULL DEFAULT '',
  suspend_data TEXT NOT NULL DEFAULT '',
  entry TEXT NOT NULL DEFAULT '',
  exit_mode TEXT NOT NULL DEFAULT '',
  progress_measure DOUBLE PRECISION,
  started_at BIGINT NOT NULL,
  last_accessed_at BIGINT NOT NULL,
  completed_at BIGINT
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_open_attempt
  ON learner_attempts (user_id, sco_id)
  WHERE completion_status IN ('not attempted','incomplete');

CREATE INDEX IF NOT EXISTS idx_attempts_user_sco
  ON learner_attempts (user_id, sco_id, attempt_number);
`
