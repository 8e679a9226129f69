// Package history records each CLI run and its steps in a local SQLite
// database. It is an audit trail only; reconciliation never reads it.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Status of a run or step.
type Status string

const (
	StatusRunning Status = "running"
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Run is one CLI invocation.
type Run struct {
	ID       string
	Command  string
	Started  time.Time
	Ended    time.Time
	Status   Status
	Appended int
	Skipped  int
	Error    string
	Steps    []Step
}

// Step is one pipeline step of a run.
type Step struct {
	Name     string
	Status   Status
	Detail   string
	Error    string
	Duration time.Duration
}

// Store is the SQLite-backed run history.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open creates or opens the database at path. ":memory:" is accepted.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one connection keeps ":memory:" a single database
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initialize() error {
	runs := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		command TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		ended_at INTEGER,
		status TEXT NOT NULL,
		appended INTEGER DEFAULT 0,
		skipped INTEGER DEFAULT 0,
		error TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`
	steps := `
	CREATE TABLE IF NOT EXISTS steps (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(run_id),
		name TEXT NOT NULL,
		status TEXT NOT NULL,
		detail TEXT,
		error TEXT,
		duration_ms INTEGER DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_steps_run ON steps(run_id);
	`
	for _, table := range []string{runs, steps} {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Begin records the start of a run.
func (s *Store) Begin(ctx context.Context, id, command string, started time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, command, started_at, status) VALUES (?, ?, ?, ?)`,
		id, command, started.UnixMilli(), StatusRunning)
	if err != nil {
		return fmt.Errorf("record run start: %w", err)
	}
	return nil
}

// AddStep records a finished step of run id.
func (s *Store) AddStep(ctx context.Context, id string, step Step) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO steps (run_id, name, status, detail, error, duration_ms) VALUES (?, ?, ?, ?, ?, ?)`,
		id, step.Name, step.Status, step.Detail, step.Error, step.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("record step %s: %w", step.Name, err)
	}
	return nil
}

// Finish records the outcome of run.ID.
func (s *Store) Finish(ctx context.Context, run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET ended_at = ?, status = ?, appended = ?, skipped = ?, error = ? WHERE run_id = ?`,
		run.Ended.UnixMilli(), run.Status, run.Appended, run.Skipped, run.Error, run.ID)
	if err != nil {
		return fmt.Errorf("record run end: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("record run end: unknown run %s", run.ID)
	}
	return nil
}

// Recent returns the latest runs, newest first, with their steps.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, command, started_at, ended_at, status, appended, skipped, error
		 FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	var runs []Run
	for rows.Next() {
		var r Run
		var started int64
		var ended sql.NullInt64
		var status string
		var errText sql.NullString
		if err := rows.Scan(&r.ID, &r.Command, &started, &ended, &status, &r.Appended, &r.Skipped, &errText); err != nil {
			rows.Close()
			return nil, err
		}
		r.Started = time.UnixMilli(started)
		if ended.Valid {
			r.Ended = time.UnixMilli(ended.Int64)
		}
		r.Status = Status(status)
		r.Error = errText.String
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range runs {
		steps, err := s.steps(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Steps = steps
	}
	return runs, nil
}

func (s *Store) steps(ctx context.Context, id string) ([]Step, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, status, detail, error, duration_ms FROM steps WHERE run_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()

	var out []Step
	for rows.Next() {
		var st Step
		var status string
		var detail, errText sql.NullString
		var ms int64
		if err := rows.Scan(&st.Name, &status, &detail, &errText, &ms); err != nil {
			return nil, err
		}
		st.Status = Status(status)
		st.Detail = detail.String
		st.Error = errText.String
		st.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, st)
	}
	return out, rows.Err()
}
