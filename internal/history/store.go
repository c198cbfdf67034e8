// Package history records enrichment runs and their per-iteration
// steps in sqlite, so past runs stay inspectable from the CLI.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

const (
	StatusRunning = "running"
	StatusDone    = "done"
	StatusError   = "error"
)

type RunRecord struct {
	ID        int64
	Guid      string
	Prompt    string
	Status    string
	LastStep  string
	CreatedAt string
	UpdatedAt string
}

type StepRecord struct {
	ID        int64
	RunID     int64
	Iteration int
	Step      string
	Output    string
	Error     string
	CreatedAt string
}

type Store struct {
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=3000;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma %s: %w", p, err)
		}
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func initSchema(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    guid TEXT NOT NULL,
    prompt TEXT,
    status TEXT NOT NULL,
    last_step TEXT,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS steps (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    iteration INTEGER NOT NULL,
    step TEXT NOT NULL,
    output TEXT,
    error TEXT,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_steps_run ON steps(run_id, iteration);
CREATE INDEX IF NOT EXISTS idx_runs_guid ON runs(guid);
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// StartRun opens a run row for guid and returns its id.
func (s *Store) StartRun(ctx context.Context, guid, prompt string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (guid, prompt, status) VALUES (?, ?, ?)`,
		guid, prompt, StatusRunning)
	if err != nil {
		return 0, fmt.Errorf("start run: %w", err)
	}
	return res.LastInsertId()
}

// AppendStep records one loop iteration. stepErr may be empty.
func (s *Store) AppendStep(ctx context.Context, runID int64, iteration int, step, output, stepErr string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO steps (run_id, iteration, step, output, error) VALUES (?, ?, ?, ?, ?)`,
		runID, iteration, step, output, stepErr)
	if err != nil {
		return fmt.Errorf("append step: %w", err)
	}
	return nil
}

// FinishRun closes a run with its final status and last executed step.
func (s *Store) FinishRun(ctx context.Context, runID int64, status, lastStep string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, last_step = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		status, lastStep, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, guid, prompt, status, COALESCE(last_step, ''), created_at, updated_at
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.ID, &r.Guid, &r.Prompt, &r.Status, &r.LastStep, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListSteps returns all steps of a run in iteration order.
func (s *Store) ListSteps(ctx context.Context, runID int64) ([]StepRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, iteration, step, COALESCE(output, ''), COALESCE(error, ''), created_at
		 FROM steps WHERE run_id = ? ORDER BY iteration ASC, id ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}
	defer rows.Close()

	var out []StepRecord
	for rows.Next() {
		var r StepRecord
		if err := rows.Scan(&r.ID, &r.RunID, &r.Iteration, &r.Step, &r.Output, &r.Error, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
