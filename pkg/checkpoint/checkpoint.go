// Package checkpoint durably persists PER-loop state so a run can resume
// after a crash or a human checkpoint pause. It ports the SQL shape and
// error semantics of the original agent's checkpointer.py onto hector's
// multi-dialect DBPool (pkg/config.DBPool), instead of the session-service
// -backed checkpoint concept hector itself uses.
package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kadirpekel/ikoma/pkg/config"
)

// Record is one persisted step of a run's state.
type Record struct {
	RunID     string
	Step      int
	State     map[string]any
	CreatedAt time.Time
}

// ErrNotFound is returned by Update/Delete when no row matches (run_id, step).
var ErrNotFound = errors.New("checkpoint: record not found")

// ErrDuplicateStep is returned by Save when (run_id, step) already exists.
var ErrDuplicateStep = errors.New("checkpoint: duplicate step for run")

// Store is a dialect-aware SQL checkpoint store. The same *Store works
// against SQLite, Postgres, and MySQL; the dialect is fixed at
// construction, matching v2/ratelimit's SQLStore pattern.
type Store struct {
	db      *sql.DB
	dialect string
}

// Open builds a new *Store for cfg's DSN on every call, creating the table
// if it does not exist yet. The underlying *sql.DB comes from pool, so
// Stores for the same DSN share one connection pool; GetSingleton is the
// entry point that caches one *Store per DSN.
func Open(ctx context.Context, pool *config.DBPool, cfg *config.DatabaseConfig) (*Store, error) {
	db, err := pool.Get(cfg)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: open pool: %w", err)
	}

	s := &Store{db: db, dialect: cfg.Dialect()}
	if err := s.initSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	var ddl string
	switch s.dialect {
	case "postgres":
		ddl = `CREATE TABLE IF NOT EXISTS checkpoints (
			run_id TEXT NOT NULL,
			step INTEGER NOT NULL,
			state TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (run_id, step)
		)`
	case "mysql":
		ddl = `CREATE TABLE IF NOT EXISTS checkpoints (
			run_id VARCHAR(255) NOT NULL,
			step INTEGER NOT NULL,
			state TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (run_id, step)
		)`
	default: // sqlite
		ddl = `CREATE TABLE IF NOT EXISTS checkpoints (
			run_id TEXT NOT NULL,
			step INTEGER NOT NULL,
			state TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (run_id, step)
		)`
	}
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("checkpoint: create table: %w", err)
	}

	idx := `CREATE INDEX IF NOT EXISTS idx_checkpoints_run_step ON checkpoints (run_id, step)`
	if _, err := s.db.ExecContext(ctx, idx); err != nil {
		return fmt.Errorf("checkpoint: create index: %w", err)
	}

	if s.dialect == "sqlite" {
		if _, err := s.db.ExecContext(ctx, "PRAGMA user_version = 1"); err != nil {
			return fmt.Errorf("checkpoint: set schema version: %w", err)
		}
	}
	return nil
}

func (s *Store) placeholder(n int) string {
	if s.dialect == "postgres" {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// Save inserts a new checkpoint step. Returns ErrDuplicateStep if (run_id,
// step) already exists.
func (s *Store) Save(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec.State)
	if err != nil {
		return fmt.Errorf("checkpoint: marshal state: %w", err)
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := fmt.Sprintf(
		"INSERT INTO checkpoints (run_id, step, state, created_at) VALUES (%s, %s, %s, %s)",
		s.placeholder(1), s.placeholder(2), s.placeholder(3), s.placeholder(4))

	_, err = s.db.ExecContext(ctx, query, rec.RunID, rec.Step, string(data), createdAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: run %s step %d", ErrDuplicateStep, rec.RunID, rec.Step)
		}
		return fmt.Errorf("checkpoint: insert: %w", err)
	}
	return nil
}

// List returns every step recorded for runID, ordered by step ascending.
func (s *Store) List(ctx context.Context, runID string) ([]Record, error) {
	query := fmt.Sprintf(
		"SELECT run_id, step, state, created_at FROM checkpoints WHERE run_id = %s ORDER BY step",
		s.placeholder(1))

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: select: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var stateJSON string
		var createdAt any
		if err := rows.Scan(&rec.RunID, &rec.Step, &stateJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("checkpoint: scan: %w", err)
		}
		if err := json.Unmarshal([]byte(stateJSON), &rec.State); err != nil {
			return nil, fmt.Errorf("checkpoint: unmarshal state for run %s step %d: %w", rec.RunID, rec.Step, err)
		}
		switch v := createdAt.(type) {
		case time.Time:
			rec.CreatedAt = v
		case string, []byte:
			s := fmt.Sprintf("%s", v)
			for _, layout := range []string{"2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05"} {
				if t, perr := time.Parse(layout, s); perr == nil {
					rec.CreatedAt = t
					break
				}
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Update replaces the state for an existing (run_id, step). Returns
// ErrNotFound if no row matches.
func (s *Store) Update(ctx context.Context, runID string, step int, state map[string]any) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("checkpoint: marshal state: %w", err)
	}

	query := fmt.Sprintf(
		"UPDATE checkpoints SET state = %s WHERE run_id = %s AND step = %s",
		s.placeholder(1), s.placeholder(2), s.placeholder(3))

	res, err := s.db.ExecContext(ctx, query, string(data), runID, step)
	if err != nil {
		return fmt.Errorf("checkpoint: update: %w", err)
	}
	return s.requireAffected(res, runID, step)
}

// DeleteRun removes every step recorded for runID.
func (s *Store) DeleteRun(ctx context.Context, runID string) error {
	query := fmt.Sprintf("DELETE FROM checkpoints WHERE run_id = %s", s.placeholder(1))
	_, err := s.db.ExecContext(ctx, query, runID)
	if err != nil {
		return fmt.Errorf("checkpoint: delete run: %w", err)
	}
	return nil
}

// DeleteStep removes a single (run_id, step). Returns ErrNotFound if no row
// matches.
func (s *Store) DeleteStep(ctx context.Context, runID string, step int) error {
	query := fmt.Sprintf("DELETE FROM checkpoints WHERE run_id = %s AND step = %s",
		s.placeholder(1), s.placeholder(2))
	res, err := s.db.ExecContext(ctx, query, runID, step)
	if err != nil {
		return fmt.Errorf("checkpoint: delete step: %w", err)
	}
	return s.requireAffected(res, runID, step)
}

func (s *Store) requireAffected(res sql.Result, runID string, step int) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checkpoint: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: run %s step %d", ErrNotFound, runID, step)
	}
	return nil
}

// isUniqueViolation recognizes the primary-key conflict error text across
// sqlite3, pq, and go-sql-driver/mysql without importing their error types
// directly (keeping Store driver-agnostic beyond the registered DSNs).
func isUniqueViolation(err error) bool {
	msg := err.Error()
	for _, marker := range []string{
		"UNIQUE constraint failed", // sqlite3
		"duplicate key value",      // postgres
		"Duplicate entry",          // mysql
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
