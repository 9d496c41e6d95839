package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/model"
)

// SaveRun stores a finished run result. Run results are written once; a
// second save of the same run id fails.
func (s *Store) SaveRun(ctx context.Context, r model.RunResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertRun(ctx, tx, r); err != nil {
		return err
	}
	return tx.Commit()
}

// SaveRunWithAudit stores a run result and its audit trail together.
func (s *Store) SaveRunWithAudit(ctx context.Context, r model.RunResult, audit []model.AuditEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertAudit(ctx, tx, audit); err != nil {
		return err
	}
	if err := insertRun(ctx, tx, r); err != nil {
		return err
	}
	return tx.Commit()
}

func insertRun(ctx context.Context, tx *sql.Tx, r model.RunResult) error {
	data, err := model.MarshalCanonical(r)
	if err != nil {
		return fmt.Errorf("marshal run %s: %w", r.RunID, err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO run_result (run_id, process_id, run_type, period, status, committed, digest,
			result, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.RunID, r.ProcessID, string(r.RunType), r.Period, string(r.Status), boolInt(r.Committed),
		r.Digest, string(data), formatTime(r.StartedAt), formatTime(r.FinishedAt))
	if err != nil {
		return fmt.Errorf("write run %s: %w", r.RunID, err)
	}
	return nil
}

// LoadRun reads a run result by id.
// Returns ErrNotFound if the run does not exist.
func (s *Store) LoadRun(ctx context.Context, runID string) (model.RunResult, error) {
	row := s.db.QueryRowContext(ctx, `SELECT result FROM run_result WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RunResult{}, fmt.Errorf("run %q: %w", runID, ErrNotFound)
	}
	return r, err
}

// LatestRun returns the most recently started run of a process.
// Returns ErrNotFound if the process has no runs.
func (s *Store) LatestRun(ctx context.Context, processID string) (model.RunResult, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT result FROM run_result
		WHERE process_id = ?
		ORDER BY started_at DESC, run_id COLLATE BINARY DESC
		LIMIT 1
	`, processID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RunResult{}, fmt.Errorf("runs of process %q: %w", processID, ErrNotFound)
	}
	return r, err
}

// ListRuns returns a process's runs, oldest first.
func (s *Store) ListRuns(ctx context.Context, processID string) ([]model.RunResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT result FROM run_result
		WHERE process_id = ?
		ORDER BY started_at ASC, run_id COLLATE BINARY ASC
	`, processID)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []model.RunResult{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (model.RunResult, error) {
	var data string
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.RunResult{}, err
		}
		return model.RunResult{}, fmt.Errorf("scan run: %w", err)
	}
	var r model.RunResult
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return model.RunResult{}, fmt.Errorf("unmarshal run: %w", err)
	}
	return r, nil
}
