package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/model"
)

// AppendAudit appends entries to the audit log in one transaction.
func (s *Store) AppendAudit(ctx context.Context, entries ...model.AuditEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertAudit(ctx, tx, entries); err != nil {
		return err
	}
	return tx.Commit()
}

func insertAudit(ctx context.Context, tx *sql.Tx, entries []model.AuditEntry) error {
	for _, e := range entries {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO audit_log (seq, run_id, process_id, node_id, rule_id, action, before, after,
				severity, message, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, e.Seq, e.RunID, e.ProcessID, e.NodeID, e.RuleID, e.Action, e.Before, e.After,
			string(e.Severity), e.Message, formatTime(e.CreatedAt))
		if err != nil {
			return fmt.Errorf("write audit entry %d: %w", e.Seq, err)
		}
	}
	return nil
}

// ListAudit returns a process's audit trail ordered by seq.
func (s *Store) ListAudit(ctx context.Context, processID string) ([]model.AuditEntry, error) {
	return s.queryAudit(ctx, `
		SELECT seq, run_id, process_id, node_id, rule_id, action, before, after, severity, message, created_at
		FROM audit_log
		WHERE process_id = ?
		ORDER BY seq ASC, id ASC
	`, processID)
}

// ListRunAudit returns one run's audit entries ordered by seq.
func (s *Store) ListRunAudit(ctx context.Context, runID string) ([]model.AuditEntry, error) {
	return s.queryAudit(ctx, `
		SELECT seq, run_id, process_id, node_id, rule_id, action, before, after, severity, message, created_at
		FROM audit_log
		WHERE run_id = ?
		ORDER BY seq ASC, id ASC
	`, runID)
}

// MaxAuditSeq returns the highest audit sequence number written, or 0.
func (s *Store) MaxAuditSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM audit_log`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("read max audit seq: %w", err)
	}
	return seq.Int64, nil
}

func (s *Store) queryAudit(ctx context.Context, query string, arg string) ([]model.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	entries := []model.AuditEntry{}
	for rows.Next() {
		var e model.AuditEntry
		var severity, created string
		if err := rows.Scan(&e.Seq, &e.RunID, &e.ProcessID, &e.NodeID, &e.RuleID, &e.Action,
			&e.Before, &e.After, &severity, &e.Message, &created); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Severity = model.Severity(severity)
		if e.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit log: %w", err)
	}
	return entries, nil
}
