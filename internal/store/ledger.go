package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/model"
)

// PutBalance upserts a ledger row. An update bumps the row version.
func (s *Store) PutBalance(ctx context.Context, b model.LedgerBalance) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ledger_balance (entity_code, account_code, period, amount, currency, version)
		VALUES (?, ?, ?, ?, ?, 1)
		ON CONFLICT(entity_code, account_code, period) DO UPDATE SET
			amount = excluded.amount,
			currency = excluded.currency,
			version = ledger_balance.version + 1
	`, b.EntityCode, b.AccountCode, b.Period, b.Amount, b.Currency)
	if err != nil {
		return fmt.Errorf("write balance %s/%s/%s: %w", b.EntityCode, b.AccountCode, b.Period, err)
	}
	return nil
}

// ListBalances returns ledger rows ordered by (period, entity, account).
// An empty period returns every period.
func (s *Store) ListBalances(ctx context.Context, period string) ([]model.LedgerBalance, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT entity_code, account_code, period, amount, currency, version
		FROM ledger_balance
		WHERE ? = '' OR period = ?
		ORDER BY period ASC, entity_code COLLATE BINARY ASC, account_code COLLATE BINARY ASC
	`, period, period)
	if err != nil {
		return nil, fmt.Errorf("query balances: %w", err)
	}
	defer rows.Close()

	balances := []model.LedgerBalance{}
	for rows.Next() {
		var b model.LedgerBalance
		if err := rows.Scan(&b.EntityCode, &b.AccountCode, &b.Period, &b.Amount, &b.Currency, &b.Version); err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		balances = append(balances, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate balances: %w", err)
	}
	return balances, nil
}

// Balance reads a single ledger row.
// Returns ErrNotFound if the row does not exist.
func (s *Store) Balance(ctx context.Context, key model.BalanceKey) (model.LedgerBalance, error) {
	b := model.LedgerBalance{EntityCode: key.EntityCode, AccountCode: key.AccountCode, Period: key.Period}
	err := s.db.QueryRowContext(ctx, `
		SELECT amount, currency, version FROM ledger_balance
		WHERE entity_code = ? AND account_code = ? AND period = ?
	`, key.EntityCode, key.AccountCode, key.Period).Scan(&b.Amount, &b.Currency, &b.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return model.LedgerBalance{}, fmt.Errorf("balance %s/%s/%s: %w", key.EntityCode, key.AccountCode, key.Period, ErrNotFound)
	}
	if err != nil {
		return model.LedgerBalance{}, fmt.Errorf("read balance: %w", err)
	}
	return b, nil
}

// BalanceChange is one ledger row update of a commit. Version is the
// row version the run read; zero means the row did not exist.
type BalanceChange struct {
	Key      model.BalanceKey `json:"key"`
	Currency string           `json:"currency"`
	Before   decimal.Decimal  `json:"before"`
	After    decimal.Decimal  `json:"after"`
	Version  int64            `json:"version"`
}

// Commit is everything a committing run writes.
type Commit struct {
	Changes []BalanceChange
	Audit   []model.AuditEntry
	Run     model.RunResult
}

// ApplyCommit writes the ledger changes, the audit entries and the run
// result in one transaction. A row whose version no longer matches
// aborts the transaction with a *ConflictError and nothing is written.
func (s *Store) ApplyCommit(ctx context.Context, c Commit) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, ch := range c.Changes {
		if err := applyChange(ctx, tx, ch); err != nil {
			return err
		}
	}
	if err := insertAudit(ctx, tx, c.Audit); err != nil {
		return err
	}
	if err := insertRun(ctx, tx, c.Run); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func applyChange(ctx context.Context, tx *sql.Tx, ch BalanceChange) error {
	k := ch.Key
	if ch.Version == 0 {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO ledger_balance (entity_code, account_code, period, amount, currency, version)
			VALUES (?, ?, ?, ?, ?, 1)
			ON CONFLICT(entity_code, account_code, period) DO NOTHING
		`, k.EntityCode, k.AccountCode, k.Period, ch.After, ch.Currency)
		if err != nil {
			return fmt.Errorf("write balance %s/%s/%s: %w", k.EntityCode, k.AccountCode, k.Period, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return conflict(ctx, tx, ch)
		}
		return nil
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE ledger_balance
		SET amount = ?, version = version + 1
		WHERE entity_code = ? AND account_code = ? AND period = ? AND version = ?
	`, ch.After, k.EntityCode, k.AccountCode, k.Period, ch.Version)
	if err != nil {
		return fmt.Errorf("write balance %s/%s/%s: %w", k.EntityCode, k.AccountCode, k.Period, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return conflict(ctx, tx, ch)
	}
	return nil
}

func conflict(ctx context.Context, tx *sql.Tx, ch BalanceChange) error {
	k := ch.Key
	var actual int64
	err := tx.QueryRowContext(ctx, `
		SELECT version FROM ledger_balance
		WHERE entity_code = ? AND account_code = ? AND period = ?
	`, k.EntityCode, k.AccountCode, k.Period).Scan(&actual)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read balance version: %w", err)
	}
	return &ConflictError{Key: k, Expected: ch.Version, Actual: actual}
}
