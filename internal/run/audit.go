package run

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/model"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/store"
)

// trail collects a run's audit entries until the run result is stored.
type trail struct {
	m         *Manager
	runID     string
	processID string
	entries   []model.AuditEntry
}

func (t *trail) add(e model.AuditEntry) {
	e.Seq = t.m.clock.Next()
	e.RunID = t.runID
	e.ProcessID = t.processID
	e.CreatedAt = t.m.now()
	t.entries = append(t.entries, e)
}

func (t *trail) node(n model.NodeResult) {
	e := model.AuditEntry{NodeID: n.NodeID, After: string(n.Status)}
	switch n.Status {
	case model.NodeSucceeded:
		e.Action = model.AuditNodeSucceeded
		e.Severity = model.SeverityInfo
		e.Message = fmt.Sprintf("%s succeeded", n.Type)
	case model.NodeDependencyFailed:
		e.Action = model.AuditNodeSkipped
		e.Severity = model.SeverityWarning
	default:
		e.Action = model.AuditNodeFailed
		e.Severity = model.SeverityError
	}
	if n.Error != nil {
		e.RuleID = n.Error.RuleID
		e.Message = fmt.Sprintf("%s: %s", n.Error.Code, n.Error.Message)
	}
	t.add(e)
}

// check records warning and error findings; successes are not audited.
func (t *trail) check(c model.CheckResult) {
	if c.Severity != model.SeverityWarning && c.Severity != model.SeverityError {
		return
	}
	msg := c.Message
	if c.Code != "" {
		msg = c.Code + ": " + msg
	}
	if c.Entity != "" {
		msg = fmt.Sprintf("[%s] %s", c.Entity, msg)
	}
	t.add(model.AuditEntry{
		NodeID:   c.NodeID,
		RuleID:   c.RuleID,
		Action:   model.AuditCheck,
		Severity: c.Severity,
		Before:   c.Check,
		Message:  msg,
	})
}

// audit builds a standalone entry outside any run trail.
func (m *Manager) audit(runID, processID, action string, sev model.Severity, msg string) model.AuditEntry {
	return model.AuditEntry{
		Seq:       m.clock.Next(),
		RunID:     runID,
		ProcessID: processID,
		Action:    action,
		Severity:  sev,
		Message:   msg,
		CreatedAt: m.now(),
	}
}

// balanceChanges folds deltas onto the ledger snapshot the run read. Rows
// whose net delta is zero are left alone. The result is ordered by
// (period, entity, account).
//
// A row keeps one currency: the existing row's, else the owning entity's
// functional currency. A delta in any other currency fails the whole fold
// with a *CurrencyMismatchError.
func balanceChanges(snapshot []model.LedgerBalance, entities map[string]model.Entity, deltas []model.LedgerDelta) ([]store.BalanceChange, error) {
	rows := make(map[model.BalanceKey]model.LedgerBalance, len(snapshot))
	for _, b := range snapshot {
		rows[b.Key()] = b
	}

	changes := make(map[model.BalanceKey]*store.BalanceChange)
	for _, d := range deltas {
		k := d.Key()
		ch, ok := changes[k]
		if !ok {
			ch = &store.BalanceChange{Key: k, Currency: d.Currency, Before: decimal.Zero}
			if ent, known := entities[k.EntityCode]; known && ent.FunctionalCurrency != "" {
				ch.Currency = ent.FunctionalCurrency
			}
			if row, exists := rows[k]; exists {
				ch.Before = row.Amount
				ch.Version = row.Version
				ch.Currency = row.Currency
			}
			ch.After = ch.Before
			changes[k] = ch
		}
		if d.Currency != ch.Currency {
			return nil, &CurrencyMismatchError{Key: k, Ledger: ch.Currency, Delta: d.Currency, NodeID: d.NodeID}
		}
		ch.After = ch.After.Add(d.Amount)
	}

	out := make([]store.BalanceChange, 0, len(changes))
	for _, ch := range changes {
		if ch.After.Equal(ch.Before) {
			continue
		}
		out = append(out, *ch)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Key, out[j].Key
		if a.Period != b.Period {
			return a.Period < b.Period
		}
		if a.EntityCode != b.EntityCode {
			return a.EntityCode < b.EntityCode
		}
		return a.AccountCode < b.AccountCode
	})
	return out, nil
}
