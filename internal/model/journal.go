package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Tolerance is the default balancing tolerance for posted entries and checks.
var Tolerance = decimal.RequireFromString("0.01")

// JournalLine is one line of a journal entry. Amount is signed, debit positive.
type JournalLine struct {
	EntityCode  string          `json:"entity_code"`
	AccountCode string          `json:"account_code"`
	Amount      decimal.Decimal `json:"amount"`
}

// Debit returns the debit side of the line (zero for credits).
func (l JournalLine) Debit() decimal.Decimal {
	if l.Amount.IsPositive() {
		return l.Amount
	}
	return decimal.Zero
}

// Credit returns the credit side of the line as a positive amount.
func (l JournalLine) Credit() decimal.Decimal {
	if l.Amount.IsNegative() {
		return l.Amount.Neg()
	}
	return decimal.Zero
}

// JournalEntry is a set of lines posted together by one node.
type JournalEntry struct {
	ID       string        `json:"id"`
	NodeID   string        `json:"node_id"`
	RuleID   string        `json:"rule_id,omitempty"`
	Period   string        `json:"period"`
	Currency string        `json:"currency"`
	Memo     string        `json:"memo"`
	Lines    []JournalLine `json:"lines"`
}

// Net returns the signed sum of the entry's lines.
func (e JournalEntry) Net() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range e.Lines {
		sum = sum.Add(l.Amount)
	}
	return sum
}

// Balanced reports whether debits equal credits within tol.
func (e JournalEntry) Balanced(tol decimal.Decimal) bool {
	return e.Net().Abs().LessThanOrEqual(tol)
}

// Debit and Credit append a line and return the entry for chaining.
func (e *JournalEntry) Debit(entity, account string, amount decimal.Decimal) *JournalEntry {
	e.Lines = append(e.Lines, JournalLine{EntityCode: entity, AccountCode: account, Amount: amount})
	return e
}

func (e *JournalEntry) Credit(entity, account string, amount decimal.Decimal) *JournalEntry {
	e.Lines = append(e.Lines, JournalLine{EntityCode: entity, AccountCode: account, Amount: amount.Neg()})
	return e
}

// LedgerDelta is a pending change to one ledger row, in natural sign.
type LedgerDelta struct {
	EntityCode  string          `json:"entity_code"`
	AccountCode string          `json:"account_code"`
	Period      string          `json:"period"`
	Currency    string          `json:"currency"`
	Amount      decimal.Decimal `json:"amount"`
	NodeID      string          `json:"node_id"`
	EntryID     string          `json:"entry_id"`
}

// Key returns the ledger row the delta applies to.
func (d LedgerDelta) Key() BalanceKey {
	return BalanceKey{EntityCode: d.EntityCode, AccountCode: d.AccountCode, Period: d.Period}
}

// NaturalAmount converts a signed (debit positive) amount into the natural
// sign of the account class.
func NaturalAmount(class AccountClass, signed decimal.Decimal) decimal.Decimal {
	if class.DebitNormal() {
		return signed
	}
	return signed.Neg()
}

// Deltas converts the entry to ledger deltas using the chart of accounts.
// Every line account must be known.
func (e JournalEntry) Deltas(accounts map[string]Account) ([]LedgerDelta, error) {
	deltas := make([]LedgerDelta, 0, len(e.Lines))
	for i, l := range e.Lines {
		acct, ok := accounts[l.AccountCode]
		if !ok {
			return nil, fmt.Errorf("entry %s line %d: unknown account %q", e.ID, i, l.AccountCode)
		}
		deltas = append(deltas, LedgerDelta{
			EntityCode:  l.EntityCode,
			AccountCode: l.AccountCode,
			Period:      e.Period,
			Currency:    e.Currency,
			Amount:      NaturalAmount(acct.Class, l.Amount),
			NodeID:      e.NodeID,
			EntryID:     e.ID,
		})
	}
	return deltas, nil
}
