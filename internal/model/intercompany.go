package model

import (
	"github.com/shopspring/decimal"
)

// ICGroup summarises one intercompany elimination group: all transactions
// between an unordered entity pair within one intercompany class.
type ICGroup struct {
	Key      string          `json:"key"`
	EntityA  string          `json:"entity_a"`
	EntityB  string          `json:"entity_b"`
	ICClass  string          `json:"ic_class"`
	RuleID   string          `json:"rule_id,omitempty"`
	RuleType string          `json:"rule_type,omitempty"`
	Required bool            `json:"required,omitempty"`
	Debits   decimal.Decimal `json:"debits"`
	Credits  decimal.Decimal `json:"credits"`
	// Residual is the signed amount left after elimination entries.
	Residual   decimal.Decimal `json:"residual"`
	Eliminated bool            `json:"eliminated"`
	Members    []string        `json:"members"`
}

// GroupKey builds the canonical key for an unordered entity pair and class.
func GroupKey(a, b, class string) (string, string, string) {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b + "|" + class, a, b
}
