package nodes

import (
	"context"
	"fmt"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/elimination"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/engine"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/model"
)

// intercompanyElimination eliminates the period's intercompany groups. An
// unmatched residual under a required rule fails the node; any other
// problem is attached to the run as a warning.
func intercompanyElimination(ctx context.Context, s *engine.Scope, c any) (engine.Output, error) {
	cfg := c.(*IntercompanyConfig)
	ref := s.Ref()

	rawRules, err := s.Input(ctx, model.InputRules)
	if err != nil {
		return engine.Output{}, err
	}
	rules, _ := rawRules.([]model.EliminationRule)

	tol := cfg.Tolerance
	if tol.IsZero() {
		tol = ref.Tol()
	}
	res := elimination.Eliminate(elimination.Input{
		NodeID:       s.NodeID(),
		Period:       s.Period(),
		Transactions: ref.Transactions,
		Rules:        rules,
		Tolerance:    tol,
		Classes:      cfg.ICClasses,
	})
	s.RecordGroups(res.Groups)

	for _, p := range res.Problems {
		if p.Required {
			continue
		}
		s.Warn(model.CheckResult{
			Check:   string(model.NodeIntercompanyElimination),
			Code:    p.Code,
			Message: p.Message,
			RuleID:  p.RuleID,
		})
	}
	if p, fatal := res.Fatal(); fatal {
		return engine.Output{}, &engine.NodeError{
			Code:    engine.ErrCodeUnmatchedIntercompanyBalance,
			NodeID:  s.NodeID(),
			RuleID:  p.RuleID,
			Message: p.Message,
			Details: map[string]string{
				"group":    p.GroupKey,
				"residual": p.Residual.StringFixed(2),
				"problem":  p.Code,
			},
		}
	}

	entries := res.Entries
	if entries == nil {
		entries = []model.JournalEntry{}
	}
	groups := res.Groups
	if groups == nil {
		groups = []model.ICGroup{}
	}
	return engine.Output{
		Values: map[string]any{
			OutEliminationEntries: entries,
			OutEliminationGroups:  groups,
		},
		Entries: res.Entries,
	}, nil
}

// fairValueAdjustment books each configured uplift: Dr asset, Cr reserve.
// Uplifts are stated in the entity's functional currency, the currency of
// the ledger they post to.
func fairValueAdjustment(ctx context.Context, s *engine.Scope, c any) (engine.Output, error) {
	cfg := c.(*FairValueConfig)
	ref := s.Ref()

	uplifts := make([]Uplift, 0, len(cfg.Adjustments))
	entries := make([]model.JournalEntry, 0, len(cfg.Adjustments))
	for i, u := range cfg.Adjustments {
		u.Entity = model.NormalizeCode(u.Entity)
		ent, ok := ref.Entities[u.Entity]
		if !ok {
			return engine.Output{}, engine.NewNodeError(engine.ErrCodeInvalidConfiguration, s.NodeID(),
				"adjustment %d: unknown entity %q", i, u.Entity)
		}
		u.ReserveAccount = orDefault(u.ReserveAccount, cfg.ReserveAccount)
		u.Amount = model.RoundToCurrency(u.Amount, ent.FunctionalCurrency)
		uplifts = append(uplifts, u)
		if u.Amount.IsZero() {
			continue
		}

		e := model.JournalEntry{
			ID:       fmt.Sprintf("%s/fv/%d", s.NodeID(), i),
			NodeID:   s.NodeID(),
			Period:   s.Period(),
			Currency: ent.FunctionalCurrency,
			Memo:     fmt.Sprintf("fair value uplift %s %s", u.Entity, u.AssetAccount),
		}
		e.Debit(u.Entity, u.AssetAccount, u.Amount).Credit(u.Entity, u.ReserveAccount, u.Amount)
		entries = append(entries, e)
	}
	return engine.Output{
		Values: map[string]any{
			OutFairValueAdjustments: uplifts,
			OutFairValueEntries:     entries,
		},
		Entries: entries,
	}, nil
}

// deferredTax recognises a liability of uplift x tax rate on every fair
// value adjustment: Dr reserve, Cr deferred tax liability.
func deferredTax(ctx context.Context, s *engine.Scope, c any) (engine.Output, error) {
	cfg := c.(*DeferredTaxConfig)
	ref := s.Ref()

	raw, err := s.Input(ctx, OutFairValueAdjustments)
	if err != nil {
		return engine.Output{}, err
	}
	uplifts, ok := raw.([]Uplift)
	if !ok {
		return engine.Output{}, engine.NewNodeError(engine.ErrCodeExecutionFailed, s.NodeID(),
			"input %q has type %T", OutFairValueAdjustments, raw)
	}

	perEntity := make(engine.Amounts)
	entries := make([]model.JournalEntry, 0, len(uplifts))
	for i, u := range uplifts {
		currency := ref.ReportingCurrency()
		if ent, ok := ref.Entities[u.Entity]; ok {
			currency = ent.FunctionalCurrency
		}
		tax := model.RoundToCurrency(u.Amount.Mul(cfg.TaxRate), currency)
		perEntity[u.Entity] = perEntity[u.Entity].Add(tax)
		if tax.IsZero() {
			continue
		}
		reserve := orDefault(u.ReserveAccount, cfg.ReserveAccount)
		e := model.JournalEntry{
			ID:       fmt.Sprintf("%s/dtl/%d", s.NodeID(), i),
			NodeID:   s.NodeID(),
			Period:   s.Period(),
			Currency: currency,
			Memo:     fmt.Sprintf("deferred tax on uplift %s %s at %s", u.Entity, u.AssetAccount, cfg.TaxRate.String()),
		}
		e.Debit(u.Entity, reserve, tax).Credit(u.Entity, cfg.LiabilityAccount, tax)
		entries = append(entries, e)
	}
	return engine.Output{
		Values: map[string]any{
			OutDeferredTax:        perEntity,
			OutDeferredTaxEntries: entries,
		},
		Entries: entries,
	}, nil
}
