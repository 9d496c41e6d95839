package nodes

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/engine"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/model"
)

// Balances maps an entity code to its per-account amounts.
type Balances map[string]engine.Amounts

// EquityLine is one entity's row of the statement of changes in equity.
type EquityLine struct {
	Entity           string          `json:"entity"`
	ShareCapital     decimal.Decimal `json:"share_capital"`
	RetainedEarnings decimal.Decimal `json:"retained_earnings"`
	OCI              decimal.Decimal `json:"oci"`
	NCI              decimal.Decimal `json:"nci"`
	ParentEquity     decimal.Decimal `json:"parent_equity"`
	TotalEquity      decimal.Decimal `json:"total_equity"`
}

// entitiesOf resolves a node's entity filter: the configured codes when
// set, every entity otherwise. Configured codes must be known.
func entitiesOf(s *engine.Scope, configured []string) ([]string, error) {
	ref := s.Ref()
	if len(configured) == 0 {
		return ref.EntityCodes(), nil
	}
	seen := make(map[string]bool, len(configured))
	codes := make([]string, 0, len(configured))
	for _, raw := range configured {
		code := model.NormalizeCode(raw)
		if _, ok := ref.Entities[code]; !ok {
			return nil, engine.NewNodeError(engine.ErrCodeInvalidConfiguration, s.NodeID(), "unknown entity %q", raw)
		}
		if !seen[code] {
			seen[code] = true
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	return codes, nil
}

// unionKeys returns the sorted union of the keys of every map.
func unionKeys(maps ...engine.Amounts) []string {
	seen := make(map[string]bool)
	for _, m := range maps {
		for k := range m {
			seen[k] = true
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// needsTranslation reports whether e's ledger is kept in a currency other
// than the one it reports in. Equity-method entities are never translated.
func needsTranslation(e model.Entity) bool {
	return e.Method != model.MethodEquity && e.FunctionalCurrency != e.ReportingCurrency
}

// translatedView is what an upstream fx_translation node produced, if any.
type translatedView struct {
	balances Balances
	profit   engine.Amounts
}

func readTranslated(ctx context.Context, s *engine.Scope) (translatedView, error) {
	var v translatedView
	raw, found, err := s.OptionalInput(ctx, OutTranslatedBalances)
	if err != nil {
		return v, err
	}
	if found {
		b, ok := raw.(Balances)
		if !ok {
			return v, engine.NewNodeError(engine.ErrCodeExecutionFailed, s.NodeID(),
				"input %q has type %T", OutTranslatedBalances, raw)
		}
		v.balances = b
	}
	if v.profit, err = s.OptionalAmounts(ctx, OutTranslatedProfit); err != nil {
		return v, err
	}
	return v, nil
}

// sumClass totals entity's translated balances over accounts of class c.
func (v translatedView) sumClass(accounts map[string]model.Account, entity string, c model.AccountClass) (decimal.Decimal, bool) {
	bal, ok := v.balances[entity]
	if !ok {
		return decimal.Zero, false
	}
	sum := decimal.Zero
	for code, amt := range bal {
		if accounts[code].Class == c {
			sum = sum.Add(amt)
		}
	}
	return sum, true
}

// untranslated is the error for a foreign entity no upstream translation
// node covers.
func untranslated(s *engine.Scope, e model.Entity) error {
	return engine.NewNodeError(engine.ErrCodeInvalidConfiguration, s.NodeID(),
		"entity %s keeps its ledger in %s but reports in %s; no upstream fx_translation covers it",
		e.Code, e.FunctionalCurrency, e.ReportingCurrency)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
