package validation

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/engine"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/model"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/nodes"
)

// balanceCheck verifies consolidated A = L + E + (R - X) + OCI after
// pending deltas. Translated balances replace the ledger where a
// translation node produced them. Proportionate entities are scaled by
// ownership; equity-method entities are not consolidated line by line.
// An entity whose own trial balance is off before any delta is reported as
// a warning.
func balanceCheck(src Source) []model.CheckResult {
	ref := src.Ref()
	tol := ref.Tol()

	translated := make(map[string]engine.Amounts)
	for _, out := range src.OutputsOfType(model.NodeFXTranslation) {
		if b, ok := out.Values[nodes.OutTranslatedBalances].(nodes.Balances); ok {
			for code, amts := range b {
				translated[code] = amts
			}
		}
	}

	var out []model.CheckResult
	rows := make(map[string]map[string]decimal.Decimal)
	for _, code := range ref.EntityCodes() {
		if ref.Entities[code].Method == model.MethodEquity {
			continue
		}
		if amts, ok := translated[code]; ok {
			rows[code] = copyAmounts(amts)
		} else {
			rows[code] = ref.BalancesFor(code, ref.Period)
		}
		if diff := imbalance(ref.Accounts, rows[code]); diff.Abs().GreaterThan(tol) {
			out = append(out, model.CheckResult{
				Check:    CheckBalance,
				Severity: model.SeverityWarning,
				Code:     CodeBalanceCheckFailed,
				Entity:   code,
				Message:  fmt.Sprintf("entity %s trial balance is out by %s", code, diff.StringFixed(2)),
			})
		}
	}
	for _, d := range src.Deltas() {
		if d.Period != ref.Period {
			continue
		}
		if e, ok := ref.Entities[d.EntityCode]; ok && e.Method == model.MethodEquity {
			continue
		}
		row, ok := rows[d.EntityCode]
		if !ok {
			row = make(map[string]decimal.Decimal)
			rows[d.EntityCode] = row
		}
		row[d.AccountCode] = row[d.AccountCode].Add(d.Amount)
	}

	consolidated := make(map[string]decimal.Decimal)
	for code, row := range rows {
		scale := decimal.NewFromInt(1)
		if e, ok := ref.Entities[code]; ok && e.Method == model.MethodProportionate {
			scale = e.OwnershipFraction()
		}
		for acct, amt := range row {
			consolidated[acct] = consolidated[acct].Add(amt.Mul(scale))
		}
	}
	diff := imbalance(ref.Accounts, consolidated)
	if diff.Abs().GreaterThan(tol) {
		return append(out, model.CheckResult{
			Check:    CheckBalance,
			Severity: model.SeverityError,
			Code:     CodeBalanceCheckFailed,
			Message:  fmt.Sprintf("consolidated balance sheet is out by %s", diff.StringFixed(2)),
		})
	}
	return append(out, success(CheckBalance, "consolidated balance sheet of %d entities balances", len(rows)))
}

// imbalance returns A - (L + E + R - X + OCI) over natural-sign amounts.
func imbalance(accounts map[string]model.Account, row map[string]decimal.Decimal) decimal.Decimal {
	sums := make(map[model.AccountClass]decimal.Decimal)
	for acct, amt := range row {
		if a, ok := accounts[acct]; ok {
			sums[a.Class] = sums[a.Class].Add(amt)
		}
	}
	return sums[model.ClassAsset].Sub(
		sums[model.ClassLiability].
			Add(sums[model.ClassEquity]).
			Add(sums[model.ClassRevenue]).
			Sub(sums[model.ClassExpense]).
			Add(sums[model.ClassOCI]))
}

func copyAmounts(a engine.Amounts) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// intercompanyNetZero reports every elimination group left with a residual.
func intercompanyNetZero(src Source) []model.CheckResult {
	tol := src.Ref().Tol()
	groups := src.Groups()

	var out []model.CheckResult
	for _, g := range groups {
		if g.Residual.Abs().LessThanOrEqual(tol) {
			continue
		}
		sev := model.SeverityWarning
		if g.Required {
			sev = model.SeverityError
		}
		out = append(out, model.CheckResult{
			Check:    CheckIntercompany,
			Severity: sev,
			Code:     CodeUnmatchedBalance,
			RuleID:   g.RuleID,
			Message:  fmt.Sprintf("group %s has residual %s", g.Key, g.Residual.StringFixed(2)),
		})
	}
	if len(out) == 0 {
		out = append(out, success(CheckIntercompany, "%d groups net to zero", len(groups)))
	}
	return out
}

// fxRateCoverage reports missing rates and foreign entities no translation
// node covered.
func fxRateCoverage(src Source) []model.CheckResult {
	ref := src.Ref()
	refs := src.FXReferences()

	var out []model.CheckResult
	for _, r := range refs {
		if r.Found {
			continue
		}
		out = append(out, model.CheckResult{
			Check:    CheckFXCoverage,
			Severity: model.SeverityError,
			Code:     CodeFXRateNotFound,
			NodeID:   r.NodeID,
			Message:  fmt.Sprintf("missing rate %s", r.Key),
		})
	}
	for _, code := range ref.EntityCodes() {
		e := ref.Entities[code]
		if e.Method == model.MethodEquity || e.FunctionalCurrency == e.ReportingCurrency {
			continue
		}
		if !src.Translated(code) {
			out = append(out, model.CheckResult{
				Check:    CheckFXCoverage,
				Severity: model.SeverityWarning,
				Code:     CodeUntranslatedEntity,
				Entity:   code,
				Message:  fmt.Sprintf("entity %s (%s) was not translated to %s", code, e.FunctionalCurrency, e.ReportingCurrency),
			})
		}
	}
	if len(out) == 0 {
		out = append(out, success(CheckFXCoverage, "%d rate lookups resolved", len(refs)))
	}
	return out
}

// ownershipTotals checks ownership ranges and the parent chain.
func ownershipTotals(src Source) []model.CheckResult {
	ref := src.Ref()
	hundred := decimal.NewFromInt(100)

	var out []model.CheckResult
	for _, code := range ref.EntityCodes() {
		e := ref.Entities[code]
		if !e.OwnershipPercentage.IsPositive() || e.OwnershipPercentage.GreaterThan(hundred) {
			out = append(out, model.CheckResult{
				Check:    CheckOwnership,
				Severity: model.SeverityError,
				Code:     CodeInvalidOwnership,
				Entity:   code,
				Message:  fmt.Sprintf("entity %s ownership %s%% is outside (0, 100]", code, e.OwnershipPercentage),
			})
		}
		if e.ParentCode == "" {
			continue
		}
		if _, ok := ref.Entities[e.ParentCode]; !ok {
			out = append(out, model.CheckResult{
				Check:    CheckOwnership,
				Severity: model.SeverityError,
				Code:     CodeUnknownParent,
				Entity:   code,
				Message:  fmt.Sprintf("entity %s has unknown parent %s", code, e.ParentCode),
			})
			continue
		}
		if parentCycle(ref.Entities, code) {
			out = append(out, model.CheckResult{
				Check:    CheckOwnership,
				Severity: model.SeverityError,
				Code:     CodeOwnershipCycle,
				Entity:   code,
				Message:  fmt.Sprintf("entity %s is its own ancestor", code),
			})
		}
	}
	if len(out) == 0 {
		out = append(out, success(CheckOwnership, "%d entities have valid ownership", len(ref.Entities)))
	}
	return out
}

func parentCycle(entities map[string]model.Entity, start string) bool {
	seen := map[string]bool{start: true}
	cur := entities[start].ParentCode
	for cur != "" {
		if seen[cur] {
			return cur == start
		}
		seen[cur] = true
		cur = entities[cur].ParentCode
	}
	return false
}

// journalBalance checks every posted entry nets to zero within tolerance.
func journalBalance(src Source) []model.CheckResult {
	tol := src.Ref().Tol()
	entries := src.Entries()

	var out []model.CheckResult
	for _, e := range entries {
		if e.Balanced(tol) {
			continue
		}
		out = append(out, model.CheckResult{
			Check:    CheckJournalBalance,
			Severity: model.SeverityError,
			Code:     CodeUnbalancedEntry,
			NodeID:   e.NodeID,
			RuleID:   e.RuleID,
			Message:  fmt.Sprintf("entry %s nets to %s", e.ID, e.Net().StringFixed(2)),
		})
	}
	if len(out) == 0 {
		out = append(out, success(CheckJournalBalance, "%d entries balance", len(entries)))
	}
	return out
}
