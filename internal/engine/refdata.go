package engine

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/model"
)

// RefData is the reference data snapshot a run executes against. It is
// loaded once before the run starts and never modified afterwards.
type RefData struct {
	Period       string
	GroupEntity  string
	Tolerance    decimal.Decimal
	Entities     map[string]model.Entity
	Accounts     map[string]model.Account
	Balances     []model.LedgerBalance
	Rates        []model.FXRate
	Rules        []model.EliminationRule
	Transactions []model.IntercompanyTransaction

	indexOnce sync.Once
	byEntity  map[string]map[string]map[string]decimal.Decimal // period -> entity -> account
}

func (r *RefData) index() {
	r.indexOnce.Do(func() {
		r.byEntity = make(map[string]map[string]map[string]decimal.Decimal)
		for _, b := range r.Balances {
			periods, ok := r.byEntity[b.Period]
			if !ok {
				periods = make(map[string]map[string]decimal.Decimal)
				r.byEntity[b.Period] = periods
			}
			accts, ok := periods[b.EntityCode]
			if !ok {
				accts = make(map[string]decimal.Decimal)
				periods[b.EntityCode] = accts
			}
			accts[b.AccountCode] = accts[b.AccountCode].Add(b.Amount)
		}
	})
}

// Tol returns the configured tolerance or the model default.
func (r *RefData) Tol() decimal.Decimal {
	if r.Tolerance.IsZero() {
		return model.Tolerance
	}
	return r.Tolerance
}

// EntityCodes returns every entity code, ascending.
func (r *RefData) EntityCodes() []string {
	codes := make([]string, 0, len(r.Entities))
	for code := range r.Entities {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// BalancesFor returns a copy of entity's balances for period keyed by account.
func (r *RefData) BalancesFor(entity, period string) map[string]decimal.Decimal {
	r.index()
	src := r.byEntity[period][entity]
	out := make(map[string]decimal.Decimal, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// Balance returns a single balance, zero when absent.
func (r *RefData) Balance(entity, account, period string) decimal.Decimal {
	r.index()
	return r.byEntity[period][entity][account]
}

// SumByClass totals entity's balances in period for one account class.
func (r *RefData) SumByClass(entity, period string, class model.AccountClass) decimal.Decimal {
	r.index()
	total := decimal.Zero
	for code, amt := range r.byEntity[period][entity] {
		if acct, ok := r.Accounts[code]; ok && acct.Class == class {
			total = total.Add(amt)
		}
	}
	return total
}

// SumByCategory totals entity's balances in period for one account category.
func (r *RefData) SumByCategory(entity, period, category string) decimal.Decimal {
	r.index()
	total := decimal.Zero
	for code, amt := range r.byEntity[period][entity] {
		if acct, ok := r.Accounts[code]; ok && acct.Category == category {
			total = total.Add(amt)
		}
	}
	return total
}

// AccountsByCategory returns account codes in category, ascending.
func (r *RefData) AccountsByCategory(category string) []string {
	var codes []string
	for code, acct := range r.Accounts {
		if acct.Category == category {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	return codes
}

// GroupCode returns the configured group entity when it exists, else the
// first root entity, else "".
func (r *RefData) GroupCode() string {
	if _, ok := r.Entities[r.GroupEntity]; ok {
		return r.GroupEntity
	}
	for _, code := range r.EntityCodes() {
		if r.Entities[code].ParentCode == "" {
			return code
		}
	}
	return ""
}

// ReportingCurrency returns the group's reporting currency: the group
// entity's, else the first root entity's, else USD.
func (r *RefData) ReportingCurrency() string {
	if e, ok := r.Entities[r.GroupEntity]; ok {
		return e.ReportingCurrency
	}
	for _, code := range r.EntityCodes() {
		if e := r.Entities[code]; e.ParentCode == "" {
			return e.ReportingCurrency
		}
	}
	return "USD"
}

// Subsidiaries returns entities that have a parent, ascending.
func (r *RefData) Subsidiaries() []model.Entity {
	var out []model.Entity
	for _, code := range r.EntityCodes() {
		if e := r.Entities[code]; e.ParentCode != "" {
			out = append(out, e)
		}
	}
	return out
}
