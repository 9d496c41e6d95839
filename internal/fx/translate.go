package fx

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/model"
)

// Method selects how balance sheet items pick their rate.
type Method string

const (
	// MethodCurrentRate translates assets and liabilities at closing,
	// income and OCI at average, equity at historical.
	MethodCurrentRate Method = "current_rate"

	// MethodTemporal translates monetary items at closing and non-monetary
	// items at historical.
	MethodTemporal Method = "temporal"
)

// CTA locations.
const (
	CTAToOCI = "oci"
	CTAToPnL = "pnl"
)

// Request describes the translation of one entity for one period.
type Request struct {
	NodeID   string
	Entity   model.Entity
	Period   string
	Balances map[string]decimal.Decimal // account -> natural amount, functional currency
	Accounts map[string]model.Account

	Method        Method
	CTALocation   string
	CTAAccount    string
	GainLossAcct  string
	OffsetAccount string
}

// Result is the translated trial balance of one entity.
type Result struct {
	Entity   string
	Currency string

	// Translated holds reporting-currency natural amounts per account,
	// including the CTA plug on its booking account.
	Translated map[string]decimal.Decimal

	// CTA is the plug: translated assets minus translated claims.
	CTA decimal.Decimal

	// CTAToOCI is CTA when booked to OCI, zero otherwise.
	CTAToOCI decimal.Decimal

	// Profit is translated revenue less expenses, plus CTA when booked to P&L.
	Profit decimal.Decimal

	// Entry books the CTA against the translation offset account. It is a
	// reporting-currency entry and never posts to the entity's own ledger.
	Entry model.JournalEntry
}

// Translate converts req.Balances into the entity's reporting currency.
// Every rate the request needs is looked up even after a miss, so the book
// records the full set of missing keys; the first missing key (in account
// order) is returned as a *RateNotFoundError.
func Translate(book *RateBook, req Request) (Result, error) {
	from := req.Entity.FunctionalCurrency
	to := req.Entity.ReportingCurrency
	periodEnd, err := model.PeriodEnd(req.Period)
	if err != nil {
		return Result{}, err
	}
	method := req.Method
	if method == "" {
		method = MethodCurrentRate
	}
	location := req.CTALocation
	if location == "" {
		location = CTAToOCI
	}
	plugAccount := req.CTAAccount
	if location == CTAToPnL {
		plugAccount = req.GainLossAcct
	}
	if plugAccount == "" {
		return Result{}, fmt.Errorf("translate %s: no account to book CTA to (%s)", req.Entity.Code, location)
	}
	plug, ok := req.Accounts[plugAccount]
	if !ok {
		return Result{}, fmt.Errorf("translate %s: unknown CTA account %q", req.Entity.Code, plugAccount)
	}
	if !plugClassFits(location, plug.Class) {
		return Result{}, fmt.Errorf("translate %s: CTA account %q has class %s and cannot carry CTA booked to %s", req.Entity.Code, plugAccount, plug.Class, location)
	}

	historicalDate := req.Entity.AcquisitionDate
	codes := make([]string, 0, len(req.Balances))
	for code := range req.Balances {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	res := Result{
		Entity:     req.Entity.Code,
		Currency:   to,
		Translated: make(map[string]decimal.Decimal, len(codes)+1),
	}
	var firstMiss error
	sums := make(map[model.AccountClass]decimal.Decimal)
	for _, code := range codes {
		if code == req.CTAAccount {
			continue
		}
		acct, ok := req.Accounts[code]
		if !ok {
			return Result{}, fmt.Errorf("translate %s: unknown account %q", req.Entity.Code, code)
		}
		rt, date := selectRate(method, acct, periodEnd, historicalDate)
		rate, err := book.Rate(from, to, rt, date)
		if err != nil {
			if firstMiss == nil {
				firstMiss = err
			}
			continue
		}
		amt := model.RoundToCurrency(req.Balances[code].Mul(rate), to)
		res.Translated[code] = amt
		sums[acct.Class] = sums[acct.Class].Add(amt)
	}
	if firstMiss != nil {
		return Result{}, firstMiss
	}

	claims := sums[model.ClassLiability].
		Add(sums[model.ClassEquity]).
		Add(sums[model.ClassRevenue]).
		Sub(sums[model.ClassExpense]).
		Add(sums[model.ClassOCI])
	res.CTA = sums[model.ClassAsset].Sub(claims)
	res.Profit = sums[model.ClassRevenue].Sub(sums[model.ClassExpense])
	res.CTAToOCI = decimal.Zero
	if location == CTAToPnL {
		res.Profit = res.Profit.Add(res.CTA)
	} else {
		res.CTAToOCI = res.CTA
	}

	// CTA is a credit to the plug account: natural sign follows its class.
	res.Translated[plugAccount] = res.Translated[plugAccount].Add(model.NaturalAmount(plug.Class, res.CTA.Neg()))

	res.Entry = model.JournalEntry{
		ID:       fmt.Sprintf("%s/cta/%s", req.NodeID, req.Entity.Code),
		NodeID:   req.NodeID,
		Period:   req.Period,
		Currency: to,
		Memo:     fmt.Sprintf("translation adjustment %s %s->%s", req.Entity.Code, from, to),
	}
	if !res.CTA.IsZero() {
		res.Entry.Debit(req.Entity.Code, req.OffsetAccount, res.CTA).
			Credit(req.Entity.Code, plugAccount, res.CTA)
	}
	return res, nil
}

// plugClassFits reports whether an account of class c can carry the CTA
// booked to location.
func plugClassFits(location string, c model.AccountClass) bool {
	if location == CTAToPnL {
		return c == model.ClassRevenue || c == model.ClassExpense
	}
	return c == model.ClassOCI
}

// selectRate picks the rate type and date for one account.
func selectRate(method Method, acct model.Account, periodEnd, historicalDate string) (model.RateType, string) {
	historical := func() (model.RateType, string) {
		if historicalDate == "" {
			return model.RateClosing, periodEnd
		}
		return model.RateHistorical, historicalDate
	}
	switch acct.Class {
	case model.ClassRevenue, model.ClassExpense, model.ClassOCI:
		return model.RateAverage, periodEnd
	case model.ClassEquity:
		return historical()
	default:
		if method == MethodTemporal && !acct.Monetary {
			return historical()
		}
		return model.RateClosing, periodEnd
	}
}
