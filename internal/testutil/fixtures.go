// Package testutil provides deterministic clocks and a small consolidation
// group shared by package tests.
//
// The group has three entities:
//
//	P  parent, USD, 100%
//	S  subsidiary of P, USD, 80% (NCI 20%)
//	F  subsidiary of P, EUR functional / USD reporting, 100%
//
// Every entity's 2024-12 trial balance satisfies A = L + E + (R - X) + OCI.
package testutil

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/engine"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/model"
)

// Period is the run period of the fixture group.
const Period = "2024-12"

// D parses a decimal literal and panics on malformed input.
func D(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func account(code string, class model.AccountClass, category string, monetary bool) model.Account {
	return model.Account{Code: code, Name: code, Class: class, Category: category, Monetary: monetary}
}

// Accounts returns the fixture chart of accounts.
func Accounts() map[string]model.Account {
	list := []model.Account{
		account("CASH", model.ClassAsset, model.CategoryOther, true),
		account("PPE", model.ClassAsset, model.CategoryOther, false),
		account("ICREC", model.ClassAsset, model.CategoryOther, true),
		account("ICPAY", model.ClassLiability, model.CategoryOther, true),
		account("DEFERRED_TAX_LIABILITY", model.ClassLiability, model.CategoryOther, true),
		account("SUSPENSE", model.ClassLiability, model.CategoryOther, true),
		account("SHARE_CAPITAL", model.ClassEquity, model.CategoryShareCapital, false),
		account("RETAINED_EARNINGS", model.ClassEquity, model.CategoryRetainedEarnings, false),
		account("DIVIDENDS", model.ClassEquity, model.CategoryDividend, false),
		account("REVALUATION_RESERVE", model.ClassEquity, model.CategoryOther, false),
		account("TRANSLATION_RESERVE", model.ClassEquity, model.CategoryOther, false),
		account("NCI", model.ClassEquity, model.CategoryOther, false),
		account("SALES", model.ClassRevenue, model.CategoryOther, false),
		account("FX_GAIN_LOSS", model.ClassRevenue, model.CategoryOther, false),
		account("COGS", model.ClassExpense, model.CategoryCostOfSales, false),
		account("OPEX", model.ClassExpense, model.CategoryOperatingExpense, false),
		account("FVOCI", model.ClassOCI, model.CategoryOther, false),
		account("CTA", model.ClassOCI, model.CategoryOther, false),
	}
	out := make(map[string]model.Account, len(list))
	for _, a := range list {
		out[a.Code] = a
	}
	return out
}

// Entities returns the fixture ownership tree.
func Entities() map[string]model.Entity {
	return map[string]model.Entity{
		"P": {Code: "P", Name: "Parent", OwnershipPercentage: D("100"), FunctionalCurrency: "USD", ReportingCurrency: "USD", Method: model.MethodFull},
		"S": {Code: "S", Name: "Sub", ParentCode: "P", OwnershipPercentage: D("80"), FunctionalCurrency: "USD", ReportingCurrency: "USD", Method: model.MethodFull, AcquisitionDate: "2021-06-30"},
		"F": {Code: "F", Name: "Foreign", ParentCode: "P", OwnershipPercentage: D("100"), FunctionalCurrency: "EUR", ReportingCurrency: "USD", Method: model.MethodFull, AcquisitionDate: "2020-01-01"},
	}
}

func bal(entity, acct, period, amount, currency string) model.LedgerBalance {
	return model.LedgerBalance{EntityCode: entity, AccountCode: acct, Period: period, Amount: D(amount), Currency: currency, Version: 1}
}

// Balances returns the 2024-11 and 2024-12 trial balances.
func Balances() []model.LedgerBalance {
	return []model.LedgerBalance{
		bal("P", "CASH", "2024-11", "800000", "USD"),
		bal("P", "SHARE_CAPITAL", "2024-11", "800000", "USD"),
		bal("S", "CASH", "2024-11", "500000", "USD"),
		bal("S", "SHARE_CAPITAL", "2024-11", "300000", "USD"),
		bal("S", "RETAINED_EARNINGS", "2024-11", "200000", "USD"),

		bal("P", "CASH", Period, "1000000", "USD"),
		bal("P", "SHARE_CAPITAL", Period, "800000", "USD"),
		bal("P", "SALES", Period, "300000", "USD"),
		bal("P", "OPEX", Period, "100000", "USD"),

		bal("S", "CASH", Period, "600000", "USD"),
		bal("S", "SHARE_CAPITAL", Period, "300000", "USD"),
		bal("S", "RETAINED_EARNINGS", Period, "200000", "USD"),
		bal("S", "SALES", Period, "250000", "USD"),
		bal("S", "COGS", Period, "100000", "USD"),
		bal("S", "OPEX", Period, "50000", "USD"),

		bal("F", "CASH", Period, "200000", "EUR"),
		bal("F", "SHARE_CAPITAL", Period, "150000", "EUR"),
		bal("F", "SALES", Period, "50000", "EUR"),
	}
}

// Rates returns EUR/USD closing 1.10, average 1.08 and historical 1.20.
func Rates() []model.FXRate {
	return []model.FXRate{
		{From: "EUR", To: "USD", RateType: model.RateClosing, Date: "2024-12-31", Rate: D("1.10")},
		{From: "EUR", To: "USD", RateType: model.RateAverage, Date: "2024-12-31", Rate: D("1.08")},
		{From: "EUR", To: "USD", RateType: model.RateHistorical, Date: "2020-01-01", Rate: D("1.20")},
	}
}

// Rules returns one catch-all full elimination rule.
func Rules() []model.EliminationRule {
	return []model.EliminationRule{
		{ID: "R-ALL", RuleType: model.RuleFullElimination, Priority: 10, Enabled: true},
	}
}

// Transactions returns a matched P/S trade balance of 5,000.
func Transactions() []model.IntercompanyTransaction {
	return []model.IntercompanyTransaction{
		{ID: "IC-1", EntityCode: "P", CounterpartyCode: "S", AccountCode: "ICREC", ICClass: "trade", Period: Period, Amount: D("5000"), Currency: "USD"},
		{ID: "IC-2", EntityCode: "S", CounterpartyCode: "P", AccountCode: "ICPAY", ICClass: "trade", Period: Period, Amount: D("-5000"), Currency: "USD"},
	}
}

// RefData assembles the fixture group for Period with group entity P.
func RefData() *engine.RefData {
	return &engine.RefData{
		Period:       Period,
		GroupEntity:  "P",
		Tolerance:    model.Tolerance,
		Entities:     Entities(),
		Accounts:     Accounts(),
		Balances:     Balances(),
		Rates:        Rates(),
		Rules:        Rules(),
		Transactions: Transactions(),
	}
}

func node(id string, t model.NodeType, seq int, cfg map[string]any) model.Node {
	return model.Node{ID: id, ProcessID: "consol-2024", Type: t, Title: id, SequenceOrder: seq, Config: cfg, Enabled: true}
}

func conn(from, to string) model.Connection {
	return model.Connection{From: from, To: to, Type: model.ConnectionSequential}
}

// Pipeline returns a process using all ten node types:
//
//	ob -> re -> eq
//	pl -> re, pl -> nci -> eq
//	fx -> oci -> nci, oci -> eq
//	fv -> dt
//	ic
func Pipeline() model.ProcessDefinition {
	return model.ProcessDefinition{
		ID:         "consol-2024",
		Name:       "FY2024 consolidation",
		FiscalYear: 2024,
		Status:     model.ProcessActive,
		Nodes: []model.Node{
			node("ob", model.NodeOpeningBalance, 1, nil),
			node("pl", model.NodeProfitLoss, 1, nil),
			node("fx", model.NodeFXTranslation, 1, nil),
			node("ic", model.NodeIntercompanyElimination, 1, nil),
			node("fv", model.NodeFairValueAdjustment, 1, map[string]any{
				"adjustments": []any{
					map[string]any{"entity": "S", "asset_account": "PPE", "amount": 10000},
				},
			}),
			node("re", model.NodeRetainedEarnings, 2, map[string]any{
				"dividends": map[string]any{"S": 10000},
			}),
			node("oci", model.NodeOCI, 2, nil),
			node("dt", model.NodeDeferredTax, 2, map[string]any{"tax_rate": 0.25}),
			node("nci", model.NodeNCIHandling, 3, nil),
			node("eq", model.NodeEquityStatement, 4, nil),
		},
		Connections: []model.Connection{
			conn("ob", "re"),
			conn("pl", "re"),
			conn("pl", "nci"),
			conn("fx", "oci"),
			conn("oci", "nci"),
			conn("re", "eq"),
			conn("oci", "eq"),
			conn("nci", "eq"),
			conn("fv", "dt"),
		},
	}
}

// Writer is a reference data sink. *store.Store satisfies it.
type Writer interface {
	PutEntity(ctx context.Context, e model.Entity) error
	PutAccount(ctx context.Context, a model.Account) error
	PutBalance(ctx context.Context, b model.LedgerBalance) error
	PutFXRate(ctx context.Context, r model.FXRate) error
	PutRule(ctx context.Context, r model.EliminationRule) error
	PutTransaction(ctx context.Context, t model.IntercompanyTransaction) error
}

// Seed writes the fixture group's reference data to w.
func Seed(ctx context.Context, w Writer) error {
	for _, code := range []string{"P", "S", "F"} {
		if err := w.PutEntity(ctx, Entities()[code]); err != nil {
			return err
		}
	}
	for _, a := range Accounts() {
		if err := w.PutAccount(ctx, a); err != nil {
			return err
		}
	}
	for _, b := range Balances() {
		if err := w.PutBalance(ctx, b); err != nil {
			return err
		}
	}
	for _, r := range Rates() {
		if err := w.PutFXRate(ctx, r); err != nil {
			return err
		}
	}
	for _, r := range Rules() {
		if err := w.PutRule(ctx, r); err != nil {
			return err
		}
	}
	for _, t := range Transactions() {
		if err := w.PutTransaction(ctx, t); err != nil {
			return err
		}
	}
	return nil
}
