package nodes

import "github.com/prabaj-wq/allinonecompdev-sub012/internal/model"

// Output names shared between producers and consumers.
const (
	OutOpeningBalances      = "opening_balances"
	OutOpeningRE            = "opening_re"
	OutProfit               = "profit"
	OutGrossMargin          = "gross_margin"
	OutOperatingProfit      = "operating_profit"
	OutClosingRE            = "closing_re"
	OutDividends            = "dividends"
	OutAdjustments          = "adjustments"
	OutTranslatedBalances   = "translated_balances"
	OutCTA                  = "cta"
	OutTranslatedProfit     = "translated_profit"
	OutEliminationEntries   = "elimination_entries"
	OutEliminationGroups    = "elimination_groups"
	OutFairValueAdjustments = "fair_value_adjustments"
	OutFairValueEntries     = "fair_value_entries"
	OutDeferredTax          = "deferred_tax"
	OutDeferredTaxEntries   = "deferred_tax_entries"
	OutOCITotal             = "oci_total"
	OutNCIProfit            = "nci_profit"
	OutNCIEquity            = "nci_equity"
	OutParentProfit         = "parent_profit"
	OutEquityStatement      = "equity_statement"
	OutTotalEquity          = "total_equity"
)

var ledgerInputs = []string{model.InputEntity, model.InputAccounts, model.InputPeriod}

// Catalog is the static contract of every node type, in palette order.
var Catalog = []model.Contract{
	{
		Type:        model.NodeOpeningBalance,
		DisplayName: "Opening Balance",
		Description: "Carries prior-period closing balances into the run period.",
		Category:    "ledger",
		Inputs:      ledgerInputs,
		Outputs:     []string{OutOpeningBalances, OutOpeningRE},
	},
	{
		Type:        model.NodeProfitLoss,
		DisplayName: "Profit & Loss",
		Description: "Computes gross margin, operating profit and net profit per entity.",
		Category:    "ledger",
		Inputs:      ledgerInputs,
		Outputs:     []string{OutProfit, OutGrossMargin, OutOperatingProfit},
	},
	{
		Type:        model.NodeRetainedEarnings,
		DisplayName: "Retained Earnings Roll-forward",
		Description: "Rolls opening retained earnings forward by profit, dividends and adjustments.",
		Category:    "equity",
		Inputs:      []string{OutOpeningRE, OutProfit},
		Outputs:     []string{OutClosingRE, OutDividends, OutAdjustments},
	},
	{
		Type:        model.NodeFXTranslation,
		DisplayName: "FX Translation",
		Description: "Translates foreign entities into the reporting currency and books the CTA.",
		Category:    "currency",
		Inputs:      []string{model.InputEntity, model.InputAccounts, model.InputPeriod, model.InputFXRates},
		Outputs:     []string{OutTranslatedBalances, OutCTA, OutTranslatedProfit},
	},
	{
		Type:        model.NodeIntercompanyElimination,
		DisplayName: "Intercompany Elimination",
		Description: "Eliminates intercompany balances using the configured rules.",
		Category:    "consolidation",
		Inputs:      []string{model.InputEntity, model.InputAccounts, model.InputPeriod, model.InputRules},
		Outputs:     []string{OutEliminationEntries, OutEliminationGroups},
	},
	{
		Type:        model.NodeFairValueAdjustment,
		DisplayName: "Fair Value Adjustment",
		Description: "Books acquisition fair value uplifts against the revaluation reserve.",
		Category:    "consolidation",
		Inputs:      ledgerInputs,
		Outputs:     []string{OutFairValueAdjustments, OutFairValueEntries},
	},
	{
		Type:        model.NodeDeferredTax,
		DisplayName: "Deferred Tax",
		Description: "Recognises deferred tax on fair value uplifts.",
		Category:    "consolidation",
		Inputs:      []string{OutFairValueAdjustments},
		Outputs:     []string{OutDeferredTax, OutDeferredTaxEntries},
	},
	{
		Type:        model.NodeOCI,
		DisplayName: "Other Comprehensive Income",
		Description: "Totals OCI balances and translation differences booked to OCI.",
		Category:    "equity",
		Inputs:      ledgerInputs,
		Optional:    []string{OutTranslatedBalances},
		Outputs:     []string{OutOCITotal},
	},
	{
		Type:        model.NodeNCIHandling,
		DisplayName: "Non-controlling Interest",
		Description: "Allocates profit and equity to non-controlling interests.",
		Category:    "equity",
		Inputs:      []string{OutProfit},
		Optional:    []string{OutOCITotal, OutTranslatedBalances, OutTranslatedProfit},
		Outputs:     []string{OutNCIProfit, OutNCIEquity, OutParentProfit},
	},
	{
		Type:        model.NodeEquityStatement,
		DisplayName: "Statement of Changes in Equity",
		Description: "Assembles share capital, retained earnings, OCI and NCI into total equity.",
		Category:    "reporting",
		Inputs:      []string{OutClosingRE},
		Optional:    []string{OutOCITotal, OutNCIEquity},
		Outputs:     []string{OutEquityStatement, OutTotalEquity},
	},
}

// definitions maps node types to their CUE config definition.
var definitions = map[model.NodeType]string{
	model.NodeOpeningBalance:          "#OpeningBalance",
	model.NodeProfitLoss:              "#ProfitLoss",
	model.NodeRetainedEarnings:        "#RetainedEarnings",
	model.NodeFXTranslation:           "#FXTranslation",
	model.NodeIntercompanyElimination: "#IntercompanyElimination",
	model.NodeFairValueAdjustment:     "#FairValueAdjustment",
	model.NodeDeferredTax:             "#DeferredTax",
	model.NodeOCI:                     "#OCI",
	model.NodeNCIHandling:             "#NCI",
	model.NodeEquityStatement:         "#EquityStatement",
}
