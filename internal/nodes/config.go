package nodes

import (
	"github.com/shopspring/decimal"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/nci"
)

// OpeningBalanceConfig configures opening_balance nodes.
type OpeningBalanceConfig struct {
	// SourcePeriod defaults to the period before the run period.
	SourcePeriod string   `json:"source_period,omitempty"`
	Entities     []string `json:"entities,omitempty"`
}

// ProfitLossConfig configures profit_loss nodes.
type ProfitLossConfig struct {
	Entities []string `json:"entities,omitempty"`
}

// RetainedEarningsConfig configures retained_earnings_rollforward nodes.
// Dividends override the ledger's dividend category per entity.
type RetainedEarningsConfig struct {
	DividendCategory string                     `json:"dividend_category"`
	Dividends        map[string]decimal.Decimal `json:"dividends,omitempty"`
	Adjustments      map[string]decimal.Decimal `json:"adjustments,omitempty"`
}

// FXTranslationConfig configures fx_translation nodes.
type FXTranslationConfig struct {
	Method                   string   `json:"method"`
	CTALocation              string   `json:"cta_location"`
	CTAAccount               string   `json:"cta_account"`
	FXGainLossAccount        string   `json:"fx_gain_loss_account"`
	TranslationOffsetAccount string   `json:"translation_offset_account"`
	Entities                 []string `json:"entities,omitempty"`
}

// IntercompanyConfig configures intercompany_elimination nodes.
type IntercompanyConfig struct {
	Tolerance decimal.Decimal `json:"tolerance"`
	ICClasses []string        `json:"ic_classes,omitempty"`
}

// Uplift is one fair value adjustment of an asset account.
type Uplift struct {
	Entity         string          `json:"entity"`
	AssetAccount   string          `json:"asset_account"`
	ReserveAccount string          `json:"reserve_account,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
}

// FairValueConfig configures fair_value_adjustment nodes.
type FairValueConfig struct {
	ReserveAccount string   `json:"reserve_account"`
	Adjustments    []Uplift `json:"adjustments"`
}

// DeferredTaxConfig configures deferred_tax nodes.
type DeferredTaxConfig struct {
	TaxRate          decimal.Decimal `json:"tax_rate"`
	ReserveAccount   string          `json:"reserve_account"`
	LiabilityAccount string          `json:"liability_account"`
}

// OCIConfig configures other_comprehensive_income nodes.
type OCIConfig struct {
	Entities []string `json:"entities,omitempty"`
}

// NCIConfig configures nci_handling nodes.
type NCIConfig struct {
	Method           nci.Method                 `json:"method"`
	Timing           nci.Timing                 `json:"timing"`
	NCIShareAccount  string                     `json:"nci_share_account"`
	NCIEquityAccount string                     `json:"nci_equity_account"`
	Acquisition      map[string]nci.Acquisition `json:"acquisition,omitempty"`
	Entities         []string                   `json:"entities,omitempty"`
}

// EquityStatementConfig configures equity_statement nodes.
type EquityStatementConfig struct {
	ShareCapitalCategory string   `json:"share_capital_category"`
	Entities             []string `json:"entities,omitempty"`
}
