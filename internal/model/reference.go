package model

import (
	"github.com/shopspring/decimal"
)

// ConsolidationMethod selects how an entity enters the consolidated totals.
type ConsolidationMethod string

const (
	MethodFull          ConsolidationMethod = "full"
	MethodProportionate ConsolidationMethod = "proportionate"
	MethodEquity        ConsolidationMethod = "equity"
)

// Entity is a legal entity in the ownership tree.
type Entity struct {
	Code                string              `json:"code" yaml:"code" validate:"required,max=32"`
	Name                string              `json:"name" yaml:"name"`
	ParentCode          string              `json:"parent_code,omitempty" yaml:"parent_code,omitempty"`
	OwnershipPercentage decimal.Decimal     `json:"ownership_percentage" yaml:"ownership_percentage" validate:"gt=0,lte=100"`
	FunctionalCurrency  string              `json:"functional_currency" yaml:"functional_currency" validate:"required,currency"`
	ReportingCurrency   string              `json:"reporting_currency" yaml:"reporting_currency" validate:"required,currency"`
	Method              ConsolidationMethod `json:"consolidation_method" yaml:"consolidation_method" validate:"oneof=full proportionate equity"`
	AcquisitionDate     string              `json:"acquisition_date,omitempty" yaml:"acquisition_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// OwnershipFraction returns OwnershipPercentage / 100.
func (e Entity) OwnershipFraction() decimal.Decimal {
	return e.OwnershipPercentage.Div(decimal.NewFromInt(100))
}

// NCIShare returns 1 - ownership fraction.
func (e Entity) NCIShare() decimal.Decimal {
	return decimal.NewFromInt(1).Sub(e.OwnershipFraction())
}

// AccountClass is the top-level statement classification of an account.
type AccountClass string

const (
	ClassAsset     AccountClass = "asset"
	ClassLiability AccountClass = "liability"
	ClassEquity    AccountClass = "equity"
	ClassRevenue   AccountClass = "revenue"
	ClassExpense   AccountClass = "expense"
	ClassOCI       AccountClass = "oci"
)

// DebitNormal reports whether the class increases with debits.
func (c AccountClass) DebitNormal() bool {
	return c == ClassAsset || c == ClassExpense
}

// Account categories refine classes for the statement formulas.
const (
	CategoryCostOfSales      = "cost_of_sales"
	CategoryOperatingExpense = "operating_expense"
	CategoryFinanceCost      = "finance_cost"
	CategoryTaxExpense       = "tax_expense"
	CategoryDividend         = "dividend"
	CategoryRetainedEarnings = "retained_earnings"
	CategoryShareCapital     = "share_capital"
	CategoryOther            = "other"
)

// Account is a chart-of-accounts entry.
type Account struct {
	Code     string       `json:"code" yaml:"code" validate:"required"`
	Name     string       `json:"name" yaml:"name"`
	Class    AccountClass `json:"class" yaml:"class" validate:"oneof=asset liability equity revenue expense oci"`
	Category string       `json:"category,omitempty" yaml:"category,omitempty"`
	Monetary bool         `json:"monetary" yaml:"monetary"`
}

// RateType distinguishes FX rate flavours.
type RateType string

const (
	RateClosing    RateType = "closing"
	RateAverage    RateType = "average"
	RateHistorical RateType = "historical"
)

// FXRate is a dated conversion rate. (From, To, RateType, Date) is unique.
type FXRate struct {
	From     string          `json:"from_currency" yaml:"from" validate:"required,currency"`
	To       string          `json:"to_currency" yaml:"to" validate:"required,currency,nefield=From"`
	RateType RateType        `json:"rate_type" yaml:"rate_type" validate:"oneof=closing average historical"`
	Date     string          `json:"date" yaml:"date" validate:"required,datetime=2006-01-02"`
	Rate     decimal.Decimal `json:"rate_value" yaml:"rate" validate:"gt=0"`
}

// Key returns the unique key of the rate.
func (r FXRate) Key() FXKey {
	return FXKey{From: r.From, To: r.To, RateType: r.RateType, Date: r.Date}
}

// FXKey identifies a required rate.
type FXKey struct {
	From     string   `json:"from_currency"`
	To       string   `json:"to_currency"`
	RateType RateType `json:"rate_type"`
	Date     string   `json:"date"`
}

func (k FXKey) String() string {
	return k.From + "/" + k.To + " " + string(k.RateType) + " @" + k.Date
}

// Elimination rule types.
const (
	RuleFullElimination = "full_elimination"
	RuleSuspense        = "suspense"
)

// EliminationRule selects how an intercompany group is eliminated.
// Empty EntityA, EntityB or AccountClass act as wildcards.
type EliminationRule struct {
	ID              string `json:"id" yaml:"id" validate:"required"`
	RuleType        string `json:"rule_type" yaml:"rule_type" validate:"oneof=full_elimination suspense"`
	EntityA         string `json:"entity_a,omitempty" yaml:"entity_a,omitempty"`
	EntityB         string `json:"entity_b,omitempty" yaml:"entity_b,omitempty"`
	AccountClass    string `json:"account_class,omitempty" yaml:"account_class,omitempty"`
	Priority        int    `json:"priority" yaml:"priority"`
	Enabled         bool   `json:"enabled" yaml:"enabled"`
	Required        bool   `json:"required" yaml:"required"`
	SuspenseAccount string `json:"suspense_account,omitempty" yaml:"suspense_account,omitempty" validate:"required_if=RuleType suspense"`
}

// IntercompanyTransaction is one side of an intercompany balance.
// Amount is signed, debit positive.
type IntercompanyTransaction struct {
	ID               string          `json:"id" yaml:"id" validate:"required"`
	EntityCode       string          `json:"entity_code" yaml:"entity" validate:"required"`
	CounterpartyCode string          `json:"counterparty_code" yaml:"counterparty" validate:"required,nefield=EntityCode"`
	AccountCode      string          `json:"account_code" yaml:"account" validate:"required"`
	ICClass          string          `json:"ic_class" yaml:"ic_class" validate:"required"`
	Period           string          `json:"period" yaml:"period" validate:"required,period"`
	Amount           decimal.Decimal `json:"amount" yaml:"amount"`
	Currency         string          `json:"currency" yaml:"currency" validate:"required,currency"`
}

// LedgerBalance is the closing balance of one account for one entity and
// period, stored in the account's natural sign.
type LedgerBalance struct {
	EntityCode  string          `json:"entity_code" yaml:"entity" validate:"required"`
	AccountCode string          `json:"account_code" yaml:"account" validate:"required"`
	Period      string          `json:"period" yaml:"period" validate:"required,period"`
	Amount      decimal.Decimal `json:"amount" yaml:"amount"`
	Currency    string          `json:"currency" yaml:"currency" validate:"required,currency"`
	Version     int64           `json:"version" yaml:"-"`
}

// BalanceKey identifies a ledger row.
type BalanceKey struct {
	EntityCode  string
	AccountCode string
	Period      string
}

// Key returns the row key of the balance.
func (b LedgerBalance) Key() BalanceKey {
	return BalanceKey{EntityCode: b.EntityCode, AccountCode: b.AccountCode, Period: b.Period}
}
