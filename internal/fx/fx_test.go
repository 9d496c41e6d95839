package fx

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/model"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var accounts = map[string]model.Account{
	"ASSETS":   {Code: "ASSETS", Class: model.ClassAsset, Monetary: true},
	"PPE":      {Code: "PPE", Class: model.ClassAsset},
	"DEBT":     {Code: "DEBT", Class: model.ClassLiability, Monetary: true},
	"CAPITAL":  {Code: "CAPITAL", Class: model.ClassEquity, Category: model.CategoryShareCapital},
	"REVENUE":  {Code: "REVENUE", Class: model.ClassRevenue},
	"EXPENSES": {Code: "EXPENSES", Class: model.ClassExpense},
	"CTA":      {Code: "CTA", Class: model.ClassOCI},
	"FXGAIN":   {Code: "FXGAIN", Class: model.ClassRevenue},
	"TRANSOFF": {Code: "TRANSOFF", Class: model.ClassEquity},
}

func entityC() model.Entity {
	return model.Entity{
		Code:                "C",
		ParentCode:          "A",
		OwnershipPercentage: d("100"),
		FunctionalCurrency:  "EUR",
		ReportingCurrency:   "USD",
		Method:              model.MethodFull,
		AcquisitionDate:     "2020-01-01",
	}
}

func rates() []model.FXRate {
	return []model.FXRate{
		{From: "EUR", To: "USD", RateType: model.RateClosing, Date: "2024-12-31", Rate: d("1.10")},
		{From: "EUR", To: "USD", RateType: model.RateAverage, Date: "2024-12-31", Rate: d("1.08")},
		{From: "EUR", To: "USD", RateType: model.RateHistorical, Date: "2020-01-01", Rate: d("1.20")},
	}
}

// Assets 200,000 = capital 150,000 + profit 50,000.
func balances() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"ASSETS":  d("200000"),
		"CAPITAL": d("150000"),
		"REVENUE": d("50000"),
	}
}

func TestTranslateCurrentRateScenario(t *testing.T) {
	res, err := Translate(NewRateBook(rates()), Request{
		NodeID:        "fx1",
		Entity:        entityC(),
		Period:        "2024-12",
		Balances:      balances(),
		Accounts:      accounts,
		CTAAccount:    "CTA",
		OffsetAccount: "TRANSOFF",
	})
	require.NoError(t, err)

	assert.Equal(t, "USD", res.Currency)
	assert.True(t, res.Translated["REVENUE"].Equal(d("54000")), "revenue at average 1.08")
	assert.True(t, res.Translated["ASSETS"].Equal(d("220000")), "assets at closing 1.10")
	assert.True(t, res.Translated["CAPITAL"].Equal(d("180000")), "equity at historical 1.20")

	// 220,000 - (180,000 + 54,000) = -14,000
	assert.True(t, res.CTA.Equal(d("-14000")), res.CTA.String())
	assert.True(t, res.CTAToOCI.Equal(res.CTA))
	assert.True(t, res.Profit.Equal(d("54000")))
	assert.True(t, res.Translated["CTA"].Equal(d("-14000")))

	assert.True(t, res.Entry.Balanced(model.Tolerance))
	require.Len(t, res.Entry.Lines, 2)
	assert.Equal(t, "TRANSOFF", res.Entry.Lines[0].AccountCode)
	assert.Equal(t, "USD", res.Entry.Currency)

	// The translated trial balance balances once the plug is included.
	lhs := res.Translated["ASSETS"]
	rhs := res.Translated["CAPITAL"].Add(res.Translated["REVENUE"]).Add(res.Translated["CTA"])
	assert.True(t, lhs.Equal(rhs))
}

func TestTranslateCTAToPnL(t *testing.T) {
	res, err := Translate(NewRateBook(rates()), Request{
		NodeID:        "fx1",
		Entity:        entityC(),
		Period:        "2024-12",
		Balances:      balances(),
		Accounts:      accounts,
		CTALocation:   CTAToPnL,
		CTAAccount:    "CTA",
		GainLossAcct:  "FXGAIN",
		OffsetAccount: "TRANSOFF",
	})
	require.NoError(t, err)
	assert.True(t, res.CTAToOCI.IsZero())
	assert.True(t, res.Profit.Equal(d("40000")), "54,000 revenue less 14,000 translation loss")
	assert.True(t, res.Translated["FXGAIN"].Equal(d("-14000")))
	assert.Equal(t, "FXGAIN", res.Entry.Lines[1].AccountCode)
}

func TestTranslateRejectsPlugOutsideItsLocation(t *testing.T) {
	_, err := Translate(NewRateBook(rates()), Request{
		NodeID: "fx1", Entity: entityC(), Period: "2024-12", Balances: balances(), Accounts: accounts,
		CTAAccount: "TRANSOFF", OffsetAccount: "CTA",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `CTA account "TRANSOFF" has class equity and cannot carry CTA booked to oci`)

	_, err = Translate(NewRateBook(rates()), Request{
		NodeID: "fx1", Entity: entityC(), Period: "2024-12", Balances: balances(), Accounts: accounts,
		CTALocation: CTAToPnL, GainLossAcct: "CTA", OffsetAccount: "TRANSOFF",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `CTA account "CTA" has class oci and cannot carry CTA booked to pnl`)
}

func TestTranslateTemporalUsesHistoricalForNonMonetary(t *testing.T) {
	bal := map[string]decimal.Decimal{"ASSETS": d("100"), "PPE": d("100"), "CAPITAL": d("200")}
	res, err := Translate(NewRateBook(rates()), Request{
		NodeID: "fx1", Entity: entityC(), Period: "2024-12", Balances: bal, Accounts: accounts,
		Method: MethodTemporal, CTAAccount: "CTA", OffsetAccount: "TRANSOFF",
	})
	require.NoError(t, err)
	assert.True(t, res.Translated["ASSETS"].Equal(d("110")))
	assert.True(t, res.Translated["PPE"].Equal(d("120")))
}

func TestTranslateMissingRateRecordsAllKeys(t *testing.T) {
	book := NewRateBook(rates()[:1]) // closing only
	_, err := Translate(book, Request{
		NodeID: "fx1", Entity: entityC(), Period: "2024-12", Balances: balances(), Accounts: accounts,
		CTAAccount: "CTA", OffsetAccount: "TRANSOFF",
	})
	require.Error(t, err)
	assert.True(t, IsRateNotFound(err))

	var missing []string
	for _, ref := range book.References() {
		if !ref.Found {
			missing = append(missing, ref.Key.String())
		}
	}
	assert.Equal(t, []string{
		"EUR/USD average @2024-12-31",
		"EUR/USD historical @2020-01-01",
	}, missing)
}

func TestRateBookInverseAndIdentity(t *testing.T) {
	book := NewRateBook([]model.FXRate{{From: "USD", To: "GBP", RateType: model.RateClosing, Date: "2024-12-31", Rate: d("0.8")}})

	r, err := book.Rate("GBP", "USD", model.RateClosing, "2024-12-31")
	require.NoError(t, err)
	assert.True(t, r.Equal(d("1.25")))

	r, err = book.Rate("EUR", "EUR", model.RateAverage, "2024-12-31")
	require.NoError(t, err)
	assert.True(t, r.Equal(decimal.NewFromInt(1)))

	_, err = book.Rate("JPY", "USD", model.RateClosing, "2024-12-31")
	assert.True(t, IsRateNotFound(err))
	assert.Len(t, book.References(), 2, "identity lookups are not recorded")
}
