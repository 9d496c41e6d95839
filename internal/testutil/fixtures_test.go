package testutil

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/model"
)

func TestFixtureTrialBalancesBalance(t *testing.T) {
	ref := RefData()
	for _, period := range []string{"2024-11", Period} {
		for _, code := range ref.EntityCodes() {
			lhs := ref.SumByClass(code, period, model.ClassAsset)
			rhs := ref.SumByClass(code, period, model.ClassLiability).
				Add(ref.SumByClass(code, period, model.ClassEquity)).
				Add(ref.SumByClass(code, period, model.ClassRevenue)).
				Sub(ref.SumByClass(code, period, model.ClassExpense)).
				Add(ref.SumByClass(code, period, model.ClassOCI))
			assert.True(t, lhs.Equal(rhs), "%s %s: %s != %s", code, period, lhs, rhs)
		}
	}
}

func TestFixtureReferenceDataIsValid(t *testing.T) {
	for _, e := range Entities() {
		require.NoError(t, model.Validate(e))
	}
	for _, r := range Rates() {
		require.NoError(t, model.Validate(r))
	}
	for _, b := range Balances() {
		require.NoError(t, model.Validate(b))
	}
	for _, txn := range Transactions() {
		require.NoError(t, model.Validate(txn))
	}
	require.NoError(t, model.Validate(Pipeline()))
}

func TestFixtureIntercompanyNetsToZero(t *testing.T) {
	sum := decimal.Zero
	for _, txn := range Transactions() {
		sum = sum.Add(txn.Amount)
	}
	assert.True(t, sum.IsZero())
}
