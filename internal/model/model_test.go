package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestPeriodHelpers(t *testing.T) {
	end, err := PeriodEnd("2024-02")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", end, "leap year February")

	end, err = PeriodEnd("2023-12")
	require.NoError(t, err)
	assert.Equal(t, "2023-12-31", end)

	prev, err := PreviousPeriod("2024-01")
	require.NoError(t, err)
	assert.Equal(t, "2023-12", prev)

	assert.Equal(t, "2025-12", DefaultPeriod(2025))

	for _, bad := range []string{"", "2024", "2024-13", "2024-1", "24-01", "2024-01-31"} {
		assert.False(t, ValidPeriod(bad), bad)
	}
}

func TestMarshalCanonicalSortsKeysAndKeepsDecimals(t *testing.T) {
	v := map[string]any{
		"b":      1,
		"a":      "x<y",
		"amount": d("10.50"),
	}
	out, err := MarshalCanonical(v)
	require.NoError(t, err)
	assert.Equal(t, `{"a":"x<y","amount":"10.5","b":1}`, string(out))
}

func TestMarshalCanonicalNormalizesStrings(t *testing.T) {
	composed, err := MarshalCanonical("caf\u00e9")
	require.NoError(t, err)
	decomposed, err := MarshalCanonical("cafe\u0301")
	require.NoError(t, err)
	assert.Equal(t, composed, decomposed)
}

func TestRunDigestIgnoresIdentityAndTimestamps(t *testing.T) {
	base := RunResult{
		RunID:     "run-1",
		ProcessID: "p1",
		RunType:   RunSimulation,
		Period:    "2024-12",
		Status:    RunCompleted,
		Order:     []string{"a", "b"},
		Nodes: map[string]NodeResult{
			"a": {NodeID: "a", Status: NodeSucceeded, Outputs: map[string]any{"profit": d("100")}},
		},
		Deltas:    []LedgerDelta{{EntityCode: "S1", AccountCode: "NCI", Period: "2024-12", Amount: d("20")}},
		StartedAt: time.Unix(1, 0),
	}
	other := base
	other.RunID = "run-2"
	other.StartedAt = time.Unix(99, 0)
	other.FinishedAt = time.Unix(100, 0)

	d1, err := RunDigest(base)
	require.NoError(t, err)
	d2, err := RunDigest(other)
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
	assert.Len(t, d1, 64)

	other.Deltas = []LedgerDelta{{EntityCode: "S1", AccountCode: "NCI", Period: "2024-12", Amount: d("21")}}
	d3, err := RunDigest(other)
	require.NoError(t, err)
	assert.NotEqual(t, d1, d3)
}

func TestJournalEntryDeltasUseNaturalSign(t *testing.T) {
	accounts := map[string]Account{
		"CASH": {Code: "CASH", Class: ClassAsset},
		"NCI":  {Code: "NCI", Class: ClassEquity},
	}
	var e JournalEntry
	e.ID = "je-1"
	e.Period = "2024-12"
	e.Debit("S1", "CASH", d("50")).Credit("S1", "NCI", d("50"))
	assert.True(t, e.Balanced(Tolerance))

	deltas, err := e.Deltas(accounts)
	require.NoError(t, err)
	require.Len(t, deltas, 2)
	assert.True(t, deltas[0].Amount.Equal(d("50")))
	assert.True(t, deltas[1].Amount.Equal(d("50")), "credit to equity increases natural balance")

	e.Debit("S1", "UNKNOWN", d("1"))
	_, err = e.Deltas(accounts)
	assert.Error(t, err)
}

func TestEntityValidation(t *testing.T) {
	good := Entity{
		Code:                "S1",
		OwnershipPercentage: d("80"),
		FunctionalCurrency:  "EUR",
		ReportingCurrency:   "USD",
		Method:              MethodFull,
		AcquisitionDate:     "2020-01-01",
	}
	require.NoError(t, Validate(good))
	assert.True(t, good.NCIShare().Equal(d("0.2")))

	bad := good
	bad.OwnershipPercentage = d("120")
	bad.FunctionalCurrency = "XXQ"
	err := Validate(bad)
	require.Error(t, err)
	fields := FieldErrors(Validator().Struct(bad))
	assert.Equal(t, "lte", fields["Entity.OwnershipPercentage"])
	assert.Equal(t, "currency", fields["Entity.FunctionalCurrency"])
}

func TestFXRateYAMLDecodesDecimal(t *testing.T) {
	var r FXRate
	require.NoError(t, yaml.Unmarshal([]byte("from: EUR\nto: USD\nrate_type: closing\ndate: 2024-12-31\nrate: 1.10\n"), &r))
	assert.True(t, r.Rate.Equal(d("1.1")))
	assert.Equal(t, "EUR/USD closing @2024-12-31", r.Key().String())
	assert.NoError(t, Validate(r))
}

func TestNodeEnabledDefaultsToTrue(t *testing.T) {
	var fromJSON Node
	require.NoError(t, json.Unmarshal([]byte(`{"id":"fx","type":"fx_translation"}`), &fromJSON))
	assert.True(t, fromJSON.Enabled)

	require.NoError(t, json.Unmarshal([]byte(`{"id":"fx","type":"fx_translation","enabled":false}`), &fromJSON))
	assert.False(t, fromJSON.Enabled)

	var fromYAML Node
	require.NoError(t, yaml.Unmarshal([]byte("id: ic\ntype: intercompany_elimination\n"), &fromYAML))
	assert.True(t, fromYAML.Enabled)
	assert.Equal(t, NodeType("intercompany_elimination"), fromYAML.Type)

	require.NoError(t, yaml.Unmarshal([]byte("id: ic\ntype: intercompany_elimination\nenabled: false\n"), &fromYAML))
	assert.False(t, fromYAML.Enabled)
}

func TestRoundToCurrency(t *testing.T) {
	assert.Equal(t, "1.24", RoundToCurrency(d("1.235"), "USD").String())
	assert.Equal(t, "124", RoundToCurrency(d("123.5"), "JPY").String())
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "SUB1", NormalizeCode("  sub1 "))
}
