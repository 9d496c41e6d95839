package nodes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/compiler"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/engine"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/graph"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/model"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/testutil"
)

var d = testutil.D

func run(t *testing.T, proc model.ProcessDefinition, ref *engine.RefData) (map[string]model.NodeResult, *engine.Context) {
	t.Helper()
	reg := MustNewRegistry()
	require.NoError(t, graph.Validate(proc.Nodes, proc.Connections, reg))
	plan, err := graph.NewPlan(proc)
	require.NoError(t, err)
	rc := engine.NewContext(ref, plan, reg)
	results := engine.NewRunner(reg, engine.WithParallelism(4)).Execute(context.Background(), rc)
	return results, rc
}

func amounts(t *testing.T, rc *engine.Context, nodeID, name string) engine.Amounts {
	t.Helper()
	v, ok := rc.Output(nodeID, name)
	require.True(t, ok, "%s.%s missing", nodeID, name)
	a, ok := v.(engine.Amounts)
	require.True(t, ok, "%s.%s is %T", nodeID, name, v)
	return a
}

func assertAmount(t *testing.T, want string, got engine.Amounts, key string) {
	t.Helper()
	assert.True(t, got[key].Equal(d(want)), "%s: want %s, got %s", key, want, got[key])
}

func TestRegistryCatalog(t *testing.T) {
	reg := MustNewRegistry()
	contracts := reg.Contracts()
	require.Len(t, contracts, len(model.NodeTypes))
	for i, c := range contracts {
		assert.Equal(t, model.NodeTypes[i], c.Type)
		assert.NotEmpty(t, c.DisplayName)
		assert.NotEmpty(t, c.Outputs)
		_, ok := reg.Executor(c.Type)
		assert.True(t, ok)
	}
	_, ok := reg.Contract("bogus")
	assert.False(t, ok)
}

func TestRegistryDecodeAppliesDefaults(t *testing.T) {
	reg := MustNewRegistry()

	cfg, err := reg.Decode(model.Node{ID: "n", Type: model.NodeNCIHandling})
	require.NoError(t, err)
	nciCfg, ok := cfg.(*NCIConfig)
	require.True(t, ok)
	assert.Equal(t, "proportionate_share", string(nciCfg.Method))
	assert.Equal(t, "current", string(nciCfg.Timing))
	assert.Equal(t, "NCI", nciCfg.NCIEquityAccount)

	cfg, err = reg.Decode(model.Node{ID: "dt", Type: model.NodeDeferredTax, Config: map[string]any{"tax_rate": 0.25}})
	require.NoError(t, err)
	assert.True(t, cfg.(*DeferredTaxConfig).TaxRate.Equal(d("0.25")))
}

func TestRegistryCheckConfigRejectsBadConfig(t *testing.T) {
	reg := MustNewRegistry()
	err := reg.CheckConfig(model.Node{ID: "fx", Type: model.NodeFXTranslation, Config: map[string]any{"method": "spot"}})
	require.Error(t, err)
	assert.True(t, compiler.IsConfigError(err))

	err = graph.Validate([]model.Node{{ID: "dt", Type: model.NodeDeferredTax, Enabled: true, Config: map[string]any{"tax_rate": 0.3}}}, nil, reg)
	require.Error(t, err)
	ge, ok := graph.AsGraphError(err)
	require.True(t, ok)
	// No fair value producer upstream.
	assert.True(t, ge.Has(graph.ErrCodeOrphanNode))
}

func TestPipelineValues(t *testing.T) {
	results, rc := run(t, testutil.Pipeline(), testutil.RefData())
	for id, res := range results {
		require.Equal(t, model.NodeSucceeded, res.Status, "node %s: %+v", id, res.Error)
	}

	assertAmount(t, "200000", amounts(t, rc, "ob", OutOpeningRE), "S")
	assertAmount(t, "100000", amounts(t, rc, "pl", OutProfit), "S")
	assertAmount(t, "150000", amounts(t, rc, "pl", OutGrossMargin), "S")
	assertAmount(t, "100000", amounts(t, rc, "pl", OutOperatingProfit), "S")
	assertAmount(t, "200000", amounts(t, rc, "pl", OutProfit), "P")

	closing := amounts(t, rc, "re", OutClosingRE)
	assertAmount(t, "290000", closing, "S")
	assertAmount(t, "200000", closing, "P")

	assertAmount(t, "-14000", amounts(t, rc, "fx", OutCTA), "F")
	assertAmount(t, "54000", amounts(t, rc, "fx", OutTranslatedProfit), "F")
	assertAmount(t, "-14000", amounts(t, rc, "oci", OutOCITotal), "F")
	assert.True(t, rc.Translated("F"))
	assert.False(t, rc.Translated("S"))

	assertAmount(t, "20000", amounts(t, rc, "nci", OutNCIProfit), "S")
	assertAmount(t, "80000", amounts(t, rc, "nci", OutParentProfit), "S")
	assertAmount(t, "120000", amounts(t, rc, "nci", OutNCIEquity), "S")
	assertAmount(t, "0", amounts(t, rc, "nci", OutNCIEquity), "P")

	total := amounts(t, rc, "eq", OutTotalEquity)
	assertAmount(t, "590000", total, "S")
	raw, ok := rc.Output("eq", OutEquityStatement)
	require.True(t, ok)
	var sLine EquityLine
	for _, line := range raw.([]EquityLine) {
		if line.Entity == "S" {
			sLine = line
		}
	}
	assert.True(t, sLine.ParentEquity.Equal(d("470000")), sLine.ParentEquity.String())

	assertAmount(t, "2500", amounts(t, rc, "dt", OutDeferredTax), "S")
}

func TestPipelineEntriesBalance(t *testing.T) {
	_, rc := run(t, testutil.Pipeline(), testutil.RefData())

	entries := rc.Entries()
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		assert.True(t, e.Balanced(model.Tolerance), "entry %s nets %s", e.ID, e.Net())
		ids = append(ids, e.ID)
	}
	assert.Contains(t, ids, "fx/cta/F")
	assert.Contains(t, ids, "ic/elim/P|S|trade")
	assert.Contains(t, ids, "fv/fv/0")
	assert.Contains(t, ids, "dt/dtl/0")
	assert.Contains(t, ids, "nci/nci/S")

	for _, dl := range rc.Deltas() {
		assert.NotEqual(t, "F", dl.EntityCode, "translation stays out of the EUR ledger: %+v", dl)
	}

	groups := rc.Groups()
	require.Len(t, groups, 1)
	assert.True(t, groups[0].Residual.IsZero())

	refs := rc.FXReferences()
	require.NotEmpty(t, refs)
	for _, r := range refs {
		assert.True(t, r.Found, "%s", r.Key)
	}
}

func TestFXTranslationMissingRateFailsOnlyItsBranch(t *testing.T) {
	ref := testutil.RefData()
	ref.Rates = ref.Rates[:1] // closing only

	results, rc := run(t, testutil.Pipeline(), ref)

	assert.Equal(t, model.NodeFailed, results["fx"].Status)
	require.NotNil(t, results["fx"].Error)
	assert.Equal(t, string(engine.ErrCodeFXRateNotFound), results["fx"].Error.Code)
	assert.Equal(t, model.NodeDependencyFailed, results["oci"].Status)
	assert.Equal(t, model.NodeDependencyFailed, results["nci"].Status)
	assert.Equal(t, model.NodeDependencyFailed, results["eq"].Status)
	assert.Equal(t, model.NodeSucceeded, results["pl"].Status)
	assert.Equal(t, model.NodeSucceeded, results["re"].Status)
	assert.Equal(t, model.NodeSucceeded, results["ic"].Status)

	var missing []string
	for _, r := range rc.FXReferences() {
		if !r.Found {
			missing = append(missing, r.Key.String())
		}
	}
	assert.Equal(t, []string{"EUR/USD average @2024-12-31", "EUR/USD historical @2020-01-01"}, missing)
	assert.False(t, rc.Translated("F"))
}

func TestIntercompanyRequiredResidualFailsNode(t *testing.T) {
	ref := testutil.RefData()
	ref.Transactions[1].Amount = d("-4000")
	ref.Rules[0].Required = true

	proc := model.ProcessDefinition{
		ID: "ic-only",
		Nodes: []model.Node{
			{ID: "ic", Type: model.NodeIntercompanyElimination, Enabled: true},
		},
	}
	results, rc := run(t, proc, ref)

	res := results["ic"]
	assert.Equal(t, model.NodeFailed, res.Status)
	require.NotNil(t, res.Error)
	assert.Equal(t, string(engine.ErrCodeUnmatchedIntercompanyBalance), res.Error.Code)
	assert.Equal(t, "R-ALL", res.Error.RuleID)
	assert.Equal(t, "1000.00", res.Error.Details["residual"])

	// Groups survive the failure for the net-zero check.
	require.Len(t, rc.Groups(), 1)
	assert.True(t, rc.Groups()[0].Required)
}

func TestIntercompanySoftResidualWarns(t *testing.T) {
	ref := testutil.RefData()
	ref.Transactions[1].Amount = d("-4000")

	proc := model.ProcessDefinition{
		ID:    "ic-only",
		Nodes: []model.Node{{ID: "ic", Type: model.NodeIntercompanyElimination, Enabled: true}},
	}
	results, rc := run(t, proc, ref)

	assert.Equal(t, model.NodeSucceeded, results["ic"].Status)
	warnings := rc.Warnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, "UnmatchedIntercompanyBalance", warnings[0].Code)
	assert.Equal(t, "ic", warnings[0].NodeID)
	assert.Equal(t, model.SeverityWarning, warnings[0].Severity)
}

func TestConfiguredUnknownEntityIsInvalidConfiguration(t *testing.T) {
	proc := model.ProcessDefinition{
		ID: "pl-only",
		Nodes: []model.Node{{
			ID: "pl", Type: model.NodeProfitLoss, Enabled: true,
			Config: map[string]any{"entities": []any{"nope"}},
		}},
	}
	results, _ := run(t, proc, testutil.RefData())
	require.NotNil(t, results["pl"].Error)
	assert.Equal(t, string(engine.ErrCodeInvalidConfiguration), results["pl"].Error.Code)
}

func TestNCIFairValueAtAcquisition(t *testing.T) {
	proc := model.ProcessDefinition{
		ID: "nci",
		Nodes: []model.Node{
			{ID: "pl", Type: model.NodeProfitLoss, Enabled: true},
			{ID: "nci", Type: model.NodeNCIHandling, Enabled: true, SequenceOrder: 1, Config: map[string]any{
				"method":   "fair_value",
				"timing":   "at_acquisition",
				"entities": []any{"S"},
				"acquisition": map[string]any{
					"S": map[string]any{"net_assets": 400000, "fair_value": 90000},
				},
			}},
		},
		Connections: []model.Connection{{From: "pl", To: "nci"}},
	}
	results, rc := run(t, proc, testutil.RefData())
	require.Equal(t, model.NodeSucceeded, results["nci"].Status, "%+v", results["nci"].Error)
	// 90,000 + 20% x 100,000
	assertAmount(t, "110000", amounts(t, rc, "nci", OutNCIEquity), "S")
}

func TestNCIOnForeignSubsidiaryUsesTranslatedFigures(t *testing.T) {
	ref := testutil.RefData()
	f := ref.Entities["F"]
	f.OwnershipPercentage = d("80")
	ref.Entities["F"] = f

	results, rc := run(t, testutil.Pipeline(), ref)
	require.Equal(t, model.NodeSucceeded, results["nci"].Status, "%+v", results["nci"].Error)

	// 20% of 54,000 USD translated profit, not of 50,000 EUR.
	assertAmount(t, "10800", amounts(t, rc, "nci", OutNCIProfit), "F")
	assertAmount(t, "43200", amounts(t, rc, "nci", OutParentProfit), "F")
	// 20% x (180,000 capital + 54,000 profit - 14,000 CTA) = 20% of 220,000 net assets.
	assertAmount(t, "44000", amounts(t, rc, "nci", OutNCIEquity), "F")

	var posted bool
	for _, e := range rc.Entries() {
		if e.ID != "nci/nci/F" {
			continue
		}
		posted = true
		assert.Equal(t, "USD", e.Currency)
		require.Len(t, e.Lines, 2)
		assert.Equal(t, "P", e.Lines[0].EntityCode)
		assert.True(t, e.Lines[0].Amount.Equal(d("44000")), e.Lines[0].Amount.String())
	}
	assert.True(t, posted, "NCI allocation for F")
}

func TestForeignEntityWithoutTranslationIsInvalidConfiguration(t *testing.T) {
	proc := model.ProcessDefinition{
		ID: "no-fx",
		Nodes: []model.Node{
			{ID: "pl", Type: model.NodeProfitLoss, Enabled: true},
			{ID: "oci", Type: model.NodeOCI, Enabled: true},
			{ID: "nci", Type: model.NodeNCIHandling, Enabled: true, SequenceOrder: 1},
		},
		Connections: []model.Connection{{From: "pl", To: "nci"}},
	}
	results, _ := run(t, proc, testutil.RefData())

	for _, id := range []string{"oci", "nci"} {
		res := results[id]
		assert.Equal(t, model.NodeFailed, res.Status, id)
		require.NotNil(t, res.Error, id)
		assert.Equal(t, string(engine.ErrCodeInvalidConfiguration), res.Error.Code, id)
		assert.Contains(t, res.Error.Message, "entity F keeps its ledger in EUR but reports in USD", id)
	}
}
