package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/model"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/nodes"
)

func TestAuditTrailAfterRuns(t *testing.T) {
	db := seededDB(t)
	_, err := executeRun(t, runCmd("text", "run-1"), procID, "--db", db)
	require.NoError(t, err)
	_, err = executeRun(t, runCmd("text", "run-2"), procID, "--db", db, "--type", "commit")
	require.NoError(t, err)

	out, err := execute(t, NewAuditCommand(&RootOptions{Format: "json"}), procID, "--db", db)
	require.NoError(t, err)

	var result AuditResult
	decode(t, out, &result)
	assert.Equal(t, 2, result.Stats.Runs)
	assert.Equal(t, len(result.Entries), result.Stats.Total)
	assert.Equal(t, 2, result.Stats.ByAction[model.AuditRunStarted])
	assert.Equal(t, 2, result.Stats.ByAction[model.AuditRunFinished])
	assert.Equal(t, 20, result.Stats.ByAction[model.AuditNodeSucceeded])
	assert.Positive(t, result.Stats.ByAction[model.AuditCommitApplied])

	for i := 1; i < len(result.Entries); i++ {
		assert.Greater(t, result.Entries[i].Seq, result.Entries[i-1].Seq, "entries ordered by sequence")
	}
	assert.Equal(t, "run-1", result.Entries[0].RunID)
	assert.Equal(t, model.AuditRunStarted, result.Entries[0].Action)
}

func TestAuditFilters(t *testing.T) {
	db := seededDB(t)
	_, err := executeRun(t, runCmd("text", "run-1"), procID, "--db", db)
	require.NoError(t, err)
	_, err = executeRun(t, runCmd("text", "run-2"), procID, "--db", db, "--type", "commit")
	require.NoError(t, err)

	out, err := execute(t, NewAuditCommand(&RootOptions{Format: "json"}), procID, "--db", db, "--run", "run-2", "--action", model.AuditCommitApplied)
	require.NoError(t, err)

	var result AuditResult
	decode(t, out, &result)
	require.NotEmpty(t, result.Entries)
	assert.Equal(t, 1, result.Stats.Runs)
	for _, e := range result.Entries {
		assert.Equal(t, "run-2", e.RunID)
		assert.Equal(t, model.AuditCommitApplied, e.Action)
		assert.NotEmpty(t, e.After)
	}
}

func TestAuditText(t *testing.T) {
	db := seededDB(t)
	_, err := executeRun(t, runCmd("text", "run-1"), procID, "--db", db)
	require.NoError(t, err)

	out, err := execute(t, NewAuditCommand(&RootOptions{Format: "text"}), procID, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Audit trail for consol-2024")
	assert.Contains(t, out, "run_started")
	assert.Contains(t, out, "[eq]")
}

func TestAuditUnknownRun(t *testing.T) {
	db := seededDB(t)

	out, err := execute(t, NewAuditCommand(&RootOptions{Format: "text"}), procID, "--db", db, "--run", "run-9")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
}

func TestCatalogListsEveryNodeType(t *testing.T) {
	out, err := execute(t, NewCatalogCommand(&RootOptions{Format: "json"}))
	require.NoError(t, err)

	var contracts []model.Contract
	decode(t, out, &contracts)
	require.Len(t, contracts, len(nodes.Catalog))
	assert.Equal(t, model.NodeOpeningBalance, contracts[0].Type)
}

func TestCatalogCategory(t *testing.T) {
	out, err := execute(t, NewCatalogCommand(&RootOptions{Format: "text"}), "--category", "currency")
	require.NoError(t, err)
	assert.Contains(t, out, "fx_translation (currency)")
	assert.NotContains(t, out, "profit_loss")

	_, err = execute(t, NewCatalogCommand(&RootOptions{Format: "text"}), "--category", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
