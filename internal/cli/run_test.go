package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/engine"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/model"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/run"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/store"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/testutil"
)

// runCmd builds a run command whose runs get the given ids.
func runCmd(format string, ids ...string) *RunOptions {
	opts := &RunOptions{RootOptions: &RootOptions{Format: format}}
	opts.ManagerOptions = []run.Option{run.WithIDGenerator(engine.NewFixedGenerator(ids...))}
	return opts
}

func executeRun(t *testing.T, opts *RunOptions, args ...string) (string, error) {
	t.Helper()
	return execute(t, newRunCommand(opts), args...)
}

func TestRunSimulation(t *testing.T) {
	db := seededDB(t)

	out, err := executeRun(t, runCmd("json", "run-1"), procID, "--db", db, "--period", testutil.Period)
	require.NoError(t, err)

	var res model.RunResult
	resp := decode(t, out, &res)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, model.RunCompleted, res.Status)
	assert.Equal(t, model.RunSimulation, res.RunType)
	assert.False(t, res.Committed)
	assert.Len(t, res.Order, 10)
	assert.NotEmpty(t, res.Digest)

	withStore(t, db, func(ctx context.Context, st *store.Store) {
		stored, err := st.LoadRun(ctx, "run-1")
		require.NoError(t, err)
		assert.Equal(t, res.Digest, stored.Digest)
		_, err = st.Balance(ctx, model.BalanceKey{EntityCode: "S", AccountCode: "PPE", Period: testutil.Period})
		assert.True(t, store.IsNotFound(err), "simulation leaves the ledger alone")
	})
}

func TestRunPeriodDefaultsToFiscalYearEnd(t *testing.T) {
	db := seededDB(t)

	out, err := executeRun(t, runCmd("text", "run-1"), procID, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Run run-1: completed")
	assert.Contains(t, out, "period:  2024-12")
	assert.Contains(t, out, "Digest: ")
}

func TestRunCommitWritesLedger(t *testing.T) {
	db := seededDB(t)

	out, err := executeRun(t, runCmd("text", "run-1"), procID, "--db", db, "--type", "commit")
	require.NoError(t, err)
	assert.Contains(t, out, "(committed)")

	withStore(t, db, func(ctx context.Context, st *store.Store) {
		ppe, err := st.Balance(ctx, model.BalanceKey{EntityCode: "S", AccountCode: "PPE", Period: testutil.Period})
		require.NoError(t, err)
		assert.Equal(t, "10000", ppe.Amount.String())
		dtl, err := st.Balance(ctx, model.BalanceKey{EntityCode: "S", AccountCode: "DEFERRED_TAX_LIABILITY", Period: testutil.Period})
		require.NoError(t, err)
		assert.Equal(t, "2500", dtl.Amount.String())
	})
}

func TestRunCommitBlocked(t *testing.T) {
	db := seededDB(t)
	withStore(t, db, func(ctx context.Context, st *store.Store) {
		require.NoError(t, st.PutBalance(ctx, model.LedgerBalance{
			EntityCode: "P", AccountCode: "CASH", Period: testutil.Period, Amount: testutil.D("1000001"), Currency: "USD",
		}))
	})

	out, err := executeRun(t, runCmd("json", "run-1"), procID, "--db", db, "--type", "commit")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, run.IsCommitBlocked(err))

	var res model.RunResult
	resp := decode(t, out, &res)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeCommitRefused, resp.Error.Code)
	assert.Equal(t, model.RunCompleted, res.Status)
	assert.False(t, res.Committed)
	assert.True(t, res.HasErrors())
}

func TestRunPartiallyCompleted(t *testing.T) {
	db := seededDB(t)
	withStore(t, db, func(ctx context.Context, st *store.Store) {
		f := testutil.Entities()["F"]
		f.FunctionalCurrency = "GBP"
		require.NoError(t, st.PutEntity(ctx, f))
	})

	out, err := executeRun(t, runCmd("text", "run-1"), procID, "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Run run-1: partially_completed")
	assert.Contains(t, out, "(FXRateNotFound)")
	assert.Contains(t, out, "dependency_failed")
	assert.Contains(t, out, "Error [E201]: run partially_completed: FXRateNotFound")
}

func TestRunCyclicGraph(t *testing.T) {
	db := seededDB(t)
	withStore(t, db, func(ctx context.Context, st *store.Store) {
		require.NoError(t, st.SaveProcess(ctx, cyclicPipeline()))
	})

	out, err := executeRun(t, runCmd("json", "run-1"), procID, "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var res model.RunResult
	resp := decode(t, out, &res)
	assert.Equal(t, ErrCodeRunFailed, resp.Error.Code)
	assert.Equal(t, model.RunFailed, res.Status)
	require.NotNil(t, res.Error)
	assert.Equal(t, "CycleDetected", res.Error.Code)
}

func TestRunUnknownProcess(t *testing.T) {
	db := seededDB(t)

	out, err := executeRun(t, runCmd("text", "run-1"), "nope", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]: process not found: nope")
}

func TestRunInvalidRequest(t *testing.T) {
	db := seededDB(t)

	_, err := executeRun(t, runCmd("text", "run-1"), procID, "--db", db, "--type", "dry-run")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = executeRun(t, runCmd("text", "run-1"), procID, "--db", db, "--period", "2024-13")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestReportShowsStoredRun(t *testing.T) {
	db := seededDB(t)
	_, err := executeRun(t, runCmd("text", "run-1"), procID, "--db", db)
	require.NoError(t, err)

	out, err := execute(t, NewReportCommand(&RootOptions{Format: "json"}), "run-1", "--db", db)
	require.NoError(t, err)
	var res model.RunResult
	decode(t, out, &res)
	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, model.RunCompleted, res.Status)

	out, err = execute(t, NewReportCommand(&RootOptions{Format: "text"}), procID, "--latest", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Run run-1: completed")
}

func TestReportListsRuns(t *testing.T) {
	db := seededDB(t)
	_, err := executeRun(t, runCmd("text", "run-1"), procID, "--db", db)
	require.NoError(t, err)
	_, err = executeRun(t, runCmd("text", "run-2"), procID, "--db", db, "--type", "commit")
	require.NoError(t, err)

	out, err := execute(t, NewReportCommand(&RootOptions{Format: "json"}), procID, "--list", "--db", db)
	require.NoError(t, err)
	var runs []RunSummary
	decode(t, out, &runs)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-1", runs[0].RunID)
	assert.False(t, runs[0].Committed)
	assert.Equal(t, "run-2", runs[1].RunID)
	assert.True(t, runs[1].Committed)
}

func TestReportRunNotFound(t *testing.T) {
	db := seededDB(t)

	out, err := execute(t, NewReportCommand(&RootOptions{Format: "text"}), "run-9", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "run not found: run-9")

	_, err = execute(t, NewReportCommand(&RootOptions{Format: "text"}), procID, "--latest", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestReplayMatchesStoredDigest(t *testing.T) {
	db := seededDB(t)
	_, err := executeRun(t, runCmd("text", "run-1"), procID, "--db", db)
	require.NoError(t, err)

	out, err := execute(t, NewReplayCommand(&RootOptions{Format: "json"}), "run-1", "--db", db)
	require.NoError(t, err)

	var result ReplayResult
	decode(t, out, &result)
	assert.True(t, result.Deterministic)
	assert.Equal(t, result.StoredDigest, result.ReplayedDigest)
	assert.NotEqual(t, "run-1", result.ReplayRunID)
	assert.Empty(t, result.ChangedNodes)
}

func TestReplayOfBlockedCommitMatches(t *testing.T) {
	db := seededDB(t)
	withStore(t, db, func(ctx context.Context, st *store.Store) {
		require.NoError(t, st.PutBalance(ctx, model.LedgerBalance{
			EntityCode: "P", AccountCode: "CASH", Period: testutil.Period, Amount: testutil.D("1000001"), Currency: "USD",
		}))
	})
	_, err := executeRun(t, runCmd("text", "run-1"), procID, "--db", db, "--type", "commit")
	require.Error(t, err)

	_, err = execute(t, NewReplayCommand(&RootOptions{Format: "text"}), "run-1", "--db", db)
	require.NoError(t, err)
}

func TestReplayDetectsChangedInputs(t *testing.T) {
	db := seededDB(t)
	_, err := executeRun(t, runCmd("text", "run-1"), procID, "--db", db)
	require.NoError(t, err)
	withStore(t, db, func(ctx context.Context, st *store.Store) {
		require.NoError(t, st.PutBalance(ctx, model.LedgerBalance{
			EntityCode: "S", AccountCode: "SALES", Period: testutil.Period, Amount: testutil.D("260000"), Currency: "USD",
		}))
	})

	out, err := execute(t, NewReplayCommand(&RootOptions{Format: "json"}), "run-1", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result ReplayResult
	resp := decode(t, out, &result)
	assert.Equal(t, ErrCodeReplayDiffers, resp.Error.Code)
	assert.False(t, result.Deterministic)
	assert.Contains(t, result.ChangedNodes, "pl")
}

func TestReplayRefusesCommittedRun(t *testing.T) {
	db := seededDB(t)
	_, err := executeRun(t, runCmd("text", "run-1"), procID, "--db", db, "--type", "commit")
	require.NoError(t, err)

	out, err := execute(t, NewReplayCommand(&RootOptions{Format: "text"}), "run-1", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "was committed")
}

func TestReplayRunNotFound(t *testing.T) {
	db := seededDB(t)

	_, err := execute(t, NewReplayCommand(&RootOptions{Format: "text"}), "run-9", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
