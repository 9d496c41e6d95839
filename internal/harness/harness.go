package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/engine"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/graph"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/model"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/nodes"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/run"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/store"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/testutil"
)

// Harness executes scenarios with a fixed run id sequence and a stepping
// clock, so two executions of the same scenario produce identical results.
type Harness struct {
	store   *store.Store
	manager *run.Manager
	logger  *slog.Logger
}

// RunIDs returns the run ids a scenario with n run steps is assigned.
func RunIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("run-%d", i+1)
	}
	return ids
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database:
// 1. Import the data bundle
// 2. Execute each run step, applying its ledger edits first
// 3. Check each step's expectations
// 4. Evaluate assertions against the runs, ledger and audit log
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	if _, err := st.Import(ctx, scenario.Data); err != nil {
		return nil, fmt.Errorf("failed to import data: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := testutil.NewStepClock()
	opts := []run.Option{
		run.WithIDGenerator(engine.NewFixedGenerator(RunIDs(len(scenario.Runs))...)),
		run.WithNow(clock.Now),
		run.WithLogger(logger),
		run.WithRunnerOptions(engine.WithNow(clock.Now), engine.WithLogger(logger)),
	}
	if scenario.GroupEntity != "" {
		opts = append(opts, run.WithGroupEntity(scenario.GroupEntity))
	}
	if scenario.Tolerance != "" {
		tol, err := decimal.NewFromString(scenario.Tolerance)
		if err != nil {
			return nil, fmt.Errorf("tolerance: %w", err)
		}
		opts = append(opts, run.WithTolerance(tol))
	}

	h := &Harness{
		store:   st,
		manager: run.NewManager(st, nodes.MustNewRegistry(), opts...),
		logger:  logger,
	}

	result := NewResult()
	for i, step := range scenario.Runs {
		outcome, err := h.execute(ctx, step)
		if err != nil {
			return nil, fmt.Errorf("run step %d: %w", i, err)
		}
		result.Runs = append(result.Runs, outcome)
		for _, msg := range checkExpect(i, step.Expect, outcome) {
			result.AddError(msg)
		}
	}

	audit, err := h.audit(ctx, scenario.Runs)
	if err != nil {
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}
	result.Audit = audit

	actx := &AssertionContext{Store: st, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// execute applies a step's ledger edits and runs it. Run rejections are
// part of the outcome, not errors; only store failures are returned.
func (h *Harness) execute(ctx context.Context, step RunStep) (RunOutcome, error) {
	for _, b := range step.Edit {
		b.EntityCode = model.NormalizeCode(b.EntityCode)
		b.AccountCode = model.NormalizeCode(b.AccountCode)
		b.Currency = model.NormalizeCode(b.Currency)
		if err := h.store.PutBalance(ctx, b); err != nil {
			return RunOutcome{}, err
		}
	}

	res, err := h.manager.Run(ctx, run.Request{ProcessID: step.Process, RunType: step.Type, Period: step.Period})
	outcome := RunOutcome{Result: res}
	switch {
	case res.Error != nil:
		outcome.ErrorCode = res.Error.Code
	case err != nil:
		outcome.ErrorCode = errorCode(err)
	}
	h.logger.Debug("scenario run finished", "run_id", res.RunID, "status", res.Status, "error_code", outcome.ErrorCode)
	return outcome, nil
}

// audit returns the audit entries of every process the steps ran, by seq.
func (h *Harness) audit(ctx context.Context, steps []RunStep) ([]model.AuditEntry, error) {
	seen := make(map[string]bool)
	out := []model.AuditEntry{}
	for _, step := range steps {
		if seen[step.Process] {
			continue
		}
		seen[step.Process] = true
		entries, err := h.store.ListAudit(ctx, step.Process)
		if err != nil {
			return nil, err
		}
		out = append(out, entries...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func errorCode(err error) string {
	if ce, ok := run.AsCommitError(err); ok {
		return string(ce.Code)
	}
	if ge, ok := graph.AsGraphError(err); ok {
		return string(ge.Code)
	}
	if ne, ok := engine.AsNodeError(err); ok {
		return string(ne.Code)
	}
	return "Error"
}

func checkExpect(step int, want *RunExpect, got RunOutcome) []string {
	if want == nil {
		return nil
	}
	var errs []string
	res := got.Result
	if want.Status != "" && res.Status != want.Status {
		errs = append(errs, fmt.Sprintf("runs[%d]: status = %q, want %q", step, res.Status, want.Status))
	}
	if got.ErrorCode != want.Error {
		errs = append(errs, fmt.Sprintf("runs[%d]: error = %q, want %q", step, got.ErrorCode, want.Error))
	}
	if want.Committed != nil && res.Committed != *want.Committed {
		errs = append(errs, fmt.Sprintf("runs[%d]: committed = %t, want %t", step, res.Committed, *want.Committed))
	}
	for _, id := range sortedKeys(want.Nodes) {
		nr, ok := res.Nodes[id]
		if !ok {
			errs = append(errs, fmt.Sprintf("runs[%d]: node %s has no result", step, id))
			continue
		}
		if nr.Status != want.Nodes[id] {
			errs = append(errs, fmt.Sprintf("runs[%d]: node %s status = %q, want %q", step, id, nr.Status, want.Nodes[id]))
		}
	}
	return errs
}
