package run

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/engine"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/graph"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/model"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/store"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/validation"
)

// Error codes recorded on runs that never reached execution.
const (
	codeLoadFailed = "LoadFailed"
)

// execute performs one run while the caller holds the process lock.
func (m *Manager) execute(ctx context.Context, runID string, req Request) (model.RunResult, error) {
	defer m.untrack(runID)

	m.mu.Lock()
	res := *m.active[runID]
	m.mu.Unlock()

	logger := m.logger.With("run_id", runID, "process_id", req.ProcessID)
	trail := &trail{m: m, runID: runID, processID: req.ProcessID}

	proc, err := m.store.LoadProcess(ctx, req.ProcessID)
	if err != nil {
		return m.abort(ctx, trail, res, logger, &model.ErrorInfo{Code: codeLoadFailed, Message: err.Error()}, err)
	}
	if res.Period == "" {
		res.Period = model.DefaultPeriod(proc.FiscalYear)
	}

	if err := graph.Validate(proc.Nodes, proc.Connections, m.registry); err != nil {
		ge, ok := graph.AsGraphError(err)
		if !ok {
			return m.abort(ctx, trail, res, logger, &model.ErrorInfo{Code: string(graph.ErrCodeInvalidConfiguration), Message: err.Error()}, err)
		}
		for _, p := range ge.Problems {
			trail.add(model.AuditEntry{
				NodeID:   p.NodeID,
				Action:   model.AuditGraphRejected,
				Severity: model.SeverityError,
				Message:  p.String(),
			})
		}
		return m.abort(ctx, trail, res, logger, graphErrorInfo(ge), err)
	}
	plan, err := graph.NewPlan(proc)
	if err != nil {
		return m.abort(ctx, trail, res, logger, &model.ErrorInfo{Code: string(graph.ErrCodeCycleDetected), Message: err.Error()}, err)
	}
	res.Order = plan.Order

	ref, err := m.store.LoadRefData(ctx, res.Period)
	if err != nil {
		return m.abort(ctx, trail, res, logger, &model.ErrorInfo{Code: codeLoadFailed, Message: err.Error()}, err)
	}
	ref.GroupEntity = m.groupEntity
	ref.Tolerance = m.tolerance

	res.Status = model.RunRunning
	m.setStatus(runID, model.RunRunning)
	trail.add(model.AuditEntry{
		Action:   model.AuditRunStarted,
		Severity: model.SeverityInfo,
		Message:  fmt.Sprintf("%s run of %s for %s: %d nodes", res.RunType, proc.ID, res.Period, len(plan.Order)),
	})
	logger.Info("run started", "run_type", res.RunType, "period", res.Period, "nodes", len(plan.Order))

	rc := engine.NewContext(ref, plan, m.registry)
	opts := append([]engine.RunnerOption{engine.WithLogger(logger)}, m.runnerOpts...)
	res.Nodes = engine.NewRunner(m.registry, opts...).Execute(ctx, rc)
	res.Deltas = rc.Deltas()
	if res.Deltas == nil {
		res.Deltas = []model.LedgerDelta{}
	}
	for _, id := range plan.Order {
		trail.node(res.Nodes[id])
	}

	res.Validation = m.validator.Run(rc)
	for _, c := range res.Validation {
		trail.check(c)
	}

	res.Status, res.Error = outcome(plan, res.Nodes)

	if res.RunType == model.RunCommit {
		return m.commit(ctx, trail, res, ref, logger)
	}
	return m.finish(ctx, trail, res, logger)
}

// abort ends a run that never executed any node.
func (m *Manager) abort(ctx context.Context, trail *trail, res model.RunResult, logger *slog.Logger, info *model.ErrorInfo, cause error) (model.RunResult, error) {
	res.Status = model.RunFailed
	res.Error = info
	if res.Nodes == nil {
		res.Nodes = map[string]model.NodeResult{}
	}
	logger.Warn("run rejected", "code", info.Code, "error", info.Message)
	out, err := m.finish(ctx, trail, res, logger)
	if err != nil {
		return out, err
	}
	return out, cause
}

// finish stamps and stores a run that writes nothing to the ledger.
func (m *Manager) finish(ctx context.Context, trail *trail, res model.RunResult, logger *slog.Logger) (model.RunResult, error) {
	if err := m.seal(&res, trail); err != nil {
		return res, err
	}
	if err := m.store.SaveRunWithAudit(context.WithoutCancel(ctx), res, trail.entries); err != nil {
		return res, fmt.Errorf("save run %s: %w", res.RunID, err)
	}
	logger.Info("run finished", "status", res.Status, "checks", len(res.Validation), "deltas", len(res.Deltas))
	return res, nil
}

// seal computes the digest and records the terminal transition.
func (m *Manager) seal(res *model.RunResult, trail *trail) error {
	res.FinishedAt = m.now()
	digest, err := model.RunDigest(*res)
	if err != nil {
		return fmt.Errorf("digest run %s: %w", res.RunID, err)
	}
	res.Digest = digest
	m.setStatus(res.RunID, res.Status)

	sev := model.SeverityInfo
	if res.Status != model.RunCompleted {
		sev = model.SeverityWarning
	}
	trail.add(model.AuditEntry{
		Action:   model.AuditRunFinished,
		Severity: sev,
		After:    string(res.Status),
		Message:  fmt.Sprintf("run %s", res.Status),
	})
	return nil
}

// commit writes the run's deltas when the run completed with no
// error-level check. The ledger, the audit trail and the run result are
// written in one transaction.
func (m *Manager) commit(ctx context.Context, trail *trail, res model.RunResult, ref *engine.RefData, logger *slog.Logger) (model.RunResult, error) {
	blocked := func(ce *CommitError) (model.RunResult, error) {
		ce.ProcessID, ce.RunID = res.ProcessID, res.RunID
		trail.add(model.AuditEntry{
			Action:   model.AuditCommitRefused,
			Severity: model.SeverityError,
			Message:  ce.Error(),
		})
		if res.Error == nil {
			res.Error = ce.Info()
		}
		logger.Warn("commit refused", "code", ce.Code, "error", ce.Message)
		out, err := m.finish(ctx, trail, res, logger)
		if err != nil {
			return out, err
		}
		return out, ce
	}

	if res.Status != model.RunCompleted {
		return blocked(&CommitError{Code: ErrCodeCommitBlocked, Message: fmt.Sprintf("run status is %s", res.Status)})
	}
	if err := validation.Blocking(res.Validation); err != nil {
		return blocked(&CommitError{Code: ErrCodeCommitBlocked, Message: "validation failed", Err: err})
	}

	changes, err := balanceChanges(ref.Balances, ref.Entities, res.Deltas)
	if err != nil {
		return blocked(&CommitError{Code: ErrCodeCurrencyMismatch, Message: "ledger currency check failed", Err: err})
	}
	base := len(trail.entries)
	for _, ch := range changes {
		trail.add(model.AuditEntry{
			Action:   model.AuditCommitApplied,
			Severity: model.SeverityInfo,
			Before:   ch.Before.String(),
			After:    ch.After.String(),
			Message:  fmt.Sprintf("%s/%s/%s version %d", ch.Key.EntityCode, ch.Key.AccountCode, ch.Key.Period, ch.Version),
		})
	}
	res.Committed = true
	if err := m.seal(&res, trail); err != nil {
		return res, err
	}

	err = m.store.ApplyCommit(context.WithoutCancel(ctx), store.Commit{Changes: changes, Audit: trail.entries, Run: res})
	if err == nil {
		logger.Info("run committed", "rows", len(changes), "digest", res.Digest)
		return res, nil
	}

	ce := &CommitError{
		Code:      ErrCodeLedgerWriteConflict,
		ProcessID: res.ProcessID,
		RunID:     res.RunID,
		Message:   "ledger commit rolled back",
		Retryable: true,
		Err:       err,
	}
	var conflict *store.ConflictError
	if errors.As(err, &conflict) {
		ce.Message = "ledger row changed since the run read it"
	}
	logger.Warn("commit rolled back", "error", err)

	trail.entries = trail.entries[:base]
	trail.add(model.AuditEntry{
		Action:   model.AuditCommitRolledBack,
		Severity: model.SeverityError,
		Message:  ce.Error(),
	})
	res.Committed = false
	res.Error = ce.Info()
	out, serr := m.finish(ctx, trail, res, logger)
	if serr != nil {
		return out, serr
	}
	return out, ce
}

// outcome derives the terminal status from the enabled nodes' results and
// picks the first root failure in plan order as the run error.
func outcome(plan *graph.Plan, nodes map[string]model.NodeResult) (model.RunStatus, *model.ErrorInfo) {
	succeeded, failed := 0, 0
	var first *model.ErrorInfo
	for _, id := range plan.Order {
		n := nodes[id]
		if n.Status == model.NodeSucceeded {
			succeeded++
			continue
		}
		failed++
		if first == nil && n.Status != model.NodeDependencyFailed && n.Error != nil {
			first = n.Error
		}
	}
	switch {
	case failed == 0:
		return model.RunCompleted, nil
	case succeeded == 0:
		return model.RunFailed, first
	default:
		return model.RunPartiallyCompleted, first
	}
}

func graphErrorInfo(ge *graph.GraphError) *model.ErrorInfo {
	info := &model.ErrorInfo{Code: string(ge.Code), Message: ge.Message, NodeID: ge.NodeID}
	if len(ge.Path) > 0 {
		info.Details = map[string]string{"path": strings.Join(ge.Path, " -> ")}
	}
	return info
}
