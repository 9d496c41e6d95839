package engine

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/model"
)

// Scope is one node's view of the run. Executors read inputs and record
// diagnostics through it and never touch the Context directly.
type Scope struct {
	rc       *Context
	node     model.Node
	contract model.Contract

	// closed is set once the runner abandons the node; records made after
	// that are dropped.
	closed atomic.Bool
}

// NewScope creates the scope for node within rc.
func NewScope(rc *Context, node model.Node, contract model.Contract) *Scope {
	return &Scope{rc: rc, node: node, contract: contract}
}

// Node returns the node being executed.
func (s *Scope) Node() model.Node { return s.node }

// NodeID returns the id of the node being executed.
func (s *Scope) NodeID() string { return s.node.ID }

// Ref returns the run's reference data.
func (s *Scope) Ref() *RefData { return s.rc.ref }

// Period returns the run period.
func (s *Scope) Period() string { return s.rc.ref.Period }

// Input returns a required input. Context inputs come from the reference
// data; any other name must be produced by an ancestor, and Input blocks
// until that ancestor finishes or ctx is done.
func (s *Scope) Input(ctx context.Context, name string) (any, error) {
	v, found, err := s.lookup(ctx, name)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, NewMissingDependencyError(s.node.ID, name)
	}
	return v, nil
}

// OptionalInput is like Input but reports found=false instead of failing
// when no ancestor produces name.
func (s *Scope) OptionalInput(ctx context.Context, name string) (any, bool, error) {
	return s.lookup(ctx, name)
}

// Amounts reads a required per-code amount input.
func (s *Scope) Amounts(ctx context.Context, name string) (Amounts, error) {
	v, err := s.Input(ctx, name)
	if err != nil {
		return nil, err
	}
	return s.asAmounts(name, v)
}

// OptionalAmounts reads an optional per-code amount input. A missing input
// yields an empty map.
func (s *Scope) OptionalAmounts(ctx context.Context, name string) (Amounts, error) {
	v, found, err := s.OptionalInput(ctx, name)
	if err != nil {
		return nil, err
	}
	if !found {
		return Amounts{}, nil
	}
	return s.asAmounts(name, v)
}

func (s *Scope) asAmounts(name string, v any) (Amounts, error) {
	a, ok := v.(Amounts)
	if !ok {
		return nil, NewNodeError(ErrCodeExecutionFailed, s.node.ID, "input %q has type %T, want amounts", name, v)
	}
	return a, nil
}

func (s *Scope) lookup(ctx context.Context, name string) (any, bool, error) {
	ref := s.rc.ref
	switch name {
	case model.InputEntity:
		return ref.Entities, true, nil
	case model.InputAccounts:
		return ref.Accounts, true, nil
	case model.InputPeriod:
		return ref.Period, true, nil
	case model.InputFXRates:
		return ref.Rates, true, nil
	case model.InputRules:
		return ref.Rules, true, nil
	}

	producer, ok := s.rc.producerOf(s.node.ID, name)
	if !ok {
		return nil, false, nil
	}
	s.rc.mu.RLock()
	f := s.rc.futures[producer]
	s.rc.mu.RUnlock()

	select {
	case <-f.done:
	case <-ctx.Done():
		return nil, false, &NodeError{
			Code:    ErrCodeCancelled,
			NodeID:  s.node.ID,
			Message: fmt.Sprintf("cancelled while waiting for %s", producer),
			Err:     ctx.Err(),
		}
	}
	if !f.ok {
		return nil, false, NewDependencyFailedError(s.node.ID, producer)
	}
	v, ok := s.rc.Output(producer, name)
	if !ok {
		return nil, false, NewMissingDependencyError(s.node.ID, name)
	}
	return v, true, nil
}

func (s *Scope) close() { s.closed.Store(true) }

// RecordFX notes a rate lookup for the coverage check.
func (s *Scope) RecordFX(key model.FXKey, found bool) {
	if s.closed.Load() {
		return
	}
	s.rc.recordFX(s.node.ID, key, found)
}

// RecordGroups publishes elimination groups for the net-zero check.
func (s *Scope) RecordGroups(groups []model.ICGroup) {
	if s.closed.Load() {
		return
	}
	s.rc.recordGroups(s.node.ID, groups)
}

// Warn attaches a non-blocking finding to the run.
func (s *Scope) Warn(w model.CheckResult) {
	if s.closed.Load() {
		return
	}
	if w.Severity == "" {
		w.Severity = model.SeverityWarning
	}
	s.rc.recordWarning(s.node.ID, w)
}

// MarkTranslated records that entity's balances were translated.
func (s *Scope) MarkTranslated(entity string) {
	if s.closed.Load() {
		return
	}
	s.rc.markTranslated(entity)
}
