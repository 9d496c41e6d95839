// Package validation runs the post-execution checks that decide whether a
// run may be committed.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/engine"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/model"
)

// Check names.
const (
	CheckBalance        = "balance_check"
	CheckIntercompany   = "intercompany_net_zero"
	CheckFXCoverage     = "fx_rate_coverage"
	CheckOwnership      = "ownership_totals"
	CheckJournalBalance = "journal_balance"
)

// Finding codes.
const (
	CodeBalanceCheckFailed = "BalanceCheckFailed"
	CodeUnmatchedBalance   = "UnmatchedIntercompanyBalance"
	CodeFXRateNotFound     = "FXRateNotFound"
	CodeUntranslatedEntity = "UntranslatedEntity"
	CodeInvalidOwnership   = "InvalidOwnership"
	CodeUnknownParent      = "UnknownParent"
	CodeOwnershipCycle     = "OwnershipCycle"
	CodeUnbalancedEntry    = "UnbalancedEntry"
)

// Source is the finished run state the checks read. *engine.Context
// satisfies it.
type Source interface {
	Ref() *engine.RefData
	Entries() []model.JournalEntry
	Deltas() []model.LedgerDelta
	Groups() []model.ICGroup
	FXReferences() []engine.FXReference
	Translated(entity string) bool
	OutputsOfType(t model.NodeType) []engine.NodeOutputs
	Warnings() []model.CheckResult
}

// CheckFunc produces the findings of one check.
type CheckFunc func(src Source) []model.CheckResult

// Check is a named check.
type Check struct {
	Name string
	Run  CheckFunc
}

// DefaultChecks returns the five built-in checks in report order.
func DefaultChecks() []Check {
	return []Check{
		{Name: CheckBalance, Run: balanceCheck},
		{Name: CheckIntercompany, Run: intercompanyNetZero},
		{Name: CheckFXCoverage, Run: fxRateCoverage},
		{Name: CheckOwnership, Run: ownershipTotals},
		{Name: CheckJournalBalance, Run: journalBalance},
	}
}

// Engine runs a fixed list of checks.
type Engine struct {
	checks []Check
}

// NewEngine creates an engine over checks, or DefaultChecks when none are
// given.
func NewEngine(checks ...Check) *Engine {
	if len(checks) == 0 {
		checks = DefaultChecks()
	}
	return &Engine{checks: checks}
}

// Run executes every check in order, then appends the warnings executors
// attached during the run.
func (e *Engine) Run(src Source) []model.CheckResult {
	out := []model.CheckResult{}
	for _, c := range e.checks {
		for _, r := range c.Run(src) {
			if r.Check == "" {
				r.Check = c.Name
			}
			out = append(out, r)
		}
	}
	return append(out, src.Warnings()...)
}

// ValidationError lists the error-level checks that block a commit.
type ValidationError struct {
	Checks []model.CheckResult
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Checks))
	for _, c := range e.Checks {
		parts = append(parts, fmt.Sprintf("%s: %s", c.Check, c.Message))
	}
	return fmt.Sprintf("validation failed (%d errors): %s", len(e.Checks), strings.Join(parts, "; "))
}

// IsValidationError returns true if err is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Blocking returns a *ValidationError when any result is error-level.
func Blocking(results []model.CheckResult) error {
	var errs []model.CheckResult
	for _, r := range results {
		if r.Severity == model.SeverityError {
			errs = append(errs, r)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Checks: errs}
}

func success(check, format string, args ...any) model.CheckResult {
	return model.CheckResult{Check: check, Severity: model.SeveritySuccess, Message: fmt.Sprintf(format, args...)}
}
