package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/model"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/store"
)

// AssertionContext gives assertions access to the final store state.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("Assertion failed: %s\n  Expected: %s\n  Actual: %s", e.Type, e.Expected, e.Actual)
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %s", i, err))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertOutput:
		return assertOutput(result, a)
	case AssertCheck:
		return assertCheck(result, a)
	case AssertLedger:
		return assertLedger(actx, a)
	case AssertAuditContains:
		return assertAuditCount(result.Audit, a, true)
	case AssertAuditCount:
		return assertAuditCount(result.Audit, a, false)
	case AssertDigestEqual:
		return assertDigestEqual(result, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertOutput looks up a dotted path in a node's outputs. Outputs are
// canonicalised first, so decimals compare by value.
func assertOutput(result *Result, a Assertion) error {
	if a.Run >= len(result.Runs) {
		return fmt.Errorf("run %d was not executed", a.Run)
	}
	nr, ok := result.Runs[a.Run].Result.Nodes[a.Node]
	if !ok {
		return &AssertionError{Type: AssertOutput, Expected: "result for node " + a.Node, Actual: "no result"}
	}
	outputs, err := canonicalOutputs(nr.Outputs)
	if err != nil {
		return err
	}

	var cur any = outputs
	for _, part := range strings.Split(a.Path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return &AssertionError{Type: AssertOutput, Expected: a.Path + " = " + a.Equals, Actual: "path not found at " + part}
		}
		if cur, ok = m[part]; !ok {
			return &AssertionError{Type: AssertOutput, Expected: a.Path + " = " + a.Equals, Actual: "path not found at " + part}
		}
	}

	got := fmt.Sprint(cur)
	if !valuesEqual(got, a.Equals) {
		return &AssertionError{Type: AssertOutput, Expected: a.Path + " = " + a.Equals, Actual: got}
	}
	return nil
}

func canonicalOutputs(outputs map[string]any) (map[string]any, error) {
	raw, err := model.MarshalCanonical(outputs)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// assertCheck requires a finding of the named check. With Severity set the
// finding must carry that severity.
func assertCheck(result *Result, a Assertion) error {
	if a.Run >= len(result.Runs) {
		return fmt.Errorf("run %d was not executed", a.Run)
	}
	var seen []string
	for _, c := range result.Runs[a.Run].Result.Validation {
		if c.Check != a.Check {
			continue
		}
		if a.Severity == "" || c.Severity == a.Severity {
			return nil
		}
		seen = append(seen, string(c.Severity))
	}
	actual := "no finding"
	if len(seen) > 0 {
		actual = "severities " + strings.Join(seen, ", ")
	}
	return &AssertionError{Type: AssertCheck, Expected: fmt.Sprintf("%s with severity %q", a.Check, a.Severity), Actual: actual}
}

func assertLedger(actx *AssertionContext, a Assertion) error {
	key := model.BalanceKey{
		EntityCode:  model.NormalizeCode(a.Entity),
		AccountCode: model.NormalizeCode(a.Account),
		Period:      a.Period,
	}
	bal, err := actx.Store.Balance(actx.Ctx, key)
	if store.IsNotFound(err) {
		if a.Equals == "absent" {
			return nil
		}
		return &AssertionError{Type: AssertLedger, Expected: a.Equals, Actual: "absent"}
	}
	if err != nil {
		return err
	}
	if !valuesEqual(bal.Amount.String(), a.Equals) {
		return &AssertionError{
			Type:     AssertLedger,
			Expected: fmt.Sprintf("%s/%s/%s = %s", key.EntityCode, key.AccountCode, key.Period, a.Equals),
			Actual:   bal.Amount.String(),
		}
	}
	return nil
}

// assertAuditCount counts entries with the action, optionally narrowed to
// a node. With atLeastOne the count only has to be positive.
func assertAuditCount(audit []model.AuditEntry, a Assertion, atLeastOne bool) error {
	n := 0
	for _, e := range audit {
		if e.Action == a.Action && (a.Node == "" || e.NodeID == a.Node) {
			n++
		}
	}
	if atLeastOne {
		if n == 0 {
			return &AssertionError{Type: AssertAuditContains, Expected: "an entry with action " + a.Action, Actual: "none"}
		}
		return nil
	}
	if n != a.Count {
		return &AssertionError{Type: AssertAuditCount, Expected: fmt.Sprintf("%d x %s", a.Count, a.Action), Actual: fmt.Sprint(n)}
	}
	return nil
}

func assertDigestEqual(result *Result, a Assertion) error {
	first := ""
	for i, idx := range a.Runs {
		if idx >= len(result.Runs) {
			return fmt.Errorf("run %d was not executed", idx)
		}
		d := result.Runs[idx].Result.Digest
		if i == 0 {
			first = d
			continue
		}
		if d != first {
			return &AssertionError{
				Type:     AssertDigestEqual,
				Expected: fmt.Sprintf("run %d digest %s", a.Runs[0], first),
				Actual:   fmt.Sprintf("run %d digest %s", idx, d),
			}
		}
	}
	return nil
}

// valuesEqual compares as decimals when both sides parse, else as strings.
func valuesEqual(got, want string) bool {
	g, gerr := decimal.NewFromString(got)
	w, werr := decimal.NewFromString(want)
	if gerr == nil && werr == nil {
		return g.Equal(w)
	}
	return got == want
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
