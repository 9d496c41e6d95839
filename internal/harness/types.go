package harness

import "github.com/prabaj-wq/allinonecompdev-sub012/internal/model"

// RunOutcome is one executed run step.
type RunOutcome struct {
	Result model.RunResult `json:"result"`

	// ErrorCode is the code of the error Manager.Run returned, if any.
	ErrorCode string `json:"error_code,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool `json:"pass"`

	// Runs holds each run step's outcome in order.
	Runs []RunOutcome `json:"runs"`

	// Errors lists failed expectations. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Audit is the complete audit log after the last run.
	Audit []model.AuditEntry `json:"audit,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Runs:   []RunOutcome{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
