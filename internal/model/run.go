package model

import "time"

// RunType selects whether a run's ledger deltas are discarded or committed.
type RunType string

const (
	RunSimulation RunType = "simulation"
	RunCommit     RunType = "commit"
)

// RunStatus is the run state machine:
// pending -> running -> {completed | partially_completed | failed}.
type RunStatus string

const (
	RunPending            RunStatus = "pending"
	RunRunning            RunStatus = "running"
	RunCompleted          RunStatus = "completed"
	RunPartiallyCompleted RunStatus = "partially_completed"
	RunFailed             RunStatus = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s RunStatus) Terminal() bool {
	return s == RunCompleted || s == RunPartiallyCompleted || s == RunFailed
}

// NodeStatus is the per-node execution outcome.
type NodeStatus string

const (
	NodePending          NodeStatus = "pending"
	NodeRunning          NodeStatus = "running"
	NodeSucceeded        NodeStatus = "succeeded"
	NodeFailed           NodeStatus = "failed"
	NodeDependencyFailed NodeStatus = "dependency_failed"
	NodeCancelled        NodeStatus = "cancelled"
	NodeDisabled         NodeStatus = "disabled"
)

// ErrorInfo is the serialisable form of an engine error.
type ErrorInfo struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	NodeID  string            `json:"node_id,omitempty"`
	RuleID  string            `json:"rule_id,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// NodeResult records one node's outcome within a run.
type NodeResult struct {
	NodeID     string         `json:"node_id"`
	Type       NodeType       `json:"type"`
	Status     NodeStatus     `json:"status"`
	Outputs    map[string]any `json:"outputs,omitempty"`
	Error      *ErrorInfo     `json:"error,omitempty"`
	StartedAt  time.Time      `json:"started_at,omitzero"`
	FinishedAt time.Time      `json:"finished_at,omitzero"`
}

// Severity grades check results and audit entries.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// CheckResult is one ValidationEngine finding.
type CheckResult struct {
	Check    string   `json:"check"`
	Severity Severity `json:"severity"`
	Code     string   `json:"code,omitempty"`
	Message  string   `json:"message"`
	NodeID   string   `json:"node_id,omitempty"`
	RuleID   string   `json:"rule_id,omitempty"`
	Entity   string   `json:"entity,omitempty"`
}

// RunResult is created once per run and never edited afterwards.
type RunResult struct {
	RunID      string                `json:"run_id"`
	ProcessID  string                `json:"process_id"`
	RunType    RunType               `json:"run_type"`
	Period     string                `json:"period"`
	Status     RunStatus             `json:"status"`
	Order      []string              `json:"order"`
	Nodes      map[string]NodeResult `json:"nodes"`
	Validation []CheckResult         `json:"validation"`
	Deltas     []LedgerDelta         `json:"deltas"`
	Committed  bool                  `json:"committed"`
	Error      *ErrorInfo            `json:"error,omitempty"`
	Digest     string                `json:"digest"`
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt time.Time             `json:"finished_at,omitzero"`
}

// HasErrors reports whether any check is error-level.
func (r RunResult) HasErrors() bool {
	for _, c := range r.Validation {
		if c.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Warnings returns the warning-level checks.
func (r RunResult) Warnings() []CheckResult {
	var out []CheckResult
	for _, c := range r.Validation {
		if c.Severity == SeverityWarning {
			out = append(out, c)
		}
	}
	return out
}

// AuditEntry is an append-only record of something that happened in a run.
type AuditEntry struct {
	Seq       int64     `json:"seq"`
	RunID     string    `json:"run_id"`
	ProcessID string    `json:"process_id"`
	NodeID    string    `json:"node_id,omitempty"`
	RuleID    string    `json:"rule_id,omitempty"`
	Action    string    `json:"action"`
	Before    string    `json:"before,omitempty"`
	After     string    `json:"after,omitempty"`
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Audit actions.
const (
	AuditRunStarted       = "run_started"
	AuditRunFinished      = "run_finished"
	AuditGraphRejected    = "graph_rejected"
	AuditNodeSucceeded    = "node_succeeded"
	AuditNodeFailed       = "node_failed"
	AuditNodeSkipped      = "node_skipped"
	AuditCheck            = "validation_check"
	AuditCommitApplied    = "commit_applied"
	AuditCommitRefused    = "commit_refused"
	AuditCommitRolledBack = "commit_rolled_back"
	AuditRunRejected      = "run_rejected"
)
