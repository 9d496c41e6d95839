package engine

import (
	"errors"
	"fmt"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/model"
)

// ErrorCode categorizes node execution errors.
type ErrorCode string

const (
	// ErrCodeMissingDependency indicates a node read an output that no
	// ancestor produces.
	ErrCodeMissingDependency ErrorCode = "MissingDependency"

	// ErrCodeFXRateNotFound indicates a required (pair, date, rate type) is missing.
	ErrCodeFXRateNotFound ErrorCode = "FXRateNotFound"

	// ErrCodeInvalidConfiguration indicates the node config could not be decoded.
	ErrCodeInvalidConfiguration ErrorCode = "InvalidConfiguration"

	// ErrCodeUnmatchedIntercompanyBalance indicates a required elimination
	// rule left a residual above tolerance.
	ErrCodeUnmatchedIntercompanyBalance ErrorCode = "UnmatchedIntercompanyBalance"

	// ErrCodeDependencyFailed marks a node skipped because an ancestor failed.
	ErrCodeDependencyFailed ErrorCode = "DependencyFailed"

	// ErrCodeCancelled marks a node stopped by cancellation or its timeout.
	ErrCodeCancelled ErrorCode = "Cancelled"

	// ErrCodeExecutionFailed covers any other executor failure.
	ErrCodeExecutionFailed ErrorCode = "ExecutionFailed"
)

// NodeError is the error of one node. It fails that node only; the Runner
// cascades DependencyFailed to its descendants.
type NodeError struct {
	// Code identifies the error category.
	Code ErrorCode

	// NodeID identifies the failing node.
	NodeID string

	// RuleID identifies the elimination rule involved, if any.
	RuleID string

	// Message is a human-readable description.
	Message string

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	if e.NodeID != "" && e.RuleID != "" {
		return fmt.Sprintf("%s: %s (node=%s, rule=%s)", e.Code, e.Message, e.NodeID, e.RuleID)
	}
	if e.NodeID != "" {
		return fmt.Sprintf("%s: %s (node=%s)", e.Code, e.Message, e.NodeID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *NodeError) Unwrap() error {
	return e.Err
}

// Info converts the error into its serialisable form.
func (e *NodeError) Info() *model.ErrorInfo {
	return &model.ErrorInfo{
		Code:    string(e.Code),
		Message: e.Message,
		NodeID:  e.NodeID,
		RuleID:  e.RuleID,
		Details: e.Details,
	}
}

// NewNodeError creates a NodeError with a formatted message.
func NewNodeError(code ErrorCode, nodeID, format string, args ...any) *NodeError {
	return &NodeError{Code: code, NodeID: nodeID, Message: fmt.Sprintf(format, args...)}
}

// NewMissingDependencyError creates a NodeError for an unresolvable input.
func NewMissingDependencyError(nodeID, input string) *NodeError {
	return &NodeError{
		Code:    ErrCodeMissingDependency,
		NodeID:  nodeID,
		Message: fmt.Sprintf("input %q is not produced by any predecessor", input),
		Details: map[string]string{"input": input},
	}
}

// NewFXRateNotFoundError creates a NodeError for a missing rate.
func NewFXRateNotFoundError(nodeID string, key model.FXKey) *NodeError {
	return &NodeError{
		Code:    ErrCodeFXRateNotFound,
		NodeID:  nodeID,
		Message: fmt.Sprintf("no rate for %s", key),
		Details: map[string]string{
			"from":      key.From,
			"to":        key.To,
			"rate_type": string(key.RateType),
			"date":      key.Date,
		},
	}
}

// NewDependencyFailedError creates the error recorded on a skipped descendant.
func NewDependencyFailedError(nodeID, failed string) *NodeError {
	return &NodeError{
		Code:    ErrCodeDependencyFailed,
		NodeID:  nodeID,
		Message: fmt.Sprintf("skipped due to upstream failure of %s", failed),
		Details: map[string]string{"failed_node": failed},
	}
}

// AsNodeError extracts a *NodeError from err's chain.
func AsNodeError(err error) (*NodeError, bool) {
	var ne *NodeError
	if errors.As(err, &ne) {
		return ne, true
	}
	return nil, false
}

// CodeOf returns the node error code carried by err, or ExecutionFailed.
func CodeOf(err error) ErrorCode {
	if ne, ok := AsNodeError(err); ok {
		return ne.Code
	}
	return ErrCodeExecutionFailed
}

// IsMissingDependency returns true if err is a MissingDependency error.
func IsMissingDependency(err error) bool {
	ne, ok := AsNodeError(err)
	return ok && ne.Code == ErrCodeMissingDependency
}

// IsFXRateNotFound returns true if err is an FXRateNotFound error.
func IsFXRateNotFound(err error) bool {
	ne, ok := AsNodeError(err)
	return ok && ne.Code == ErrCodeFXRateNotFound
}

// IsCancelled returns true if err is a Cancelled error.
func IsCancelled(err error) bool {
	ne, ok := AsNodeError(err)
	return ok && ne.Code == ErrCodeCancelled
}

// IsDependencyFailed returns true if err is a DependencyFailed error.
func IsDependencyFailed(err error) bool {
	ne, ok := AsNodeError(err)
	return ok && ne.Code == ErrCodeDependencyFailed
}
