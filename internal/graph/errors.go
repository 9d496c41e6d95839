package graph

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode categorizes graph problems. Every code is fatal for a run.
type ErrorCode string

const (
	// ErrCodeCycleDetected indicates the enabled subgraph is not a DAG.
	ErrCodeCycleDetected ErrorCode = "CycleDetected"

	// ErrCodeUnknownNode indicates a connection endpoint is not in the process.
	ErrCodeUnknownNode ErrorCode = "UnknownNode"

	// ErrCodeDuplicateConnection indicates a repeated (from, to) pair.
	ErrCodeDuplicateConnection ErrorCode = "DuplicateConnection"

	// ErrCodeInvalidConfiguration indicates a node config fails its type schema.
	ErrCodeInvalidConfiguration ErrorCode = "InvalidConfiguration"

	// ErrCodeOrphanNode indicates a required input no ancestor produces.
	ErrCodeOrphanNode ErrorCode = "OrphanNode"
)

// codeRank fixes which problem a GraphError reports first.
var codeRank = map[ErrorCode]int{
	ErrCodeCycleDetected:        0,
	ErrCodeUnknownNode:          1,
	ErrCodeDuplicateConnection:  2,
	ErrCodeInvalidConfiguration: 3,
	ErrCodeOrphanNode:           4,
}

// Problem is one finding of the validator.
type Problem struct {
	Code    ErrorCode `json:"code"`
	NodeID  string    `json:"node_id,omitempty"`
	Path    []string  `json:"path,omitempty"`
	Input   string    `json:"input,omitempty"`
	Message string    `json:"message"`
}

func (p Problem) String() string {
	return fmt.Sprintf("%s: %s", p.Code, p.Message)
}

// GraphError is returned when a process graph cannot be run. The top-level
// fields describe the first problem; Problems lists all of them.
type GraphError struct {
	Code     ErrorCode
	NodeID   string
	Path     []string
	Message  string
	Problems []Problem
}

// Error implements the error interface.
func (e *GraphError) Error() string {
	if len(e.Problems) > 1 {
		return fmt.Sprintf("%s: %s (and %d more)", e.Code, e.Message, len(e.Problems)-1)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Has reports whether any problem carries code.
func (e *GraphError) Has(code ErrorCode) bool {
	for _, p := range e.Problems {
		if p.Code == code {
			return true
		}
	}
	return e.Code == code
}

func newGraphError(problems []Problem) *GraphError {
	first := problems[0]
	return &GraphError{
		Code:     first.Code,
		NodeID:   first.NodeID,
		Path:     first.Path,
		Message:  first.Message,
		Problems: problems,
	}
}

func cycleProblem(path []string) Problem {
	return Problem{
		Code:    ErrCodeCycleDetected,
		NodeID:  path[0],
		Path:    path,
		Message: "cycle detected: " + strings.Join(path, " -> "),
	}
}

// AsGraphError extracts a *GraphError from err's chain.
func AsGraphError(err error) (*GraphError, bool) {
	var ge *GraphError
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}

// IsCycleError returns true if err is a GraphError reporting a cycle.
func IsCycleError(err error) bool {
	ge, ok := AsGraphError(err)
	return ok && ge.Has(ErrCodeCycleDetected)
}

// IsOrphanError returns true if err is a GraphError reporting an orphan node.
func IsOrphanError(err error) bool {
	ge, ok := AsGraphError(err)
	return ok && ge.Has(ErrCodeOrphanNode)
}

// IsDuplicateError returns true if err is a GraphError reporting a duplicate connection.
func IsDuplicateError(err error) bool {
	ge, ok := AsGraphError(err)
	return ok && ge.Has(ErrCodeDuplicateConnection)
}
