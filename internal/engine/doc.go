// Package engine runs one consolidation process graph for one period.
//
// ARCHITECTURE:
//
// A run is a frozen graph.Plan plus a per-run Context. The Runner feeds
// ready nodes (all predecessors finished) to a bounded worker pool. Each
// node's executor reads predecessor outputs through its Scope and returns
// an Output; the Runner alone writes that output into the Context, after
// the executor returns successfully.
//
// Failure semantics:
//   - A failed node cascades DependencyFailed to every descendant
//   - Independent branches keep running
//   - Cancellation is cooperative and checked before each node starts
//   - A per-node timeout marks the node Cancelled
//
// CRITICAL PATTERNS:
//
// Single writer per key: outputs are keyed by (node id, output name) and
// only the producing node's completion writes them. Readers block on the
// producer's future, so no reader observes a partial output.
//
// Deterministic results: pending ledger deltas are returned ordered by the
// producing node's topological index, then emission order, so the result of
// a run does not depend on which branch happened to finish first.
package engine
