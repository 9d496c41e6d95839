// Package graph holds, validates and orders the node graph of one
// consolidation process.
//
// Store is a mutable, mutex-guarded builder-side holder that may contain
// invalid intermediate states. Validate and NewPlan run only at explicit
// run or save boundaries, against a frozen snapshot.
//
// Ordering is Kahn's algorithm over enabled nodes with ties broken by
// (sequence_order asc, id asc), so the same graph always yields the same
// order byte for byte.
package graph
