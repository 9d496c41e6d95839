// Package store provides SQLite-backed persistence for consolidation
// processes, reference data, the ledger, run results and the audit log.
//
// # Invariants
//
// Ledger rows carry a version. ApplyCommit updates every touched row in one
// transaction and only when the row still has the version the run read;
// any mismatch rolls the whole commit back with a *ConflictError.
//
// The audit_log table is append-only. Triggers abort any UPDATE or DELETE.
//
// Every list query orders by its natural key with an id tie-break, so the
// same database always yields the same sequence.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
