// Package run manages consolidation runs.
//
// A run moves pending -> running -> {completed | partially_completed |
// failed}. Only one run per process may be in flight; the lock is taken
// without blocking and a held lock rejects the request with
// ConcurrentRunInProgress.
//
// Simulation runs store their result and audit trail and never touch the
// ledger. Commit runs additionally require a completed status and no
// error-level check, then write their deltas in one transaction guarded
// by per-row versions. A version mismatch rolls everything back with a
// retryable LedgerWriteConflict.
package run
