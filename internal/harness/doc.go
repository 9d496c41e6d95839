// Package harness runs consolidation scenarios end to end.
//
// A scenario imports a data bundle into a fresh in-memory store, executes a
// sequence of simulation and commit runs, and checks the outcome against
// per-run expectations, assertions and a golden snapshot.
//
// # Scenario Format
//
//	name: partial_translation
//	description: "F has no GBP rate, so its branch fails"
//	group_entity: P
//	data:
//	  entities: [...]
//	  accounts: [...]
//	  balances: [...]
//	  fx_rates: [...]
//	  rules: [...]
//	  transactions: [...]
//	  processes: [...]
//	runs:
//	  - process: consol-2024
//	    type: commit
//	    period: 2024-12
//	    edit:
//	      - { entity: P, account: CASH, period: 2024-12, amount: 1, currency: USD }
//	    expect:
//	      status: partially_completed
//	      error: FXRateNotFound
//	      committed: false
//	      nodes: { fx: failed, eq: dependency_failed }
//	assertions:
//	  - { type: output, run: 0, node: nci, path: nci_profit.S, equals: "20000" }
//	  - { type: ledger, entity: S, account: PPE, period: 2024-12, equals: absent }
//
// # Assertion Types
//
//   - output: a dotted path into a node's outputs equals a value
//   - check: a validation check produced a finding, optionally of a severity
//   - ledger: a stored balance equals a value, or is absent
//   - audit_contains: at least one audit entry has the action
//   - audit_count: exactly Count audit entries have the action
//   - digest_equal: the listed runs share a result digest
//
// # Deterministic Testing
//
// Run ids are assigned run-1, run-2, ... in step order and wall time comes
// from testutil.StepClock, so executing a scenario twice yields identical
// results and golden snapshots.
package harness
