// Package model provides the data types shared by every consolidation package.
//
// This package contains type definitions and small pure helpers only. All
// other internal packages import model; model imports nothing internal.
//
// Key design constraints:
//   - Money and rates are decimal.Decimal, never float64
//   - Ledger amounts are stored in the account's natural sign
//   - Journal line amounts are signed with debit positive
//   - All JSON tags use snake_case
//   - Presentation metadata (canvas positions, zoom) never enters the model
package model
