// Package store persists evaluation runs in SQLite.
//
// A run row records the reference date, the rule set fingerprint and the
// engine and IR versions, so stored findings can be traced back to the
// inputs that produced them. Violations and audit notes live in separate
// tables with the same columns.
//
// # Determinism
//
//   - Finding reads are ordered by row_index, rule_order, id COLLATE BINARY,
//     matching the order the engine emits.
//   - Evidence is stored as canonical JSON and decoded with exact decimals.
//   - Writes are idempotent: re-writing a run with the same finding ids is
//     a no-op.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
