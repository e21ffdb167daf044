// Package ir holds the compiled representation shared by every other package:
// rules and their condition trees, records, the run context, and the findings
// the engine emits.
//
// This package contains type definitions and serialization only. All other
// internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Condition is a closed sum type; unknown operators fail at load time
//   - No float types in evidence - money is an exact decimal (IRDecimal)
//   - All JSON tags use snake_case
//   - Finding IDs are content-addressed, never derived from wall-clock time
package ir
