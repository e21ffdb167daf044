// Package report materializes findings as tabular and line-delimited output.
//
// Violations and audit notes share one column layout; only the id and name
// headers differ. Evidence is written as canonical JSON so a reader can
// re-parse it without losing decimal precision.
package report
