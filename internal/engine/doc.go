// Package engine evaluates compiled rules against records.
//
// Evaluation is a pure function of (record, rules, context). Each record
// gets its own scope that memoizes typed field values; nothing else is
// shared between records, so Run evaluates records on a bounded worker pool
// and then sorts findings by (row index, rule order) for reproducible
// output.
//
// Failure policy: a rule that errors or panics on a record is treated as
// not fired for that record. The error is logged at debug level and
// counted, never surfaced as a finding, and never aborts the run. A missed
// finding is preferable to one fabricated from malformed data.
package engine
