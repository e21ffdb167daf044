// Package consistency compares records that describe the same entity and
// reporting period across independent sources.
//
// The check is a barrier: it runs after every record has been loaded, groups
// records by (entity key, period key), and flags each critical field that
// carries more than one distinct non-blank value inside a group. Output does
// not depend on input order or on which source is listed first.
package consistency
