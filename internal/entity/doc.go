// Package entity canonicalizes entity identities so records from different
// sources that describe the same real-world account can be grouped.
//
// A Canonicalizer cleans a reported name (masked account fragments, closed
// markers, slash and whitespace noise) and resolves it through an ordered
// alias table. A SourceNormalizer does the same for source codes. Both are
// table driven and safe for concurrent use.
package entity
