package report

import (
	"cmp"
	"slices"
	"strings"

	"github.com/JeedaveyFCRA/vioverse-pro/internal/ir"
)

// Set is the complete output of a run.
type Set struct {
	RunID      string
	Violations []ir.Violation
	AuditNotes []ir.AuditNote
}

// Sort orders violations and audit notes by (row index, rule order, id).
func (s *Set) Sort() {
	slices.SortStableFunc(s.Violations, func(a, b ir.Violation) int {
		return compare(a.Finding, b.Finding)
	})
	slices.SortStableFunc(s.AuditNotes, func(a, b ir.AuditNote) int {
		return compare(a.Finding, b.Finding)
	})
}

func compare(a, b ir.Finding) int {
	return cmp.Or(
		cmp.Compare(a.RowIndex, b.RowIndex),
		cmp.Compare(a.RuleOrder(), b.RuleOrder()),
		strings.Compare(a.ID, b.ID),
	)
}

// Findings returns the violations as plain findings.
func (s *Set) Findings() []ir.Finding {
	out := make([]ir.Finding, len(s.Violations))
	for i, v := range s.Violations {
		out[i] = v.Finding
	}
	return out
}

// Notes returns the audit notes as plain findings.
func (s *Set) Notes() []ir.Finding {
	out := make([]ir.Finding, len(s.AuditNotes))
	for i, n := range s.AuditNotes {
		out[i] = n.Finding
	}
	return out
}

// Table selects the header variant.
type Table int

const (
	TableViolations Table = iota
	TableAudit
)

// Columns is the exported column set. The order is part of the output
// contract.
var Columns = []string{
	"finding_id", "rule_id", "rule_name", "severity", "citations", "explanation",
	"entity_code", "entity_name", "source", "period", "locator",
	"row_index", "evidence_json",
}

// Header returns the column names for t.
func Header(t Table) []string {
	h := slices.Clone(Columns)
	if t == TableAudit {
		h[0] = "note_id"
		h[2] = "note_name"
	}
	return h
}
