package queryir

import "github.com/JeedaveyFCRA/vioverse-pro/internal/ir"

// Stored tables.
const (
	TableRuns       = "runs"
	TableViolations = "violations"
	TableAuditNotes = "audit_notes"
)

var findingColumns = []string{
	"run_id", "id", "rule_id", "rule_name", "rule_order", "severity", "citations",
	"explanation", "entity_code", "entity_name", "source", "period", "locator",
	"row_index", "evidence",
}

// Tables lists the queryable columns of each table.
var Tables = map[string][]string{
	TableRuns: {
		"id", "reference_date", "rule_set_hash", "engine_version", "ir_version",
		"record_count", "violation_count", "audit_count",
	},
	TableViolations: findingColumns,
	TableAuditNotes: findingColumns,
}

// Query is a read of one table.
type Query interface {
	queryNode()
}

// Predicate filters rows.
type Predicate interface {
	predicateNode()
}

// Select reads the rows of From that match Filter.
// A nil Filter matches every row; empty Columns selects every column.
type Select struct {
	From    string
	Filter  Predicate
	Columns []string
}

func (Select) queryNode() {}

// Count counts the rows of From that match Filter.
type Count struct {
	From   string
	Filter Predicate
}

func (Count) queryNode() {}

// Equals is field = value.
type Equals struct {
	Field string
	Value ir.IRValue
}

func (Equals) predicateNode() {}

// In is field IN (values). An empty list matches nothing.
type In struct {
	Field  string
	Values []ir.IRValue
}

func (In) predicateNode() {}

// And is a conjunction. An empty And matches every row.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Strings lifts plain strings into IR values for In.
func Strings(ss ...string) []ir.IRValue {
	out := make([]ir.IRValue, len(ss))
	for i, s := range ss {
		out[i] = ir.IRString(s)
	}
	return out
}

// AtLeast is the severity filter for min: every severity name at or above it.
func AtLeast(min ir.Severity) In {
	var names []string
	for sev := min; sev <= ir.SeverityExtreme; sev++ {
		names = append(names, sev.String())
	}
	return In{Field: "severity", Values: Strings(names...)}
}

// Where conjoins preds, skipping nils. It returns nil when nothing is left.
func Where(preds ...Predicate) Predicate {
	var out []Predicate
	for _, p := range preds {
		if p != nil {
			out = append(out, p)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	default:
		return And{Predicates: out}
	}
}
