package queryir

import (
	"fmt"
	"regexp"
	"slices"

	"github.com/JeedaveyFCRA/vioverse-pro/internal/ir"
)

// validIdentifier matches SQL identifiers. Names are also checked against
// Tables; the pattern is a second guard for interpolation.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks that q reads a known table, names only its columns, and
// compares them to scalar values. Every problem is returned.
func Validate(q Query) []error {
	v := &validator{}
	switch query := q.(type) {
	case nil:
		v.add("nil query")
	case Select:
		cols := v.table(query.From)
		for _, c := range query.Columns {
			v.column(cols, query.From, c)
		}
		v.predicate(cols, query.From, query.Filter)
	case Count:
		cols := v.table(query.From)
		v.predicate(cols, query.From, query.Filter)
	default:
		v.add("unknown query type %T", q)
	}
	return v.errs
}

type validator struct {
	errs []error
}

func (v *validator) add(format string, args ...any) {
	v.errs = append(v.errs, fmt.Errorf(format, args...))
}

func (v *validator) table(name string) []string {
	cols, ok := Tables[name]
	if !ok {
		v.add("unknown table %q", name)
	}
	return cols
}

func (v *validator) column(cols []string, table, name string) {
	if !validIdentifier.MatchString(name) {
		v.add("invalid column name %q: must match %s", name, validIdentifier)
		return
	}
	if cols != nil && !slices.Contains(cols, name) {
		v.add("table %s has no column %q", table, name)
	}
}

func (v *validator) predicate(cols []string, table string, p Predicate) {
	switch pred := p.(type) {
	case nil:
	case Equals:
		v.column(cols, table, pred.Field)
		v.scalar(pred.Field, pred.Value)
	case In:
		v.column(cols, table, pred.Field)
		for _, val := range pred.Values {
			v.scalar(pred.Field, val)
		}
	case And:
		for _, sub := range pred.Predicates {
			v.predicate(cols, table, sub)
		}
	default:
		v.add("unknown predicate type %T", p)
	}
}

// scalar rejects values that have no column representation. Stored
// columns are NOT NULL, so comparing to null would never match.
func (v *validator) scalar(field string, val ir.IRValue) {
	switch val.(type) {
	case ir.IRString, ir.IRInt, ir.IRBool:
	case ir.IRNull, nil:
		v.add("column %s compared to null: stored columns are never null", field)
	default:
		v.add("column %s compared to %T: only strings, integers and booleans are supported", field, val)
	}
}
