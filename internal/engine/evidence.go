package engine

import (
	"slices"

	"github.com/JeedaveyFCRA/vioverse-pro/internal/ir"
	"github.com/JeedaveyFCRA/vioverse-pro/internal/normalize"
)

// snapshot captures the evidence a rule declares. Money becomes an exact
// decimal, dates an ISO string, anything else the raw text. Absent or
// unparseable values are null.
//
// A rule without an evidence list captures the raw text of every field its
// condition reads.
func snapshot(rule ir.Rule, s *scope) ir.IRObject {
	fields := rule.Evidence
	if len(fields) == 0 {
		for _, f := range ConditionFields(rule.When, s.rec) {
			fields = append(fields, ir.EvidenceField{Field: f, Type: ir.TypeText})
		}
	}

	ev := make(ir.IRObject, len(fields))
	for _, f := range fields {
		raw, ok := s.rec.Get(f.Field)
		if !ok {
			ev[f.Field] = ir.IRNull{}
			continue
		}
		switch f.Type {
		case ir.TypeMoney:
			v := s.value(f.Field, ir.TypeMoney)
			if !v.Present() {
				ev[f.Field] = ir.IRNull{}
				continue
			}
			ev[f.Field] = ir.NewIRDecimal(v.Money)
		case ir.TypeDate:
			v := s.value(f.Field, ir.TypeDate)
			if !v.Present() {
				ev[f.Field] = ir.IRNull{}
				continue
			}
			ev[f.Field] = ir.IRString(normalize.FormatDate(v.Date))
		default:
			ev[f.Field] = ir.IRString(raw)
		}
	}
	return ev
}

// ConditionFields lists the record fields a condition reads, in first-use
// order. Column patterns expand to the matching columns of rec.
func ConditionFields(c ir.Condition, rec ir.Record) []string {
	var out []string
	add := func(f string) {
		if f != "" && !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	var walk func(ir.Condition)
	walk = func(c ir.Condition) {
		switch n := c.(type) {
		case ir.All:
			for _, ch := range n.Children {
				walk(ch)
			}
		case ir.Any:
			for _, ch := range n.Children {
				walk(ch)
			}
		case ir.Compare:
			add(n.Field)
			if n.Value.Kind == ir.OperandField {
				add(n.Value.Ref)
			}
		case ir.Presence:
			add(n.Field)
		case ir.Contains:
			add(n.Field)
		case ir.MonthOnly:
			add(n.Field)
		case ir.YearsAfter:
			add(n.Field)
			if n.Ref.Kind == ir.OperandField {
				add(n.Ref.Ref)
			}
		case ir.DateDiff:
			add(n.Field)
			if n.Ref.Kind == ir.OperandField {
				add(n.Ref.Ref)
			}
		case ir.FieldKeywords:
			for _, f := range n.Fields {
				add(f)
			}
		case ir.ColumnKeywords:
			for _, col := range matchingColumns(n, rec) {
				if _, ok := rec.Get(col); ok {
					add(col)
				}
			}
		case ir.FragmentMismatch:
			add(n.Field)
			add(n.RefField)
		}
	}
	walk(c)
	return out
}
