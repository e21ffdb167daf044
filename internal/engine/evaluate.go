package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"

	"github.com/JeedaveyFCRA/vioverse-pro/internal/ir"
	"github.com/JeedaveyFCRA/vioverse-pro/internal/normalize"
)

// Evaluate evaluates a condition tree against one record. It never mutates
// the record or the context. Errors mean the tree could not be evaluated;
// callers treat them as "did not match".
func Evaluate(c ir.Condition, rec ir.Record, ctx *ir.Context) (bool, error) {
	return evaluate(c, newScope(rec, ctx))
}

func evaluate(c ir.Condition, s *scope) (bool, error) {
	switch n := c.(type) {
	case ir.All:
		for _, ch := range n.Children {
			ok, err := evaluate(ch, s)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil

	case ir.Any:
		for _, ch := range n.Children {
			ok, err := evaluate(ch, s)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil

	case ir.Presence:
		// Sentinels like "Not Reported" count as present here.
		raw, ok := s.rec.Get(n.Field)
		return (ok && strings.TrimSpace(raw) != "") == n.Exists, nil

	case ir.Compare:
		return evalCompare(n, s)

	case ir.Contains:
		return evalContains(n, s)

	case ir.MonthOnly:
		if !s.present(n.Field) {
			return n.AllowMissing, nil
		}
		raw, _ := s.rec.Get(n.Field)
		return normalize.MonthOnly(raw), nil

	case ir.YearsAfter:
		v := s.value(n.Field, ir.TypeDate)
		if !v.Present() {
			return false, nil
		}
		ref, ok, err := dateOperand(n.Ref, s)
		if err != nil || !ok {
			return false, err
		}
		// Both sides are truncated to (year, month); the day never matters.
		return normalize.MonthIndex(v.Date) > normalize.MonthIndex(ref)+12*n.Years, nil

	case ir.DateDiff:
		v := s.value(n.Field, ir.TypeDate)
		if !v.Present() {
			return false, nil
		}
		ref, ok, err := dateOperand(n.Ref, s)
		if err != nil || !ok {
			return false, err
		}
		diff := normalize.DaysBetween(v.Date, ref)
		if diff < 0 {
			diff = -diff
		}
		return diff > n.Days, nil

	case ir.FieldKeywords:
		kws, err := s.keywords(n.Keywords)
		if err != nil {
			return false, err
		}
		hit := false
		for _, f := range n.Fields {
			if text, ok := s.lowerText(f); ok && containsAny(text, kws) {
				hit = true
				break
			}
		}
		return hit != n.Negate, nil

	case ir.ColumnKeywords:
		kws, err := s.keywords(n.Keywords)
		if err != nil {
			return false, err
		}
		hit := false
		for _, col := range matchingColumns(n, s.rec) {
			if text, ok := s.lowerText(col); ok && containsAny(text, kws) {
				hit = true
				break
			}
		}
		return hit != n.Negate, nil

	case ir.FragmentMismatch:
		return evalFragmentMismatch(n, s), nil

	case nil:
		return false, typeMismatch("", "rule has no condition")

	default:
		return false, typeMismatch("", "unsupported condition %T", c)
	}
}

func evalCompare(n ir.Compare, s *scope) (bool, error) {
	left := s.value(n.Field, n.Type)
	if !left.Present() {
		return n.AllowMissing, nil
	}

	var cmp int
	switch left.Kind {
	case normalize.KindDate:
		right, ok, err := dateOperand(n.Value, s)
		if err != nil {
			return false, withField(err, n.Field)
		}
		if !ok {
			return false, nil
		}
		cmp = left.Date.Compare(right)

	case normalize.KindMoney:
		right, ok, err := moneyOperand(n.Value, s)
		if err != nil {
			return false, withField(err, n.Field)
		}
		if !ok {
			return false, nil
		}
		cmp = left.Money.Cmp(right)

	default:
		right, ok, err := textOperand(n.Value, s)
		if err != nil {
			return false, withField(err, n.Field)
		}
		if !ok {
			return false, nil
		}
		cmp = strings.Compare(strings.TrimSpace(left.Raw), right)
	}

	switch n.Op {
	case ir.OpGT:
		return cmp > 0, nil
	case ir.OpGE:
		return cmp >= 0, nil
	case ir.OpLT:
		return cmp < 0, nil
	case ir.OpLE:
		return cmp <= 0, nil
	case ir.OpEQ:
		return cmp == 0, nil
	case ir.OpNE:
		return cmp != 0, nil
	default:
		return false, typeMismatch(n.Field, "unknown comparison operator %q", n.Op)
	}
}

// dateOperand resolves an operand as a date. ok=false means a referenced
// field has no date, which is not an error.
func dateOperand(o ir.Operand, s *scope) (time.Time, bool, error) {
	var d time.Time
	switch o.Kind {
	case ir.OperandContext:
		cd, err := s.contextDate(o.Ref)
		if err != nil {
			return d, false, err
		}
		d = cd
	case ir.OperandField:
		v := s.value(o.Ref, ir.TypeDate)
		if !v.Present() {
			return d, false, nil
		}
		d = v.Date
	default:
		ld, ok := normalize.ParseDate(o.Literal, s.opts.Layouts)
		if !ok {
			return d, false, badLiteral("", o.Literal, "date")
		}
		d = ld
	}
	if o.OffsetDays != 0 {
		d = d.AddDate(0, 0, o.OffsetDays)
	}
	return d, true, nil
}

func moneyOperand(o ir.Operand, s *scope) (*apd.Decimal, bool, error) {
	switch o.Kind {
	case ir.OperandContext:
		return nil, false, typeMismatch("", "amount compared against context date %q", o.Ref)
	case ir.OperandField:
		v := s.value(o.Ref, ir.TypeMoney)
		if !v.Present() {
			return nil, false, nil
		}
		return v.Money, true, nil
	default:
		m, ok := normalize.ParseMoney(o.Literal)
		if !ok {
			return nil, false, badLiteral("", o.Literal, "amount")
		}
		return m, true, nil
	}
}

func textOperand(o ir.Operand, s *scope) (string, bool, error) {
	switch o.Kind {
	case ir.OperandContext:
		return "", false, typeMismatch("", "text compared against context date %q", o.Ref)
	case ir.OperandField:
		v := s.value(o.Ref, ir.TypeText)
		if !v.Present() {
			return "", false, nil
		}
		return strings.TrimSpace(v.Raw), true, nil
	default:
		return strings.TrimSpace(o.Literal), true, nil
	}
}

func evalContains(n ir.Contains, s *scope) (bool, error) {
	text, ok := s.lowerText(n.Field)
	if !ok {
		return n.AllowMissing, nil
	}
	kws, err := s.keywords(n.Keywords)
	if err != nil {
		return false, err
	}
	hit := containsAny(text, kws)
	if n.Mode == ir.ModeNotContains {
		return !hit, nil
	}
	return hit, nil
}

// containsAny reports whether lowered text contains any non-blank keyword,
// case-insensitively.
func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" && strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// matchingColumns lists the record columns whose name matches the pattern,
// in header order.
func matchingColumns(n ir.ColumnKeywords, rec ir.Record) []string {
	if n.Pattern == nil {
		return nil
	}
	var cols []string
	for _, col := range rec.Columns {
		if n.Pattern.MatchString(col) {
			cols = append(cols, col)
		}
	}
	return cols
}

// evalFragmentMismatch compares the trailing digit run of Field with
// RefField. No trailing run of at least Digits digits means no mismatch.
func evalFragmentMismatch(n ir.FragmentMismatch, s *scope) bool {
	if !s.present(n.Field) || !s.present(n.RefField) {
		return false
	}
	masked, _ := s.rec.Get(n.Field)
	ref, _ := s.rec.Get(n.RefField)

	t := strings.TrimRight(masked, " \t")
	end := len(t)
	start := end
	for start > 0 && t[start-1] >= '0' && t[start-1] <= '9' {
		start--
	}
	if end-start < n.Digits {
		return false
	}
	return t[end-n.Digits:] != strings.TrimSpace(ref)
}

func withField(err error, field string) error {
	if ee, ok := err.(*EvalError); ok && ee.Field == "" {
		ee.Field = field
		return ee
	}
	return fmt.Errorf("field %s: %w", field, err)
}
