package ir

import (
	"fmt"
	"regexp"
	"strings"
)

// Condition is a node in a rule's "when" tree.
//
// It is a closed sum type: All and Any combine children, every other
// implementation is a leaf. The compiler is the only producer, so an unknown
// operator is a load error and never reaches the engine.
type Condition interface {
	condition()
}

// All is a conjunction. An empty All is true.
type All struct {
	Children []Condition
}

// Any is a disjunction. An empty Any is false.
type Any struct {
	Children []Condition
}

// CompareOp is an ordering or equality operator.
type CompareOp string

const (
	OpGE CompareOp = ">="
	OpGT CompareOp = ">"
	OpLT CompareOp = "<"
	OpLE CompareOp = "<="
	OpEQ CompareOp = "=="
	OpNE CompareOp = "!="
)

// ValidCompareOps defines the comparison operator vocabulary.
var ValidCompareOps = map[CompareOp]bool{
	OpGE: true, OpGT: true, OpLT: true, OpLE: true, OpEQ: true, OpNE: true,
}

// OperandKind says where the right-hand side of a comparison comes from.
type OperandKind int

const (
	// OperandLiteral is a value written in the rule.
	OperandLiteral OperandKind = iota
	// OperandContext names a run context date ("{{discharge_date}}").
	OperandContext
	// OperandField names another field of the same record.
	OperandField
)

// Operand is the right-hand side of a comparison or date leaf.
// OffsetDays shifts date operands; it is ignored for money and text.
type Operand struct {
	Kind       OperandKind
	Literal    string
	Ref        string
	OffsetDays int
}

// String renders the operand as it would appear in a rule file.
func (o Operand) String() string {
	var s string
	switch o.Kind {
	case OperandContext:
		s = "{{" + o.Ref + "}}"
	case OperandField:
		s = "$" + o.Ref
	default:
		s = fmt.Sprintf("%q", o.Literal)
	}
	if o.OffsetDays != 0 {
		s += fmt.Sprintf("%+dd", o.OffsetDays)
	}
	return s
}

// Compare tests a field's typed value against an operand.
type Compare struct {
	Field        string
	Op           CompareOp
	Type         ValueType
	Value        Operand
	AllowMissing bool
}

// Presence is exists (Exists=true) or not_exists. It looks at the raw
// text only: any non-blank value is present, sentinels included.
type Presence struct {
	Field  string
	Exists bool
}

// ContainsMode selects the substring test.
type ContainsMode string

const (
	ModeContains    ContainsMode = "contains"
	ModeNotContains ContainsMode = "not_contains"
	ModeContainsAny ContainsMode = "contains_any"
)

// Keywords is an inline list, or the name of a context list used when the
// inline list is empty.
type Keywords struct {
	Inline []string
	From   string
}

// Contains tests a field's text form case-insensitively.
type Contains struct {
	Field        string
	Mode         ContainsMode
	Keywords     Keywords
	AllowMissing bool
}

// MonthOnly is true when the raw value is a year-month without a day.
type MonthOnly struct {
	Field        string
	AllowMissing bool
}

// YearsAfter is gt_years_from: Field's (year, month) is strictly later than
// Ref's (year, month) plus Years.
type YearsAfter struct {
	Field string
	Ref   Operand
	Years int
}

// DateDiff is date_diff_gt_days: |Field - Ref| in days is greater than Days.
type DateDiff struct {
	Field string
	Ref   Operand
	Days  int
}

// FieldKeywords is any_contains (Negate=false) or not_any_contains over a
// fixed field list.
type FieldKeywords struct {
	Fields   []string
	Keywords Keywords
	Negate   bool
}

// ColumnKeywords is any_contains_glob (Negate=false) or not_any_contains_glob
// over every column whose name matches Pattern.
type ColumnKeywords struct {
	Pattern  *regexp.Regexp
	Keywords Keywords
	Negate   bool
}

// FragmentMismatch is true when the trailing Digits-digit run of Field
// differs from the trimmed value of RefField. Absent values never mismatch.
type FragmentMismatch struct {
	Field    string
	RefField string
	Digits   int
}

func (All) condition()              {}
func (Any) condition()              {}
func (Compare) condition()          {}
func (Presence) condition()         {}
func (Contains) condition()         {}
func (MonthOnly) condition()        {}
func (YearsAfter) condition()       {}
func (DateDiff) condition()         {}
func (FieldKeywords) condition()    {}
func (ColumnKeywords) condition()   {}
func (FragmentMismatch) condition() {}

// DescribeCondition renders a condition tree on one line, for traces,
// validation output and rule set fingerprints.
func DescribeCondition(c Condition) string {
	switch n := c.(type) {
	case nil:
		return "<nil>"
	case All:
		return "all(" + describeChildren(n.Children) + ")"
	case Any:
		return "any(" + describeChildren(n.Children) + ")"
	case Compare:
		s := fmt.Sprintf("%s %s %s", n.Field, n.Op, n.Value)
		if n.Type != "" && n.Type != TypeAuto {
			s += " as " + string(n.Type)
		}
		return s
	case Presence:
		if n.Exists {
			return "exists(" + n.Field + ")"
		}
		return "not_exists(" + n.Field + ")"
	case Contains:
		return fmt.Sprintf("%s(%s, %s)", n.Mode, n.Field, n.Keywords)
	case MonthOnly:
		return "month_only(" + n.Field + ")"
	case YearsAfter:
		return fmt.Sprintf("gt_years_from(%s, %s, %d)", n.Field, n.Ref, n.Years)
	case DateDiff:
		return fmt.Sprintf("date_diff_gt_days(%s, %s, %d)", n.Field, n.Ref, n.Days)
	case FieldKeywords:
		op := "any_contains"
		if n.Negate {
			op = "not_any_contains"
		}
		return fmt.Sprintf("%s([%s], %s)", op, strings.Join(n.Fields, ","), n.Keywords)
	case ColumnKeywords:
		op := "any_contains_glob"
		if n.Negate {
			op = "not_any_contains_glob"
		}
		pattern := ""
		if n.Pattern != nil {
			pattern = n.Pattern.String()
		}
		return fmt.Sprintf("%s(/%s/, %s)", op, pattern, n.Keywords)
	case FragmentMismatch:
		return fmt.Sprintf("fragment_mismatch(%s, %s, %d)", n.Field, n.RefField, n.Digits)
	default:
		return fmt.Sprintf("<unknown %T>", c)
	}
}

func describeChildren(children []Condition) string {
	parts := make([]string, len(children))
	for i, ch := range children {
		parts[i] = DescribeCondition(ch)
	}
	return strings.Join(parts, ", ")
}

// String renders the keyword source.
func (k Keywords) String() string {
	if len(k.Inline) > 0 {
		return "[" + strings.Join(k.Inline, "|") + "]"
	}
	return "{{" + k.From + "}}"
}
