package compiler

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"cuelang.org/go/cue"

	"github.com/JeedaveyFCRA/vioverse-pro/internal/ir"
)

// keywordOps are the operators that may also be written as a single-key
// struct: {any_contains: {fields: [...], keywords: [...]}}.
var keywordOps = []string{"any_contains", "not_any_contains", "any_contains_glob", "not_any_contains_glob"}

// contextToken matches "{{name}}".
var contextToken = regexp.MustCompile(`^\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}$`)

// CompileCondition parses a "when" node into an ir.Condition.
//
// A node is {all: [...]}, {any: [...]}, a keyword operator struct, or a leaf
// with an "op" field. Anything else, including an unknown operator, is a
// CompileError.
func CompileCondition(v cue.Value) (ir.Condition, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if v.IncompleteKind() != cue.StructKind {
		return nil, &CompileError{Field: "when", Message: "condition must be a struct", Pos: v.Pos()}
	}

	for _, comb := range []string{"all", "any"} {
		cv := v.LookupPath(cue.ParsePath(comb))
		if !cv.Exists() {
			continue
		}
		children, err := compileChildren(cv, comb)
		if err != nil {
			return nil, err
		}
		if comb == "all" {
			return ir.All{Children: children}, nil
		}
		return ir.Any{Children: children}, nil
	}

	for _, op := range keywordOps {
		kv := v.LookupPath(cue.ParsePath(op))
		if kv.Exists() {
			return compileKeywordOp(op, kv)
		}
	}

	opVal := v.LookupPath(cue.ParsePath("op"))
	if !opVal.Exists() {
		return nil, &CompileError{
			Field:   "when",
			Message: "condition needs all, any, op, or a keyword operator",
			Pos:     v.Pos(),
		}
	}
	op, err := opVal.String()
	if err != nil {
		return nil, &CompileError{Field: "op", Message: "op must be a string", Pos: opVal.Pos()}
	}
	return compileLeaf(strings.TrimSpace(op), v)
}

func compileChildren(v cue.Value, comb string) ([]ir.Condition, error) {
	iter, err := v.List()
	if err != nil {
		return nil, &CompileError{Field: comb, Message: comb + " must be a list of conditions", Pos: v.Pos()}
	}
	var children []ir.Condition
	for iter.Next() {
		c, err := CompileCondition(iter.Value())
		if err != nil {
			return nil, err
		}
		children = append(children, c)
	}
	return children, nil
}

func compileLeaf(op string, v cue.Value) (ir.Condition, error) {
	switch op {
	case "exists", "not_exists":
		field, err := requiredString(v, "field")
		if err != nil {
			return nil, err
		}
		return ir.Presence{Field: field, Exists: op == "exists"}, nil

	case ">=", ">", "<", "<=", "==", "!=":
		return compileCompare(ir.CompareOp(op), v)

	case "contains", "not_contains", "contains_any":
		return compileContains(ir.ContainsMode(op), v)

	case "month_only":
		field, err := requiredString(v, "field")
		if err != nil {
			return nil, err
		}
		allow, err := optionalBool(v, "allow_missing")
		if err != nil {
			return nil, err
		}
		return ir.MonthOnly{Field: field, AllowMissing: allow}, nil

	case "gt_years_from":
		field, ref, err := fieldAndRef(v)
		if err != nil {
			return nil, err
		}
		years, err := requiredInt(v, "years")
		if err != nil {
			return nil, err
		}
		return ir.YearsAfter{Field: field, Ref: ref, Years: years}, nil

	case "date_diff_gt_days":
		field, ref, err := fieldAndRef(v)
		if err != nil {
			return nil, err
		}
		days, err := requiredInt(v, "days")
		if err != nil {
			return nil, err
		}
		return ir.DateDiff{Field: field, Ref: ref, Days: days}, nil

	case "fragment_mismatch":
		field, err := requiredString(v, "field")
		if err != nil {
			return nil, err
		}
		refField, err := requiredString(v, "ref_field")
		if err != nil {
			return nil, err
		}
		digits := 4
		if dv := v.LookupPath(cue.ParsePath("digits")); dv.Exists() {
			if digits, err = requiredInt(v, "digits"); err != nil {
				return nil, err
			}
			if digits < 1 || digits > 12 {
				return nil, &CompileError{Field: "digits", Message: "digits must be between 1 and 12", Pos: dv.Pos()}
			}
		}
		return ir.FragmentMismatch{Field: field, RefField: refField, Digits: digits}, nil

	case "any_contains", "not_any_contains", "any_contains_glob", "not_any_contains_glob":
		return compileKeywordOp(op, v)

	default:
		return nil, &CompileError{Field: "op", Message: fmt.Sprintf("unknown operator %q", op), Pos: v.Pos()}
	}
}

func compileCompare(op ir.CompareOp, v cue.Value) (ir.Condition, error) {
	field, err := requiredString(v, "field")
	if err != nil {
		return nil, err
	}
	typ, err := valueType(v)
	if err != nil {
		return nil, err
	}
	operand, err := compileOperand(v)
	if err != nil {
		return nil, err
	}
	allow, err := optionalBool(v, "allow_missing")
	if err != nil {
		return nil, err
	}
	return ir.Compare{Field: field, Op: op, Type: typ, Value: operand, AllowMissing: allow}, nil
}

// compileOperand reads the right-hand side of a comparison: ref_field names
// another field, ref names a context date, value is a literal or a
// "{{name}}" context token. offset_days shifts any of them.
func compileOperand(v cue.Value) (ir.Operand, error) {
	var o ir.Operand
	offset, _, err := optionalInt(v, "offset_days")
	if err != nil {
		return o, err
	}
	o.OffsetDays = offset

	if name, err := optionalString(v, "ref_field"); err != nil {
		return o, err
	} else if name != "" {
		o.Kind, o.Ref = ir.OperandField, strings.TrimSpace(name)
		return o, nil
	}
	if name, err := optionalString(v, "ref"); err != nil {
		return o, err
	} else if name != "" {
		o.Kind, o.Ref = ir.OperandContext, strings.TrimSpace(name)
		return o, nil
	}

	val := v.LookupPath(cue.ParsePath("value"))
	if !val.Exists() {
		return o, &CompileError{Field: "value", Message: "comparison needs value, ref or ref_field", Pos: v.Pos()}
	}
	lit, err := literalString(val)
	if err != nil {
		return o, err
	}
	if m := contextToken.FindStringSubmatch(strings.TrimSpace(lit)); m != nil {
		o.Kind, o.Ref = ir.OperandContext, m[1]
		return o, nil
	}
	o.Kind, o.Literal = ir.OperandLiteral, lit
	return o, nil
}

func compileContains(mode ir.ContainsMode, v cue.Value) (ir.Condition, error) {
	field, err := requiredString(v, "field")
	if err != nil {
		return nil, err
	}
	allow, err := optionalBool(v, "allow_missing")
	if err != nil {
		return nil, err
	}
	kw, err := keywordSource(v, "value")
	if err != nil {
		return nil, err
	}
	return ir.Contains{Field: field, Mode: mode, Keywords: kw, AllowMissing: allow}, nil
}

func compileKeywordOp(op string, v cue.Value) (ir.Condition, error) {
	if v.IncompleteKind() != cue.StructKind {
		return nil, &CompileError{Field: op, Message: op + " must be a struct", Pos: v.Pos()}
	}
	kw, err := keywordSource(v, "")
	if err != nil {
		return nil, err
	}
	negate := strings.HasPrefix(op, "not_")

	if strings.HasSuffix(op, "_glob") {
		pattern, err := requiredString(v, "pattern")
		if err != nil {
			return nil, err
		}
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, &CompileError{Field: "pattern", Message: fmt.Sprintf("invalid pattern %q: %v", pattern, err), Pos: v.Pos()}
		}
		return ir.ColumnKeywords{Pattern: re, Keywords: kw, Negate: negate}, nil
	}

	fv := v.LookupPath(cue.ParsePath("fields"))
	if !fv.Exists() {
		return nil, &CompileError{Field: "fields", Message: op + " needs fields", Pos: v.Pos()}
	}
	fields, err := stringList(fv, "fields")
	if err != nil {
		return nil, err
	}
	return ir.FieldKeywords{Fields: fields, Keywords: kw, Negate: negate}, nil
}

// keywordSource reads keywords (inline list), keywords_from (context list
// name) and, when valueKey is set, a value string or list.
func keywordSource(v cue.Value, valueKey string) (ir.Keywords, error) {
	var kw ir.Keywords
	keys := []string{"keywords"}
	if valueKey != "" {
		keys = append(keys, valueKey)
	}
	for _, key := range keys {
		kv := v.LookupPath(cue.ParsePath(key))
		if !kv.Exists() {
			continue
		}
		list, err := stringList(kv, key)
		if err != nil {
			return kw, err
		}
		kw.Inline = append(kw.Inline, list...)
	}
	from, err := optionalString(v, "keywords_from")
	if err != nil {
		return kw, err
	}
	kw.From = strings.TrimSpace(from)
	if len(kw.Inline) == 0 && kw.From == "" {
		return kw, &CompileError{Field: "keywords", Message: "keywords or keywords_from is required", Pos: v.Pos()}
	}
	return kw, nil
}

// fieldAndRef reads field plus the date it is measured against: ref_field
// for another field, ref or a "{{name}}" value for a context date.
func fieldAndRef(v cue.Value) (string, ir.Operand, error) {
	field, err := requiredString(v, "field")
	if err != nil {
		return "", ir.Operand{}, err
	}
	ref, err := compileOperand(v)
	if err != nil {
		return "", ir.Operand{}, err
	}
	return field, ref, nil
}

func valueType(v cue.Value) (ir.ValueType, error) {
	s, err := optionalString(v, "type")
	if err != nil {
		return "", err
	}
	if s == "" {
		return ir.TypeAuto, nil
	}
	t := ir.ValueType(strings.ToLower(strings.TrimSpace(s)))
	if !ir.ValidValueTypes[t] {
		return "", &CompileError{Field: "type", Message: fmt.Sprintf("type must be auto, date, money or text, got %q", s), Pos: v.Pos()}
	}
	return t, nil
}

// literalString renders a scalar literal as text. Numbers keep their written
// form so money literals stay exact.
func literalString(v cue.Value) (string, error) {
	switch v.IncompleteKind() {
	case cue.StringKind:
		return v.String()
	case cue.IntKind, cue.FloatKind, cue.NumberKind:
		b, err := v.MarshalJSON()
		if err != nil {
			return "", formatCUEError(err)
		}
		return string(b), nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return "", formatCUEError(err)
		}
		return strconv.FormatBool(b), nil
	default:
		return "", &CompileError{Field: "value", Message: "value must be a string, number or bool", Pos: v.Pos()}
	}
}

func optionalBool(v cue.Value, key string) (bool, error) {
	f := v.LookupPath(cue.ParsePath(key))
	if !f.Exists() {
		return false, nil
	}
	b, err := f.Bool()
	if err != nil {
		return false, &CompileError{Field: key, Message: key + " must be a bool", Pos: f.Pos()}
	}
	return b, nil
}

func optionalInt(v cue.Value, key string) (int, bool, error) {
	f := v.LookupPath(cue.ParsePath(key))
	if !f.Exists() {
		return 0, false, nil
	}
	if f.IncompleteKind() != cue.IntKind {
		return 0, true, &CompileError{Field: key, Message: key + " must be a whole number", Pos: f.Pos()}
	}
	n, err := f.Int64()
	if err != nil {
		return 0, true, &CompileError{Field: key, Message: key + " must be a whole number", Pos: f.Pos()}
	}
	return int(n), true, nil
}

func requiredInt(v cue.Value, key string) (int, error) {
	n, ok, err := optionalInt(v, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, &CompileError{Field: key, Message: key + " is required", Pos: v.Pos()}
	}
	return n, nil
}
