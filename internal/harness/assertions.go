package harness

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/JeedaveyFCRA/vioverse-pro/internal/ir"
	"github.com/JeedaveyFCRA/vioverse-pro/internal/queryir"
	"github.com/JeedaveyFCRA/vioverse-pro/internal/querysql"
	"github.com/JeedaveyFCRA/vioverse-pro/internal/store"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string

	// Findings lists the findings the assertion searched, for context.
	Findings []ir.Finding
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Findings) > 0 {
		fmt.Fprintf(&buf, "\nFindings:\n")
		for _, f := range e.Findings {
			fmt.Fprintf(&buf, "  row %d %s (%s, %s)\n", f.RowIndex, f.RuleID, f.Severity, f.Entity.Source)
		}
	}
	return buf.String()
}

// AssertionContext provides database access for stored-row assertions.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// EvaluateAssertions evaluates all assertions against the result and
// returns one message per failure.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	violations := result.Set.Findings()
	notes := result.Set.Notes()

	var errors []string
	for i, a := range assertions {
		var err error

		switch a.Type {
		case AssertViolation:
			err = assertFinding(AssertViolation, violations, a)
		case AssertNoViolation:
			err = assertNoFinding(violations, a)
		case AssertAuditNote:
			err = assertFinding(AssertAuditNote, notes, a)
		case AssertViolationCount:
			err = assertCount(AssertViolationCount, violations, a)
		case AssertAuditCount:
			err = assertCount(AssertAuditCount, notes, a)
		case AssertViolationOrder:
			err = assertViolationOrder(violations, a)
		case AssertFinalState, AssertStoredCount:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: %s requires database context", i, a.Type)
				break
			}
			if a.Type == AssertFinalState {
				err = assertFinalState(actx.Ctx, actx.Store, a)
			} else {
				err = assertStoredCount(actx.Ctx, actx.Store, a)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}
	return errors
}

// matchFinding reports whether f satisfies every criterion a sets.
func matchFinding(f ir.Finding, a Assertion) bool {
	if a.Rule != "" && f.RuleID != a.Rule {
		return false
	}
	if a.Row != nil && f.RowIndex != *a.Row {
		return false
	}
	if a.Source != "" && f.Entity.Source != a.Source {
		return false
	}
	if a.Severity != "" && !strings.EqualFold(f.Severity.String(), a.Severity) {
		return false
	}
	for key, want := range a.Evidence {
		got, ok := f.Evidence[key]
		if !ok || !evidenceMatches(got, want) {
			return false
		}
	}
	return true
}

// describeMatch renders the criteria of a finding assertion.
func describeMatch(a Assertion) string {
	parts := []string{"rule " + a.Rule}
	if a.Row != nil {
		parts = append(parts, fmt.Sprintf("row %d", *a.Row))
	}
	if a.Source != "" {
		parts = append(parts, "source "+a.Source)
	}
	if a.Severity != "" {
		parts = append(parts, "severity "+a.Severity)
	}
	if len(a.Evidence) > 0 {
		parts = append(parts, fmt.Sprintf("evidence %v", a.Evidence))
	}
	return strings.Join(parts, ", ")
}

// assertFinding checks that at least one finding matches.
func assertFinding(kind string, findings []ir.Finding, a Assertion) error {
	for _, f := range findings {
		if matchFinding(f, a) {
			return nil
		}
	}
	return &AssertionError{
		Type:     kind,
		Expected: describeMatch(a),
		Actual:   "no matching finding",
		Findings: findings,
	}
}

// assertNoFinding checks that no violation matches.
func assertNoFinding(findings []ir.Finding, a Assertion) error {
	for _, f := range findings {
		if matchFinding(f, a) {
			return &AssertionError{
				Type:     AssertNoViolation,
				Expected: "no violation with " + describeMatch(a),
				Actual:   fmt.Sprintf("found %s at row %d", f.ID, f.RowIndex),
				Findings: findings,
			}
		}
	}
	return nil
}

// assertCount checks the exact number of findings, of one rule when set.
func assertCount(kind string, findings []ir.Finding, a Assertion) error {
	count := 0
	for _, f := range findings {
		if a.Rule == "" || f.RuleID == a.Rule {
			count++
		}
	}
	if count == *a.Count {
		return nil
	}
	what := "findings"
	if a.Rule != "" {
		what = "findings of " + a.Rule
	}
	return &AssertionError{
		Type:     kind,
		Expected: fmt.Sprintf("%d %s", *a.Count, what),
		Actual:   fmt.Sprintf("%d %s", count, what),
		Findings: findings,
	}
}

// assertViolationOrder checks that the first violation of each rule
// appears in the given order. Other violations may appear in between.
func assertViolationOrder(findings []ir.Finding, a Assertion) error {
	positions := make(map[string]int)
	for i, f := range findings {
		if _, seen := positions[f.RuleID]; !seen {
			positions[f.RuleID] = i + 1
		}
	}

	for _, rule := range a.Rules {
		if positions[rule] == 0 {
			return &AssertionError{
				Type:     AssertViolationOrder,
				Expected: fmt.Sprintf("all rules present: %v", a.Rules),
				Actual:   "missing rule: " + rule,
				Findings: findings,
			}
		}
	}

	for i := 1; i < len(a.Rules); i++ {
		prev, curr := a.Rules[i-1], a.Rules[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertViolationOrder,
				Expected: fmt.Sprintf("rules in order: %v", a.Rules),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Findings: findings,
			}
		}
	}
	return nil
}

// evidenceMatches compares an evidence value with its expected text.
func evidenceMatches(v ir.IRValue, want string) bool {
	if _, isNull := v.(ir.IRNull); isNull {
		return want == "" || want == "null"
	}
	return evidenceText(v) == want
}

// evidenceText renders a scalar evidence value as plain text; compound
// values render as canonical JSON.
func evidenceText(v ir.IRValue) string {
	switch val := v.(type) {
	case ir.IRString:
		return string(val)
	case ir.IRInt:
		return strconv.FormatInt(int64(val), 10)
	case ir.IRBool:
		return strconv.FormatBool(bool(val))
	case ir.IRDecimal:
		return val.String()
	case ir.IRNull:
		return "null"
	default:
		b, err := ir.MarshalCanonical(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}

// assertFinalState checks that exactly one stored row matches Where and
// that it holds every Expect value.
func assertFinalState(ctx context.Context, st *store.Store, a Assertion) error {
	filter, err := whereFilter(a.Where)
	if err != nil {
		return err
	}
	query, params, err := querysql.Compile(queryir.Select{From: a.Table, Filter: filter})
	if err != nil {
		return err
	}

	rows, err := st.Query(ctx, query, params...)
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: "query table " + a.Table,
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("get columns: %w", err)
	}

	if !rows.Next() {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("row in %s where %s", a.Table, formatWhere(a.Where)),
			Actual:   "row not found",
		}
	}

	values := make([]any, len(columns))
	valuePtrs := make([]any, len(columns))
	for i := range values {
		valuePtrs[i] = &values[i]
	}
	if err := rows.Scan(valuePtrs...); err != nil {
		return fmt.Errorf("scan row: %w", err)
	}

	if rows.Next() {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("exactly one row in %s where %s", a.Table, formatWhere(a.Where)),
			Actual:   "multiple rows matched (assertion is ambiguous)",
		}
	}

	actualRow := make(map[string]any, len(columns))
	for i, col := range columns {
		actualRow[col] = values[i]
	}

	for _, key := range sortedKeys(a.Expect) {
		expected := a.Expect[key]
		actual, exists := actualRow[key]
		if !exists {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("field %q not present in result columns: %v", key, columns),
			}
		}
		if !stateValuesEqual(expected, actual) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q = %v (type %T)", key, expected, expected),
				Actual:   fmt.Sprintf("field %q = %v (type %T)", key, actual, actual),
			}
		}
	}
	return nil
}

// assertStoredCount checks the number of stored rows matching Where.
func assertStoredCount(ctx context.Context, st *store.Store, a Assertion) error {
	filter, err := whereFilter(a.Where)
	if err != nil {
		return err
	}
	n, err := st.Count(ctx, a.Table, filter)
	if err != nil {
		return err
	}
	if n != *a.Count {
		return &AssertionError{
			Type:     AssertStoredCount,
			Expected: fmt.Sprintf("%d rows in %s where %s", *a.Count, a.Table, formatWhere(a.Where)),
			Actual:   fmt.Sprintf("%d rows", n),
		}
	}
	return nil
}

// whereFilter converts a where map into an equality conjunction. Keys
// are sorted so the compiled query is deterministic.
func whereFilter(where map[string]any) (queryir.Predicate, error) {
	var preds []queryir.Predicate
	for _, key := range sortedKeys(where) {
		v, err := toIRScalar(where[key])
		if err != nil {
			return nil, fmt.Errorf("where %s: %w", key, err)
		}
		preds = append(preds, queryir.Equals{Field: key, Value: v})
	}
	return queryir.Where(preds...), nil
}

// toIRScalar lifts a YAML scalar into an IR value.
func toIRScalar(v any) (ir.IRValue, error) {
	switch val := v.(type) {
	case string:
		return ir.IRString(val), nil
	case int:
		return ir.IRInt(val), nil
	case int64:
		return ir.IRInt(val), nil
	case bool:
		return ir.IRBool(val), nil
	default:
		return nil, fmt.Errorf("unsupported value %v (type %T): use a string, integer or boolean", v, v)
	}
}

// formatWhere creates a human-readable description of where conditions.
func formatWhere(where map[string]any) string {
	if len(where) == 0 {
		return "(no conditions)"
	}
	parts := make([]string, 0, len(where))
	for _, k := range sortedKeys(where) {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// stateValuesEqual compares an expected YAML value with a stored column.
// SQLite returns TEXT as string and INTEGER as int64.
func stateValuesEqual(expected, actual any) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}

	switch exp := expected.(type) {
	case string:
		switch act := actual.(type) {
		case string:
			return exp == act
		case []byte:
			return exp == string(act)
		}
	case int:
		if act, ok := actual.(int64); ok {
			return int64(exp) == act
		}
	case int64:
		if act, ok := actual.(int64); ok {
			return exp == act
		}
	case bool:
		if act, ok := actual.(int64); ok {
			return exp == (act != 0)
		}
		if act, ok := actual.(bool); ok {
			return exp == act
		}
	}
	return false
}
