package harness

import (
	"context"
	"testing"

	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JeedaveyFCRA/vioverse-pro/internal/ir"
	"github.com/JeedaveyFCRA/vioverse-pro/internal/report"
	"github.com/JeedaveyFCRA/vioverse-pro/internal/store"
)

func intPtr(n int) *int { return &n }

func testFinding(id, rule string, row int, source string, sev ir.Severity, ev ir.IRObject) ir.Finding {
	return ir.Finding{
		ID:       id,
		RuleID:   rule,
		RuleName: "Rule " + rule,
		Severity: sev,
		Entity:   ir.EntityIdentity{Code: "DISC", Name: "Discover Bank", Source: source, Period: "2024-03-01"},
		RowIndex: row,
		Evidence: ev,
	}
}

func testResult() *Result {
	d, _, _ := apd.NewFromString("500.00")
	r := NewResult()
	r.Run = ir.RunRecord{ID: "run-1", ReferenceDate: "2024-01-15", RecordCount: 3, ViolationCount: 3, AuditCount: 1}
	r.Set = report.Set{
		RunID: "run-1",
		Violations: []ir.Violation{
			{Finding: testFinding("v1", "SEV-001", 0, "Equifax", ir.SeveritySevere, ir.IRObject{"balance": ir.NewIRDecimal(d)})},
			{Finding: testFinding("v2", "SEV-XB-001", 0, "Equifax", ir.SeveritySevere, ir.IRObject{"field": ir.IRString("balance")})},
			{Finding: testFinding("v3", "SER-001", 2, "Experian", ir.SeveritySerious, ir.IRObject{"remarks": ir.IRString("Charged off"), "closed": ir.IRNull{}})},
		},
		AuditNotes: []ir.AuditNote{
			{Finding: testFinding("a1", "AUD-001", 1, "TransUnion", ir.SeverityMinor, ir.IRObject{"count": ir.IRInt(2)})},
		},
	}
	return r
}

func TestMatchFinding(t *testing.T) {
	f := testResult().Set.Violations[2].Finding

	tests := []struct {
		name      string
		assertion Assertion
		want      bool
	}{
		{"rule only", Assertion{Rule: "SER-001"}, true},
		{"wrong rule", Assertion{Rule: "SEV-001"}, false},
		{"row", Assertion{Rule: "SER-001", Row: intPtr(2)}, true},
		{"row zero is checked", Assertion{Rule: "SER-001", Row: intPtr(0)}, false},
		{"source", Assertion{Rule: "SER-001", Source: "Experian"}, true},
		{"wrong source", Assertion{Rule: "SER-001", Source: "Equifax"}, false},
		{"severity any case", Assertion{Rule: "SER-001", Severity: "serious"}, true},
		{"wrong severity", Assertion{Rule: "SER-001", Severity: "Minor"}, false},
		{"evidence text", Assertion{Rule: "SER-001", Evidence: map[string]string{"remarks": "Charged off"}}, true},
		{"evidence null as empty", Assertion{Rule: "SER-001", Evidence: map[string]string{"closed": ""}}, true},
		{"evidence null as null", Assertion{Rule: "SER-001", Evidence: map[string]string{"closed": "null"}}, true},
		{"evidence missing key", Assertion{Rule: "SER-001", Evidence: map[string]string{"balance": ""}}, false},
		{"evidence mismatch", Assertion{Rule: "SER-001", Evidence: map[string]string{"remarks": "Paid"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matchFinding(f, tt.assertion))
		})
	}
}

func TestEvidenceText(t *testing.T) {
	d, _, _ := apd.NewFromString("1200.50")
	assert.Equal(t, "1200.50", evidenceText(ir.NewIRDecimal(d)))
	assert.Equal(t, "3", evidenceText(ir.IRInt(3)))
	assert.Equal(t, "true", evidenceText(ir.IRBool(true)))
	assert.Equal(t, "null", evidenceText(ir.IRNull{}))
	assert.Equal(t, `{"EQ":"$1","TU":"$2"}`, evidenceText(ir.IRObject{"TU": ir.IRString("$2"), "EQ": ir.IRString("$1")}))
}

func TestEvaluateAssertions_Findings(t *testing.T) {
	result := testResult()

	passing := []Assertion{
		{Type: AssertViolation, Rule: "SEV-001", Row: intPtr(0), Evidence: map[string]string{"balance": "500.00"}},
		{Type: AssertNoViolation, Rule: "SER-001", Row: intPtr(0)},
		{Type: AssertAuditNote, Rule: "AUD-001", Source: "TransUnion", Evidence: map[string]string{"count": "2"}},
		{Type: AssertViolationCount, Count: intPtr(3)},
		{Type: AssertViolationCount, Rule: "SEV-001", Count: intPtr(1)},
		{Type: AssertAuditCount, Count: intPtr(1)},
		{Type: AssertViolationOrder, Rules: []string{"SEV-001", "SER-001"}},
	}
	assert.Empty(t, EvaluateAssertions(result, passing, nil))

	failing := []Assertion{
		{Type: AssertViolation, Rule: "SEV-002"},
		{Type: AssertNoViolation, Rule: "SEV-001"},
		{Type: AssertAuditNote, Rule: "SEV-001"},
		{Type: AssertViolationCount, Count: intPtr(2)},
		{Type: AssertAuditCount, Rule: "AUD-001", Count: intPtr(0)},
		{Type: AssertViolationOrder, Rules: []string{"SER-001", "SEV-001"}},
		{Type: AssertViolationOrder, Rules: []string{"SEV-001", "SEV-009"}},
	}
	errs := EvaluateAssertions(result, failing, nil)
	require.Len(t, errs, len(failing))
	assert.Contains(t, errs[0], "no matching finding")
	assert.Contains(t, errs[1], "found v1 at row 0")
	assert.Contains(t, errs[3], "Expected: 2 findings")
	assert.Contains(t, errs[3], "Actual: 3 findings")
	assert.Contains(t, errs[5], "SER-001 (pos 3) should be before SEV-001 (pos 1)")
	assert.Contains(t, errs[6], "missing rule: SEV-009")
}

func TestEvaluateAssertions_UnknownType(t *testing.T) {
	errs := EvaluateAssertions(testResult(), []Assertion{{Type: "trace_contains"}}, nil)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], `unknown assertion type "trace_contains"`)
}

func TestEvaluateAssertions_StoredRowsNeedStore(t *testing.T) {
	errs := EvaluateAssertions(testResult(), []Assertion{
		{Type: AssertFinalState, Table: "runs", Expect: map[string]any{"id": "run-1"}},
		{Type: AssertStoredCount, Table: "runs", Count: intPtr(1)},
	}, nil)
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "requires database context")
}

func TestAssertionError_ListsFindings(t *testing.T) {
	err := assertFinding(AssertViolation, testResult().Set.Findings(), Assertion{Rule: "SEV-002", Row: intPtr(4)})
	require.Error(t, err)

	var assertErr *AssertionError
	require.ErrorAs(t, err, &assertErr)
	assert.Equal(t, AssertViolation, assertErr.Type)
	assert.Equal(t, "rule SEV-002, row 4", assertErr.Expected)
	assert.Contains(t, err.Error(), "row 2 SER-001 (Serious, Experian)")
}

func storedResult(t *testing.T) (*Result, *AssertionContext) {
	t.Helper()
	result := testResult()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	require.NoError(t, st.WriteRun(ctx, result.Run, result.Set.Violations, result.Set.AuditNotes))
	return result, &AssertionContext{Store: st, Ctx: ctx}
}

func TestAssertFinalState(t *testing.T) {
	result, actx := storedResult(t)

	tests := []struct {
		name      string
		assertion Assertion
		wantErr   string
	}{
		{
			name:      "run row",
			assertion: Assertion{Type: AssertFinalState, Table: "runs", Where: map[string]any{"id": "run-1"}, Expect: map[string]any{"reference_date": "2024-01-15", "record_count": 3}},
		},
		{
			name:      "violation row",
			assertion: Assertion{Type: AssertFinalState, Table: "violations", Where: map[string]any{"rule_id": "SER-001"}, Expect: map[string]any{"row_index": 2, "source": "Experian", "severity": "Serious"}},
		},
		{
			name:      "two where keys",
			assertion: Assertion{Type: AssertFinalState, Table: "violations", Where: map[string]any{"row_index": 0, "rule_id": "SEV-001"}, Expect: map[string]any{"id": "v1"}},
		},
		{
			name:      "value mismatch",
			assertion: Assertion{Type: AssertFinalState, Table: "runs", Expect: map[string]any{"record_count": 4}},
			wantErr:   `field "record_count" = 4`,
		},
		{
			name:      "type mismatch",
			assertion: Assertion{Type: AssertFinalState, Table: "runs", Expect: map[string]any{"record_count": "3"}},
			wantErr:   "type string",
		},
		{
			name:      "no row",
			assertion: Assertion{Type: AssertFinalState, Table: "violations", Where: map[string]any{"rule_id": "NOPE"}, Expect: map[string]any{"id": "x"}},
			wantErr:   "row not found",
		},
		{
			name:      "ambiguous",
			assertion: Assertion{Type: AssertFinalState, Table: "violations", Where: map[string]any{"row_index": 0}, Expect: map[string]any{"id": "v1"}},
			wantErr:   "multiple rows matched",
		},
		{
			name:      "unknown column",
			assertion: Assertion{Type: AssertFinalState, Table: "runs", Expect: map[string]any{"status": "done"}},
			wantErr:   `field "status" not present`,
		},
		{
			name:      "injection attempt",
			assertion: Assertion{Type: AssertFinalState, Table: "runs; DROP TABLE runs", Expect: map[string]any{"id": "x"}},
			wantErr:   "unknown table",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(result, []Assertion{tt.assertion}, actx)
			if tt.wantErr == "" {
				assert.Empty(t, errs)
				return
			}
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], tt.wantErr)
		})
	}
}

func TestAssertStoredCount(t *testing.T) {
	result, actx := storedResult(t)

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertStoredCount, Table: "violations", Count: intPtr(3)},
		{Type: AssertStoredCount, Table: "violations", Where: map[string]any{"severity": "Severe"}, Count: intPtr(2)},
		{Type: AssertStoredCount, Table: "audit_notes", Where: map[string]any{"run_id": "run-1"}, Count: intPtr(1)},
		{Type: AssertStoredCount, Table: "runs", Count: intPtr(1)},
	}, actx)
	assert.Empty(t, errs)

	errs = EvaluateAssertions(result, []Assertion{
		{Type: AssertStoredCount, Table: "violations", Where: map[string]any{"source": "Equifax"}, Count: intPtr(5)},
	}, actx)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "Actual: 2 rows")
}

func TestStateValuesEqual(t *testing.T) {
	tests := []struct {
		name     string
		expected any
		actual   any
		want     bool
	}{
		{"string", "a", "a", true},
		{"string bytes", "a", []byte("a"), true},
		{"string mismatch", "a", "b", false},
		{"int vs int64", 3, int64(3), true},
		{"int mismatch", 3, int64(4), false},
		{"int vs string", 3, "3", false},
		{"bool vs int64", true, int64(1), true},
		{"bool false", false, int64(0), true},
		{"both nil", nil, nil, true},
		{"one nil", "a", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stateValuesEqual(tt.expected, tt.actual))
		})
	}
}
