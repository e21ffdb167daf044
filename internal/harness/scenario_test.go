package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScenario writes content to dir/test.yaml next to a placeholder
// rules file and returns the scenario path.
func writeScenario(t *testing.T, dir, content string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rules.cue"), []byte("rules: []\n"), 0644))
	path := filepath.Join(dir, "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const minimalScenario = `
name: test_scenario
description: "Test scenario for validation"
rules: [rules.cue]
reference_date: "2024-01-15"
records:
  - creditor_code: DISC
    balance: 1200.50
    closed: null
assertions:
  - type: violation_count
    count: 0
`

func TestLoadScenario_ValidFile(t *testing.T) {
	dir := t.TempDir()
	scenario, err := LoadScenario(writeScenario(t, dir, minimalScenario))
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, []string{filepath.Join(dir, "rules.cue")}, scenario.Rules, "paths resolve against the scenario directory")
	assert.Equal(t, "2024-01-15", scenario.ReferenceDate)
	require.Len(t, scenario.Records, 1)
	assert.Equal(t, "1200.50", scenario.Records[0]["balance"], "unquoted scalars keep their text")
	assert.Equal(t, "", scenario.Records[0]["closed"])
	require.Len(t, scenario.Assertions, 1)
	require.NotNil(t, scenario.Assertions[0].Count)
	assert.Equal(t, 0, *scenario.Assertions[0].Count)
}

func TestLoadScenario_ExampleFiles(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			_, err := LoadScenario(path)
			assert.NoError(t, err)
		})
	}
}

func TestLoadScenarioWithBasePath(t *testing.T) {
	dir := t.TempDir()
	scenarioDir := filepath.Join(dir, "scenarios")
	require.NoError(t, os.MkdirAll(scenarioDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rules.cue"), []byte("rules: []\n"), 0644))

	path := filepath.Join(scenarioDir, "test.yaml")
	content := `
name: base_path
description: "Rules resolved from the repository root"
rules: [rules.cue]
reference_date: "2024-01-15"
records: [{a: "1"}]
assertions: [{type: violation_count, count: 0}]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	scenario, err := LoadScenarioWithBasePath(path, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "rules.cue"), scenario.Rules[0])

	_, err = LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file not found")
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	dir := t.TempDir()
	content := minimalScenario + "assertion: []\n"
	_, err := LoadScenario(writeScenario(t, dir, content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing name",
			content: `
description: "x"
rules: [rules.cue]
reference_date: "2024-01-15"
records: [{a: "1"}]
assertions: [{type: violation_count, count: 0}]
`,
			wantErr: "name is required",
		},
		{
			name: "missing rules",
			content: `
name: x
description: "x"
reference_date: "2024-01-15"
records: [{a: "1"}]
assertions: [{type: violation_count, count: 0}]
`,
			wantErr: "rules list is required",
		},
		{
			name: "no reference date",
			content: `
name: x
description: "x"
rules: [rules.cue]
records: [{a: "1"}]
assertions: [{type: violation_count, count: 0}]
`,
			wantErr: "context or reference_date is required",
		},
		{
			name: "no records",
			content: `
name: x
description: "x"
rules: [rules.cue]
reference_date: "2024-01-15"
assertions: [{type: violation_count, count: 0}]
`,
			wantErr: "records or records_csv is required",
		},
		{
			name: "both record sources",
			content: `
name: x
description: "x"
rules: [rules.cue]
reference_date: "2024-01-15"
records: [{a: "1"}]
records_csv: rules.cue
assertions: [{type: violation_count, count: 0}]
`,
			wantErr: "mutually exclusive",
		},
		{
			name: "missing rules file",
			content: `
name: x
description: "x"
rules: [nope.cue]
reference_date: "2024-01-15"
records: [{a: "1"}]
assertions: [{type: violation_count, count: 0}]
`,
			wantErr: "file not found",
		},
		{
			name: "bad min severity",
			content: `
name: x
description: "x"
rules: [rules.cue]
reference_date: "2024-01-15"
min_severity: catastrophic
records: [{a: "1"}]
assertions: [{type: violation_count, count: 0}]
`,
			wantErr: "min_severity",
		},
		{
			name: "no assertions",
			content: `
name: x
description: "x"
rules: [rules.cue]
reference_date: "2024-01-15"
records: [{a: "1"}]
`,
			wantErr: "assertions list is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, t.TempDir(), tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateAssertion(t *testing.T) {
	one := 1
	negative := -1

	tests := []struct {
		name      string
		assertion Assertion
		wantErr   string
	}{
		{"violation ok", Assertion{Type: AssertViolation, Rule: "SEV-001"}, ""},
		{"violation without rule", Assertion{Type: AssertViolation}, "rule is required"},
		{"no_violation without rule", Assertion{Type: AssertNoViolation}, "rule is required"},
		{"audit_note without rule", Assertion{Type: AssertAuditNote}, "rule is required"},
		{"bad severity", Assertion{Type: AssertViolation, Rule: "R", Severity: "huge"}, "huge"},
		{"count ok", Assertion{Type: AssertViolationCount, Count: &one}, ""},
		{"count missing", Assertion{Type: AssertAuditCount}, "count is required"},
		{"count negative", Assertion{Type: AssertViolationCount, Count: &negative}, "non-negative"},
		{"order without rules", Assertion{Type: AssertViolationOrder}, "rules list is required"},
		{"final_state ok", Assertion{Type: AssertFinalState, Table: "violations", Expect: map[string]any{"id": "x"}}, ""},
		{"final_state without table", Assertion{Type: AssertFinalState, Expect: map[string]any{"id": "x"}}, "table is required"},
		{"final_state without expect", Assertion{Type: AssertFinalState, Table: "runs"}, "expect is required"},
		{"final_state unknown table", Assertion{Type: AssertFinalState, Table: "users", Expect: map[string]any{"id": "x"}}, "unknown table"},
		{"final_state float where", Assertion{Type: AssertFinalState, Table: "runs", Where: map[string]any{"id": 1.5}, Expect: map[string]any{"id": "x"}}, "unsupported value"},
		{"stored_count without count", Assertion{Type: AssertStoredCount, Table: "runs"}, "count is required"},
		{"missing type", Assertion{}, "type is required"},
		{"unknown type", Assertion{Type: "trace_contains"}, "unknown assertion type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateAssertion(0, &tt.assertion)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
