package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JeedaveyFCRA/vioverse-pro/internal/testutil"
)

func TestRun_ExampleScenarios(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Empty(t, result.Errors)
		})
	}
}

func TestRun_ReportsFailedAssertions(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/discharge.yaml")
	require.NoError(t, err)

	scenario.Assertions = []Assertion{
		{Type: AssertViolation, Rule: "SEV-001", Row: intPtr(1)},
		{Type: AssertViolationCount, Count: intPtr(3)},
		{Type: AssertStoredCount, Table: "runs", Count: intPtr(2)},
	}
	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "rule SEV-001, row 1")
	assert.Contains(t, result.Errors[1], "stored_count")
}

func TestRun_RunID(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/severity_floor.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.Equal(t, testutil.DefaultRunID, result.Run.ID)
	assert.Equal(t, testutil.DefaultRunID, result.Summary.RunID)

	scenario.RunID = "run-fixed"
	result, err = Run(scenario)
	require.NoError(t, err)
	assert.Equal(t, "run-fixed", result.Run.ID)
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/discharge.yaml")
	require.NoError(t, err)

	a, err := Run(scenario)
	require.NoError(t, err)
	b, err := Run(scenario)
	require.NoError(t, err)

	snapA, err := Snapshot(scenario.Name, a)
	require.NoError(t, err)
	snapB, err := Snapshot(scenario.Name, b)
	require.NoError(t, err)
	assert.Equal(t, string(snapA), string(snapB))
}

func TestRun_InputErrors(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/discharge.yaml")
	require.NoError(t, err)

	bad := *scenario
	bad.ReferenceDate = "15/01/2024"
	_, err = Run(&bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load inputs")

	bad = *scenario
	bad.Context = ""
	bad.ReferenceDate = ""
	_, err = Run(&bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reference date")
}

func TestNewResult(t *testing.T) {
	r := NewResult()
	assert.True(t, r.Pass)
	assert.Empty(t, r.Errors)

	r.AddError("boom")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"boom"}, r.Errors)
}
