package harness

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/JeedaveyFCRA/vioverse-pro/internal/ir"
)

// GoldenDir is where golden snapshots live, relative to the test package.
const GoldenDir = "testdata/golden"

// Snapshot renders the findings of a run as indented canonical JSON.
// Every value goes through ir.MarshalCanonical, so the bytes are stable
// across runs, worker counts and platforms.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	violations := make([]any, 0, len(result.Set.Violations))
	for _, v := range result.Set.Violations {
		violations = append(violations, findingMap(v.Finding))
	}
	notes := make([]any, 0, len(result.Set.AuditNotes))
	for _, n := range result.Set.AuditNotes {
		notes = append(notes, findingMap(n.Finding))
	}

	canonical, err := ir.MarshalCanonical(map[string]any{
		"scenario_name": scenarioName,
		"run_id":        result.Run.ID,
		"violations":    violations,
		"audit_notes":   notes,
	})
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, canonical, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func findingMap(f ir.Finding) map[string]any {
	return map[string]any{
		"id":          f.ID,
		"rule_id":     f.RuleID,
		"rule_name":   f.RuleName,
		"severity":    f.Severity.String(),
		"citations":   f.Citations,
		"explanation": f.Explanation,
		"row_index":   f.RowIndex,
		"entity": map[string]any{
			"code":    f.Entity.Code,
			"name":    f.Entity.Name,
			"source":  f.Entity.Source,
			"period":  f.Entity.Period,
			"locator": f.Entity.Locator,
		},
		"evidence": f.Evidence,
	}
}

// RunWithGolden executes a scenario and compares its findings against
// the golden file {GoldenDir}/{scenario.Name}.golden. Options override
// the fixture directory or suffix.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns an error if the scenario cannot run. A snapshot mismatch fails
// t through goldie.
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...goldie.Option) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result, opts...)
}

// AssertGolden compares an existing result against its golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result, opts ...goldie.Option) error {
	t.Helper()

	snapshot, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t, append([]goldie.Option{
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	}, opts...)...)
	g.Assert(t, scenarioName, snapshot)
	return nil
}
