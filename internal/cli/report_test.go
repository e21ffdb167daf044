package cli

import (
	"encoding/csv"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JeedaveyFCRA/vioverse-pro/internal/ir"
)

// storedRun evaluates the fixture into a fresh database and returns its path.
func storedRun(t *testing.T) string {
	t.Helper()
	f := writeFixture(t)
	db := filepath.Join(f.Dir, "runs.db")

	cmd := NewEvaluateCommand(&RootOptions{Format: "text"})
	_, _, err := execute(cmd, f.Records, "--rules", f.Rules, "--context", f.Context, "--db", db)
	require.NoError(t, err)
	return db
}

type reportResponse struct {
	Status string    `json:"status"`
	Data   RunReport `json:"data"`
}

func runReportJSON(t *testing.T, args ...string) RunReport {
	t.Helper()
	cmd := NewReportCommand(&RootOptions{Format: "json"})
	out, _, err := execute(cmd, args...)
	require.NoError(t, err)

	var resp reportResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, "ok", resp.Status)
	return resp.Data
}

func TestReportCommand_ListRuns(t *testing.T) {
	db := storedRun(t)

	cmd := NewReportCommand(&RootOptions{Format: "text"})
	out, _, err := execute(cmd, "--db", db)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "RUN"))
	assert.Equal(t, []string{"2024-01-15", "3", "3", "1"}, strings.Fields(lines[1])[1:])
}

func TestReportCommand_ListRunsJSON(t *testing.T) {
	db := storedRun(t)

	cmd := NewReportCommand(&RootOptions{Format: "json"})
	out, _, err := execute(cmd, "--db", db)
	require.NoError(t, err)

	var resp struct {
		Data []ir.RunRecord `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, 3, resp.Data[0].ViolationCount)
	assert.Equal(t, 1, resp.Data[0].AuditCount)
}

func TestReportCommand_LatestCSV(t *testing.T) {
	db := storedRun(t)

	cmd := NewReportCommand(&RootOptions{Format: "text"})
	out, _, err := execute(cmd, "--db", db, "--run", "latest", "--audit")
	require.NoError(t, err)

	sections := strings.SplitN(out, "\n\n", 2)
	require.Len(t, sections, 2)

	violations, err := csv.NewReader(strings.NewReader(sections[0])).ReadAll()
	require.NoError(t, err)
	require.Len(t, violations, 4)
	assert.Equal(t, "finding_id", violations[0][0])
	assert.Equal(t, "SEV-001", violations[1][1])

	notes, err := csv.NewReader(strings.NewReader(sections[1])).ReadAll()
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "note_id", notes[0][0])
	assert.Equal(t, "AUD-001", notes[1][1])
}

func TestReportCommand_Filters(t *testing.T) {
	db := storedRun(t)

	tests := []struct {
		name      string
		args      []string
		wantRules []string
		wantNotes int
	}{
		{
			name:      "no filter",
			args:      nil,
			wantRules: []string{"SEV-001", "SEV-XB-001", "SER-001"},
			wantNotes: 1,
		},
		{
			name:      "rule",
			args:      []string{"--rule", "SEV-001"},
			wantRules: []string{"SEV-001"},
		},
		{
			name:      "source",
			args:      []string{"--source", "Experian,TransUnion"},
			wantRules: []string{"SER-001"},
			wantNotes: 1,
		},
		{
			name:      "min severity",
			args:      []string{"--min-severity", "severe"},
			wantRules: []string{"SEV-001", "SEV-XB-001"},
		},
		{
			name:      "combined",
			args:      []string{"--rule", "SEV-001,SER-001", "--min-severity", "serious", "--source", "Experian"},
			wantRules: []string{"SER-001"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--db", db, "--run", "latest", "--audit"}, tt.args...)
			rep := runReportJSON(t, args...)

			var rules []string
			for _, v := range rep.Violations {
				rules = append(rules, v.RuleID)
			}
			assert.Equal(t, tt.wantRules, rules)
			assert.Len(t, rep.AuditNotes, tt.wantNotes)
		})
	}
}

func TestReportCommand_ByRunID(t *testing.T) {
	db := storedRun(t)
	latest := runReportJSON(t, "--db", db, "--run", "latest")

	rep := runReportJSON(t, "--db", db, "--run", latest.Run.ID)
	assert.Equal(t, latest.Run, rep.Run)
	assert.Len(t, rep.Violations, 3)
	assert.Empty(t, rep.AuditNotes)
}

func TestReportCommand_Errors(t *testing.T) {
	db := storedRun(t)

	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantOut  string
	}{
		{
			name:     "missing database",
			args:     []string{"--db", filepath.Join(t.TempDir(), "none.db")},
			wantCode: ExitCommandError,
			wantOut:  "database not found",
		},
		{
			name:     "unknown run",
			args:     []string{"--db", db, "--run", "no-such-run"},
			wantCode: ExitFailure,
			wantOut:  "run not found",
		},
		{
			name:     "unknown severity",
			args:     []string{"--db", db, "--run", "latest", "--min-severity", "dire"},
			wantCode: ExitCommandError,
			wantOut:  "invalid --min-severity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewReportCommand(&RootOptions{Format: "text"})
			out, _, err := execute(cmd, tt.args...)

			require.Error(t, err)
			assert.Equal(t, tt.wantCode, GetExitCode(err))
			assert.Contains(t, out, tt.wantOut)
		})
	}
}
