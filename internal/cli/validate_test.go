package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCommand_Valid(t *testing.T) {
	f := writeFixture(t)

	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	out, _, err := execute(cmd, "--rules", f.Rules, "--context", f.Context)

	require.NoError(t, err)
	assert.Equal(t, "✓ 3 rule(s) valid\n", out)
}

func TestValidateCommand_JSON(t *testing.T) {
	f := writeFixture(t)

	cmd := NewValidateCommand(&RootOptions{Format: "json"})
	out, _, err := execute(cmd, "--rules", f.Rules)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, 3, resp.Data.Rules)
	assert.Equal(t, 1, resp.Data.Files)
}

func TestValidateCommand_DuplicateIDs(t *testing.T) {
	dir := t.TempDir()
	rules := filepath.Join(dir, "rules.cue")
	writeTestFile(t, rules, `
rules: [{
	id:       "SEV-001"
	name:     "First"
	severity: "Severe"
	when: {field: "balance", op: ">", value: 0, type: "money"}
}, {
	id:       "SEV-001"
	name:     "Second"
	severity: "Severe"
	when: {field: "balance", op: "<", value: 0, type: "money"}
}]
`)

	t.Run("text", func(t *testing.T) {
		cmd := NewValidateCommand(&RootOptions{Format: "text"})
		out, _, err := execute(cmd, "--rules", rules)

		require.Error(t, err)
		assert.Equal(t, ExitFailure, GetExitCode(err))
		assert.Contains(t, out, "✗ Validation failed")
		assert.Contains(t, out, "[E102] rule SEV-001")
	})

	t.Run("json", func(t *testing.T) {
		cmd := NewValidateCommand(&RootOptions{Format: "json"})
		out, _, err := execute(cmd, "--rules", rules)

		require.Error(t, err)
		var resp CLIResponse
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		assert.Equal(t, "error", resp.Status)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "E102", resp.Error.Code)
	})
}

func TestValidateCommand_UnknownKeywordList(t *testing.T) {
	f := writeFixture(t)
	rules := filepath.Join(f.Dir, "keywords.cue")
	writeTestFile(t, rules, `
rules: [{
	id:       "SER-009"
	name:     "Unknown list"
	severity: "Serious"
	when: {field: "remarks", op: "contains", keywords_from: "no_such_list"}
}]
`)

	// Without a context the list cannot be checked.
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	_, _, err := execute(cmd, "--rules", rules)
	require.NoError(t, err)

	cmd = NewValidateCommand(&RootOptions{Format: "text"})
	out, _, err := execute(cmd, "--rules", rules, "--context", f.Context)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "[E104]")
	assert.Contains(t, out, `"no_such_list"`)
}

func TestValidateCommand_MissingPath(t *testing.T) {
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	out, _, err := execute(cmd, "--rules", filepath.Join(t.TempDir(), "missing"))

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
}

func TestValidateCommand_RequiresRules(t *testing.T) {
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	_, _, err := execute(cmd)

	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "rules" not set`)
}
