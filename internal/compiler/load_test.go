package compiler

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRules_DirectorySortedMixedFormats(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b_public.yaml", "rules:\n  - id: PR-001\n    severity: Minor\n    when: {field: x, op: exists}\n")
	writeFile(t, dir, "a_tradeline.cue", `rules: [{id: "EXT-001", severity: "Extreme", when: {field: "y", op: "exists"}}]`)
	writeFile(t, dir, "notes.txt", "ignored")
	writeFile(t, dir, "nested/c.yml", "rules:\n  - id: C-001\n    severity: Minor\n    when: {field: z, op: not_exists}\n")

	result, errs := LoadRules(dir, LoadModeCollectAll)
	require.Empty(t, errs)
	require.Len(t, result.Rules, 3)
	assert.Equal(t, "EXT-001", result.Rules[0].ID)
	assert.Equal(t, "PR-001", result.Rules[1].ID)
	assert.Equal(t, "C-001", result.Rules[2].ID)
	assert.Len(t, result.Files, 3)
}

func TestLoadRules_SingleFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "rules.cue", `rules: [{id: "A", severity: "Minor", when: {field: "y", op: "exists"}}]`)
	result, errs := LoadRules(path, LoadModeFailFast)
	require.Empty(t, errs)
	require.Len(t, result.Rules, 1)
}

func TestLoadRules_CollectAllVsFailFast(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.cue", `rules: [
	{id: "BAD-1", severity: "Minor", when: {field: "y", op: "nearly"}},
	{id: "GOOD", severity: "Minor", when: {field: "y", op: "exists"}},
	{id: "BAD-2", severity: "Tiny", when: {field: "y", op: "exists"}},
]`)

	result, errs := LoadRules(dir, LoadModeCollectAll)
	require.Len(t, errs, 2)
	require.Len(t, result.Rules, 1)
	assert.Equal(t, "GOOD", result.Rules[0].ID)

	var le *LoadError
	require.True(t, errors.As(errs[0], &le))
	assert.Equal(t, ErrCodeCompile, le.Code)
	assert.True(t, le.Pos.IsValid())

	_, errs = LoadRules(dir, LoadModeFailFast)
	assert.Len(t, errs, 1)
}

func TestLoadRules_Errors(t *testing.T) {
	dir := t.TempDir()

	_, errs := LoadRules(filepath.Join(dir, "missing"), LoadModeFailFast)
	requireLoadCode(t, errs, ErrCodeNotFound)

	_, errs = LoadRules(dir, LoadModeFailFast)
	requireLoadCode(t, errs, ErrCodeNoFiles)

	bad := writeFile(t, dir, "bad.cue", `rules: [`)
	_, errs = LoadRules(bad, LoadModeFailFast)
	requireLoadCode(t, errs, ErrCodeBuildFailed)

	badYAML := writeFile(t, t.TempDir(), "bad.yaml", "rules: [\n")
	_, errs = LoadRules(badYAML, LoadModeFailFast)
	requireLoadCode(t, errs, ErrCodeLoadFailed)
}

func requireLoadCode(t *testing.T, errs []error, code string) {
	t.Helper()
	require.Len(t, errs, 1)
	var le *LoadError
	require.True(t, errors.As(errs[0], &le), "expected *LoadError, got %T", errs[0])
	assert.Equal(t, code, le.Code)
}
