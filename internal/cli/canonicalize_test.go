package cli

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalizeCommand_Args(t *testing.T) {
	cmd := NewCanonicalizeCommand(&RootOptions{Format: "text"})
	out, _, err := execute(cmd, "SEARS / CBNA 1234****", "BANK OF AMERICA NA", "Local Credit Union")

	require.NoError(t, err)
	assert.Equal(t, "Sears/CBNA\nBank of America\nLocal Credit Union\n", out)
}

func TestCanonicalizeCommand_Stdin(t *testing.T) {
	cmd := NewCanonicalizeCommand(&RootOptions{Format: "text"})
	cmd.SetIn(strings.NewReader("DISCOVER BANK ****1234\n\n  BARCLAYS (CLOSED)  \n"))
	out, _, err := execute(cmd)

	require.NoError(t, err)
	assert.Equal(t, "Discover Bank\nBarclays\n", out)
}

func TestCanonicalizeCommand_Verbose(t *testing.T) {
	cmd := NewCanonicalizeCommand(&RootOptions{Format: "text", Verbose: true})
	out, _, err := execute(cmd, "DISCOVER BANK")

	require.NoError(t, err)
	assert.Equal(t, "DISCOVER BANK\tDiscover Bank\n", out)
}

func TestCanonicalizeCommand_JSON(t *testing.T) {
	cmd := NewCanonicalizeCommand(&RootOptions{Format: "json"})
	out, _, err := execute(cmd, "DISCOVER BANK")
	require.NoError(t, err)

	var resp struct {
		Status string          `json:"status"`
		Data   []CanonicalName `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, []CanonicalName{{Input: "DISCOVER BANK", Canonical: "Discover Bank"}}, resp.Data)
}

func TestCanonicalizeCommand_AliasFile(t *testing.T) {
	f := writeFixture(t)

	cmd := NewCanonicalizeCommand(&RootOptions{Format: "text"})
	out, _, err := execute(cmd, "--aliases", f.Aliases, "ACME CORP 99887766", "DISCOVER BANK")

	require.NoError(t, err)
	// The file replaces the built-in table.
	assert.Equal(t, "Acme Lending\nDISCOVER BANK\n", out)
}

func TestCanonicalizeCommand_BadAliasFile(t *testing.T) {
	dir := t.TempDir()
	aliases := filepath.Join(dir, "aliases.yaml")
	writeTestFile(t, aliases, "aliases:\n  - match: [ACME]\n")

	cmd := NewCanonicalizeCommand(&RootOptions{Format: "text"})
	out, _, err := execute(cmd, "--aliases", aliases, "ACME")

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "cannot load aliases")
	assert.Contains(t, out, "canonical is required")
}
