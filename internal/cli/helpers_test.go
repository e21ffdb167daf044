package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const fixtureRules = `
rules: [{
	id:       "SEV-001"
	name:     "Balance after discharge"
	severity: "Severe"
	when: all: [
		{field: "report_date", op: ">", value: "{{discharge_date}}", type: "date"},
		{field: "balance", op: ">", value: 0, type: "money"},
	]
	evidence: [{field: "balance", type: "money"}]
}, {
	id:       "SER-001"
	name:     "Bankruptcy not reported"
	severity: "Serious"
	when: {field: "remarks", op: "not_contains", keywords_from: "bankruptcy_tokens", allow_missing: true}
}, {
	id:       "AUD-001"
	name:     "Masked number differs"
	severity: "Minor"
	kind:     "audit"
	when: {op: "fragment_mismatch", field: "account_number_masked", ref_field: "account_last4"}
}]
`

const fixtureContext = `
reference_date: 2024-01-15
reference_name: discharge_date
keywords:
  bankruptcy_tokens: [bankrupt, chapter 7, discharged]
`

const fixtureRecords = `creditor_code,creditor_full_name,bureau,report_date,account_last4,account_number_masked,balance,remarks
DISC,Discover Bank,EQ,2024-03-01,1234,XXXX1234,$500.00,Discharged in chapter 7
DISC,DISCOVER BANK,TU,03/01/2024,1234,XXXX9999,$0,Included in bankruptcy
DISC,Discover Bank,EX,2024-03-01,1234,XXXX1234,$0.00,Charged off
`

const fixtureAliases = `
aliases:
  - match: [ACME]
    canonical: Acme Lending
sources:
  INV: Innovis
`

// fixture holds the paths of one set of evaluate inputs.
type fixture struct {
	Dir     string
	Rules   string
	Context string
	Records string
	Aliases string
}

func writeFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{
		Dir:     dir,
		Rules:   filepath.Join(dir, "rules.cue"),
		Context: filepath.Join(dir, "context.yaml"),
		Records: filepath.Join(dir, "records.csv"),
		Aliases: filepath.Join(dir, "aliases.yaml"),
	}
	writeTestFile(t, f.Rules, fixtureRules)
	writeTestFile(t, f.Context, fixtureContext)
	writeTestFile(t, f.Records, fixtureRecords)
	writeTestFile(t, f.Aliases, fixtureAliases)
	return f
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// execute runs cmd with args and returns stdout and stderr.
func execute(cmd *cobra.Command, args ...string) (string, string, error) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}
