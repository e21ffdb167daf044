package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV(t *testing.T) {
	in := "\xEF\xBB\xBF creditor_full_name ,balance,remarks\n" +
		"Discover Bank,\"$1,200\",\n" +
		"Ally,,\"said \"\"paid\"\"\",extra\n" +
		"Citi\n"

	records, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, records, 3)

	r0 := records[0]
	assert.Equal(t, 0, r0.Index)
	assert.Equal(t, []string{"creditor_full_name", "balance", "remarks"}, r0.Columns)
	assert.Equal(t, "Discover Bank", r0.Fields["creditor_full_name"])
	assert.Equal(t, "$1,200", r0.Fields["balance"])
	_, ok := r0.Get("remarks")
	assert.False(t, ok, "blank cells are absent")

	r1 := records[1]
	_, ok = r1.Get("balance")
	assert.False(t, ok)
	assert.Equal(t, `said "paid"`, r1.Fields["remarks"])

	r2 := records[2]
	assert.Equal(t, 2, r2.Index)
	assert.Equal(t, map[string]string{"creditor_full_name": "Citi"}, r2.Fields)
}

func TestReadCSV_Empty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrNoHeader)

	records, err := ReadCSV(strings.NewReader("a,b\n"))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestReadCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.csv")
	require.NoError(t, os.WriteFile(path, []byte("bureau\nTU\n"), 0o644))

	records, err := ReadCSVFile(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "TU", records[0].Fields["bureau"])

	_, err = ReadCSVFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
