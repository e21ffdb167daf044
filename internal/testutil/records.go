package testutil

import (
	"slices"

	"github.com/JeedaveyFCRA/vioverse-pro/internal/ir"
)

// Records builds one record per row against header, indexed from 0.
func Records(header []string, rows ...[]string) []ir.Record {
	out := make([]ir.Record, len(rows))
	for i, row := range rows {
		out[i] = ir.NewRecord(i, header, row)
	}
	return out
}

// RecordsFromMaps builds records from column -> value maps. columns fixes
// the column order; when empty it is the sorted union of every map's keys.
func RecordsFromMaps(columns []string, rows []map[string]string) []ir.Record {
	if len(columns) == 0 {
		columns = Columns(rows)
	}
	out := make([]ir.Record, len(rows))
	for i, m := range rows {
		row := make([]string, len(columns))
		for j, col := range columns {
			row[j] = m[col]
		}
		out[i] = ir.NewRecord(i, columns, row)
	}
	return out
}

// Columns returns the sorted union of the keys of rows.
func Columns(rows []map[string]string) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, m := range rows {
		for k := range m {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	slices.Sort(cols)
	return cols
}
