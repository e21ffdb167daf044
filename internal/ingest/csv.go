// Package ingest reads record sets.
package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/JeedaveyFCRA/vioverse-pro/internal/ir"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ErrNoHeader is returned for an empty input.
var ErrNoHeader = errors.New("csv has no header row")

// ReadCSV reads a header row and one record per following row. Header
// names are trimmed; blank cells are absent from the record; rows may be
// shorter or longer than the header. Row indexes start at 0 for the first
// data row.
func ReadCSV(r io.Reader) ([]ir.Record, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
	}

	var records []ir.Record
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(records), err)
		}
		records = append(records, ir.NewRecord(len(records), header, row))
	}
	return records, nil
}

// ReadCSVFile reads a CSV file with ReadCSV.
func ReadCSVFile(path string) ([]ir.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open records: %w", err)
	}
	defer f.Close()

	records, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}
