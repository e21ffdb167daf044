package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/JeedaveyFCRA/vioverse-pro/internal/ir"
)

// CitationSeparator joins citations in a single CSV cell.
const CitationSeparator = ";"

// Row renders a finding in Columns order.
func Row(f ir.Finding) ([]string, error) {
	evidence := f.Evidence
	if evidence == nil {
		evidence = ir.IRObject{}
	}
	ev, err := ir.MarshalCanonical(evidence)
	if err != nil {
		return nil, fmt.Errorf("finding %s evidence: %w", f.ID, err)
	}
	return []string{
		f.ID,
		f.RuleID,
		f.RuleName,
		f.Severity.String(),
		strings.Join(f.Citations, CitationSeparator),
		f.Explanation,
		f.Entity.Code,
		f.Entity.Name,
		f.Entity.Source,
		f.Entity.Period,
		f.Entity.Locator,
		strconv.Itoa(f.RowIndex),
		string(ev),
	}, nil
}

// WriteCSV writes a header row and one row per finding.
func WriteCSV(w io.Writer, t Table, findings []ir.Finding) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header(t)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, f := range findings {
		row, err := Row(f)
		if err != nil {
			return err
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", f.RowIndex, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// line is the NDJSON shape of a finding.
type line struct {
	Kind string `json:"kind"`
	ir.Finding
}

// WriteNDJSON writes one JSON object per line, violations first.
func WriteNDJSON(w io.Writer, s *Set) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, v := range s.Violations {
		if err := enc.Encode(line{Kind: string(ir.KindViolation), Finding: v.Finding}); err != nil {
			return fmt.Errorf("encode violation %s: %w", v.ID, err)
		}
	}
	for _, n := range s.AuditNotes {
		if err := enc.Encode(line{Kind: string(ir.KindAudit), Finding: n.Finding}); err != nil {
			return fmt.Errorf("encode audit note %s: %w", n.ID, err)
		}
	}
	return nil
}
