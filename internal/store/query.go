package store

import (
	"context"
	"fmt"

	"github.com/JeedaveyFCRA/vioverse-pro/internal/ir"
	"github.com/JeedaveyFCRA/vioverse-pro/internal/queryir"
	"github.com/JeedaveyFCRA/vioverse-pro/internal/querysql"
)

// findingScanColumns is the column order scanFinding expects.
var findingScanColumns = []string{
	"id", "rule_id", "rule_name", "rule_order", "severity", "citations", "explanation",
	"entity_code", "entity_name", "source", "period", "locator", "row_index", "evidence",
}

// QueryFindings returns the findings of one run in table that match
// filter, in emission order. A nil filter returns every finding.
func (s *Store) QueryFindings(ctx context.Context, table, runID string, filter queryir.Predicate) ([]ir.Finding, error) {
	if table != tableViolations && table != tableAuditNotes {
		return nil, fmt.Errorf("query findings: %q is not a findings table", table)
	}
	q := queryir.Select{
		From:    table,
		Columns: findingScanColumns,
		Filter:  queryir.Where(queryir.Equals{Field: "run_id", Value: ir.IRString(runID)}, filter),
	}
	query, params, err := querysql.Compile(q)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	findings := []ir.Finding{}
	for rows.Next() {
		f, err := scanFinding(rows)
		if err != nil {
			return nil, err
		}
		findings = append(findings, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return findings, nil
}

// Count returns the number of rows of table that match filter.
func (s *Store) Count(ctx context.Context, table string, filter queryir.Predicate) (int, error) {
	query, params, err := querysql.Compile(queryir.Count{From: table, Filter: filter})
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, params...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}
