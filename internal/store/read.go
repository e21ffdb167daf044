package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/JeedaveyFCRA/vioverse-pro/internal/ir"
)

// ErrRunNotFound is returned when a run id is not in the store.
var ErrRunNotFound = errors.New("run not found")

const runColumns = `id, reference_date, rule_set_hash, engine_version, ir_version,
	record_count, violation_count, audit_count`

// ListRuns returns every stored run, oldest first (UUIDv7 order).
// Returns an empty slice (not nil) when the store is empty.
func (s *Store) ListRuns(ctx context.Context) ([]ir.RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY id COLLATE BINARY ASC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []ir.RunRecord{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun returns one run by id.
func (s *Store) ReadRun(ctx context.Context, id string) (ir.RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.RunRecord{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

// LatestRun returns the most recently created run.
func (s *Store) LatestRun(ctx context.Context) (ir.RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY id COLLATE BINARY DESC LIMIT 1`)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.RunRecord{}, ErrRunNotFound
	}
	return run, err
}

// ReadViolations returns the violations of a run in emission order.
func (s *Store) ReadViolations(ctx context.Context, runID string) ([]ir.Violation, error) {
	findings, err := s.readFindings(ctx, tableViolations, runID)
	if err != nil {
		return nil, err
	}
	out := make([]ir.Violation, len(findings))
	for i, f := range findings {
		out[i] = ir.Violation{Finding: f}
	}
	return out, nil
}

// ReadAuditNotes returns the audit notes of a run in emission order.
func (s *Store) ReadAuditNotes(ctx context.Context, runID string) ([]ir.AuditNote, error) {
	findings, err := s.readFindings(ctx, tableAuditNotes, runID)
	if err != nil {
		return nil, err
	}
	out := make([]ir.AuditNote, len(findings))
	for i, f := range findings {
		out[i] = ir.AuditNote{Finding: f}
	}
	return out, nil
}

func (s *Store) readFindings(ctx context.Context, table, runID string) ([]ir.Finding, error) {
	return s.QueryFindings(ctx, table, runID, nil)
}

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (ir.RunRecord, error) {
	var run ir.RunRecord
	err := row.Scan(
		&run.ID,
		&run.ReferenceDate,
		&run.RuleSetHash,
		&run.EngineVersion,
		&run.IRVersion,
		&run.RecordCount,
		&run.ViolationCount,
		&run.AuditCount,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ir.RunRecord{}, err
		}
		return ir.RunRecord{}, fmt.Errorf("scan run: %w", err)
	}
	return run, nil
}

func scanFinding(row scanner) (ir.Finding, error) {
	var (
		f         ir.Finding
		order     int
		severity  string
		citations string
		evidence  string
	)
	err := row.Scan(
		&f.ID,
		&f.RuleID,
		&f.RuleName,
		&order,
		&severity,
		&citations,
		&f.Explanation,
		&f.Entity.Code,
		&f.Entity.Name,
		&f.Entity.Source,
		&f.Entity.Period,
		&f.Entity.Locator,
		&f.RowIndex,
		&evidence,
	)
	if err != nil {
		return ir.Finding{}, fmt.Errorf("scan finding: %w", err)
	}

	if f.Severity, err = ir.ParseSeverity(severity); err != nil {
		return ir.Finding{}, fmt.Errorf("finding %s: %w", f.ID, err)
	}
	if f.Citations, err = unmarshalCitations(citations); err != nil {
		return ir.Finding{}, fmt.Errorf("finding %s: %w", f.ID, err)
	}
	if f.Evidence, err = unmarshalEvidence(evidence); err != nil {
		return ir.Finding{}, fmt.Errorf("finding %s: %w", f.ID, err)
	}
	return f.WithRuleOrder(order), nil
}
