package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/JeedaveyFCRA/vioverse-pro/internal/ir"
	"github.com/JeedaveyFCRA/vioverse-pro/internal/queryir"
)

const (
	tableViolations = queryir.TableViolations
	tableAuditNotes = queryir.TableAuditNotes
)

// WriteRun stores a run with its violations and audit notes in a single
// transaction. Uses ON CONFLICT DO NOTHING for idempotency - writing the
// same run twice leaves one copy.
func (s *Store) WriteRun(ctx context.Context, run ir.RunRecord, violations []ir.Violation, notes []ir.AuditNote) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, reference_date, rule_set_hash, engine_version, ir_version, record_count, violation_count, audit_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.ReferenceDate,
		run.RuleSetHash,
		run.EngineVersion,
		run.IRVersion,
		run.RecordCount,
		run.ViolationCount,
		run.AuditCount,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	for _, v := range violations {
		if err := writeFinding(ctx, tx, tableViolations, run.ID, v.Finding); err != nil {
			return fmt.Errorf("write run: %w", err)
		}
	}
	for _, n := range notes {
		if err := writeFinding(ctx, tx, tableAuditNotes, run.ID, n.Finding); err != nil {
			return fmt.Errorf("write run: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write run: commit: %w", err)
	}
	return nil
}

func writeFinding(ctx context.Context, tx *sql.Tx, table, runID string, f ir.Finding) error {
	evidence, err := marshalEvidence(f.Evidence)
	if err != nil {
		return fmt.Errorf("finding %s: %w", f.ID, err)
	}
	citations, err := marshalCitations(f.Citations)
	if err != nil {
		return fmt.Errorf("finding %s: %w", f.ID, err)
	}

	_, err = tx.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s
		(run_id, id, rule_id, rule_name, rule_order, severity, citations, explanation,
		 entity_code, entity_name, source, period, locator, row_index, evidence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, id) DO NOTHING
	`, table),
		runID,
		f.ID,
		f.RuleID,
		f.RuleName,
		f.RuleOrder(),
		f.Severity.String(),
		citations,
		f.Explanation,
		f.Entity.Code,
		f.Entity.Name,
		f.Entity.Source,
		f.Entity.Period,
		f.Entity.Locator,
		f.RowIndex,
		evidence,
	)
	if err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	return nil
}
