package store

import (
	"path/filepath"
	"testing"

	"github.com/cockroachdb/apd/v3"

	"github.com/JeedaveyFCRA/vioverse-pro/internal/ir"
)

// createTestStore creates a new store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestRun(id string) ir.RunRecord {
	return ir.RunRecord{
		ID:             id,
		ReferenceDate:  "2024-01-15",
		RuleSetHash:    "test-hash",
		EngineVersion:  "0.1.0",
		IRVersion:      "1",
		RecordCount:    3,
		ViolationCount: 2,
		AuditCount:     1,
	}
}

func createTestFinding(id, ruleID string, row, order int) ir.Finding {
	d, _, _ := apd.NewFromString("1200.50")
	f := ir.Finding{
		ID:          id,
		RuleID:      ruleID,
		RuleName:    "Rule " + ruleID,
		Severity:    ir.SeveritySerious,
		Citations:   []string{"§1681e(b)", "15 U.S.C. & more"},
		Explanation: "explanation",
		Entity:      ir.EntityIdentity{Code: "DISC", Name: "Discover Bank", Source: "TU", Period: "2024-03-01"},
		RowIndex:    row,
		Evidence: ir.IRObject{
			"balance": ir.NewIRDecimal(d),
			"closed":  ir.IRNull{},
			"count":   ir.IRInt(3),
		},
	}
	return f.WithRuleOrder(order)
}
