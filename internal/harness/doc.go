// Package harness runs rule-set conformance scenarios.
//
// A scenario names a rule set, a run context and a handful of records,
// runs them through the real pipeline, stores the run in an in-memory
// SQLite database, and checks assertions against both the in-memory
// result and the stored rows.
//
// # Scenario Format
//
//	name: balance_after_discharge
//	description: "A positive balance reported after discharge is Severe"
//	rules:
//	  - ../rules/tradeline.cue
//	reference_date: "2024-01-15"
//	records:
//	  - creditor_code: DISC
//	    bureau: EQ
//	    report_date: "2024-03-01"
//	    balance: "$500.00"
//	assertions:
//	  - type: violation
//	    rule: SEV-001
//	    row: 0
//	    evidence: { balance: "500.00" }
//	  - type: final_state
//	    table: violations
//	    where: { rule_id: SEV-001 }
//	    expect: { source: Equifax, row_index: 0 }
//
// Paths are relative to the scenario file. Records are given inline or
// through records_csv.
//
// # Assertion Types
//
//   - violation: a violation of rule exists, optionally at row, from
//     source, with severity, carrying the given evidence values
//   - no_violation: no violation of rule matches
//   - audit_note: like violation, over the audit notes
//   - violation_count, audit_count: exact count, optionally for one rule
//   - violation_order: the first violation of each rule appears in order
//   - final_state: exactly one stored row matches where and has expect
//   - stored_count: exact number of stored rows matching where
//
// # Deterministic Testing
//
// Every scenario runs with a fixed run id (run_id, or
// testutil.DefaultRunID) and a single worker, so findings, ids and golden
// snapshots are byte-identical across runs.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/discharge.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, msg := range result.Errors {
//	    log.Println(msg)
//	}
package harness
