package harness

import (
	"context"
	"fmt"

	"github.com/JeedaveyFCRA/vioverse-pro/internal/ingest"
	"github.com/JeedaveyFCRA/vioverse-pro/internal/ir"
	"github.com/JeedaveyFCRA/vioverse-pro/internal/pipeline"
	"github.com/JeedaveyFCRA/vioverse-pro/internal/store"
	"github.com/JeedaveyFCRA/vioverse-pro/internal/testutil"
)

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database with a fixed run id
// and one worker. An error means the scenario could not run at all
// (unreadable rules, context, records); failed assertions are reported
// in the result.
//
// Execution flow:
//  1. Load rules, context, aliases and records
//  2. Run the pipeline
//  3. Store the run in an in-memory database
//  4. Evaluate assertions against the result and the stored rows
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	in, err := loadInputs(scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to load inputs: %w", err)
	}

	opts := pipeline.Options{
		Workers:         1,
		SkipConsistency: scenario.SkipConsistency,
		RunIDs:          testutil.FixedRunID(scenario.RunID),
	}
	if scenario.MinSeverity != "" {
		if opts.MinSeverity, err = ir.ParseSeverity(scenario.MinSeverity); err != nil {
			return nil, err
		}
	}

	out, err := pipeline.Run(ctx, *in, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to run pipeline: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	if err := st.WriteRun(ctx, out.Run, out.Set.Violations, out.Set.AuditNotes); err != nil {
		return nil, fmt.Errorf("failed to store run: %w", err)
	}

	result := NewResult()
	result.Set = out.Set
	result.Summary = out.Summary
	result.Run = out.Run

	actx := &AssertionContext{Store: st, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// loadInputs compiles every rule path of the scenario and reads its
// context, aliases and records.
func loadInputs(s *Scenario) (*pipeline.Inputs, error) {
	cfg, err := pipeline.LoadConfig(s.Context, s.ReferenceDate)
	if err != nil {
		return nil, err
	}

	var rules []ir.Rule
	for _, path := range s.Rules {
		rs, err := pipeline.LoadRuleSet(path)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rs...)
	}
	if err := pipeline.CheckRules(rules, &cfg.Context); err != nil {
		return nil, err
	}

	aliases, err := pipeline.LoadAliasTable(s.Aliases, cfg)
	if err != nil {
		return nil, err
	}

	records := testutil.RecordsFromMaps(s.Columns, s.Records)
	if s.RecordsCSV != "" {
		if records, err = ingest.ReadCSVFile(s.RecordsCSV); err != nil {
			return nil, err
		}
	}

	return &pipeline.Inputs{Records: records, Rules: rules, Config: cfg, Aliases: aliases}, nil
}
