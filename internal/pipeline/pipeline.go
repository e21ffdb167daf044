// Package pipeline runs one evaluation end to end: source normalization,
// per-record rules, the cross-source barrier, and result assembly.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/JeedaveyFCRA/vioverse-pro/internal/config"
	"github.com/JeedaveyFCRA/vioverse-pro/internal/consistency"
	"github.com/JeedaveyFCRA/vioverse-pro/internal/engine"
	"github.com/JeedaveyFCRA/vioverse-pro/internal/entity"
	"github.com/JeedaveyFCRA/vioverse-pro/internal/ir"
	"github.com/JeedaveyFCRA/vioverse-pro/internal/metrics"
	"github.com/JeedaveyFCRA/vioverse-pro/internal/normalize"
	"github.com/JeedaveyFCRA/vioverse-pro/internal/report"
)

const tracerName = "github.com/JeedaveyFCRA/vioverse-pro/internal/pipeline"

// Inputs is everything one run reads.
type Inputs struct {
	Records []ir.Record
	Rules   []ir.Rule
	Config  *config.Config

	// Aliases replaces the compiled-in alias table when non-nil.
	Aliases []entity.AliasRule
}

// Options tunes a run without changing what it computes, except
// MinSeverity and SkipConsistency which filter output.
type Options struct {
	Workers         int
	MinSeverity     ir.Severity
	SkipConsistency bool
	Timeout         time.Duration
	Metrics         *metrics.Collector
	RunIDs          engine.RunIDGenerator
}

// Result is the assembled output of a run.
type Result struct {
	Set     report.Set
	Summary report.Summary
	Run     ir.RunRecord
}

// Run evaluates in.Records. A cancelled or timed-out context abandons the
// run; malformed rules or rows never do.
func Run(ctx context.Context, in Inputs, opts Options) (res *Result, err error) {
	if in.Config == nil {
		return nil, fmt.Errorf("pipeline: config is required")
	}
	start := time.Now()

	ctx, span := otel.Tracer(tracerName).Start(ctx, "pipeline.Run",
		trace.WithAttributes(
			attribute.Int("records", len(in.Records)),
			attribute.Int("rules", len(in.Rules)),
			attribute.String("reference_date", normalize.FormatDate(in.Config.Context.ReferenceDate)),
		))
	defer span.End()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "run failed")
		}
	}()

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cfg := in.Config
	records := NormalizeSources(in.Records, cfg.Schema, entity.NewSourceNormalizer(cfg.Sources))

	aliases := in.Aliases
	if aliases == nil {
		aliases = entity.DefaultAliases()
	}
	canon := entity.NewCanonicalizer(aliases)

	engOpts := []engine.Option{
		engine.WithSchema(cfg.Schema),
		engine.WithMinSeverity(opts.MinSeverity),
	}
	if opts.Workers > 0 {
		engOpts = append(engOpts, engine.WithWorkers(opts.Workers))
	}
	if opts.Metrics != nil {
		engOpts = append(engOpts, engine.WithMetrics(opts.Metrics))
	}
	if opts.RunIDs != nil {
		engOpts = append(engOpts, engine.WithRunIDGenerator(opts.RunIDs))
	}
	eng := engine.New(in.Rules, &cfg.Context, engOpts...)

	rowResult, err := eng.Run(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	set := report.Set{
		RunID:      rowResult.RunID,
		Violations: rowResult.Violations,
		AuditNotes: rowResult.AuditNotes,
	}

	if !opts.SkipConsistency && !cfg.Consistency.Disabled {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("pipeline: %w", err)
		}
		checkOpts := []consistency.Option{
			consistency.WithSchema(cfg.Schema),
			consistency.WithCanonicalizer(canon),
			consistency.WithContext(&cfg.Context),
			consistency.WithRuleOrder(len(in.Rules)),
		}
		if opts.Workers > 0 {
			checkOpts = append(checkOpts, consistency.WithWorkers(opts.Workers))
		}
		checker := consistency.New(cfg.Consistency, checkOpts...)
		for _, v := range checker.Check(records) {
			if opts.MinSeverity != 0 && !v.Severity.AtLeast(opts.MinSeverity) {
				continue
			}
			set.Violations = append(set.Violations, v)
		}
	}
	set.Sort()

	for _, v := range set.Violations {
		opts.Metrics.IncrementFinding(string(ir.KindViolation), v.Severity.String())
	}
	for _, n := range set.AuditNotes {
		opts.Metrics.IncrementFinding(string(ir.KindAudit), n.Severity.String())
	}

	hash, err := ir.RuleSetHash(in.Rules)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	summary := report.Summarize(&set, report.DefaultTopRules)
	summary.Records = len(records)
	summary.Failures = rowResult.Failures

	res = &Result{
		Set:     set,
		Summary: summary,
		Run: ir.RunRecord{
			ID:             set.RunID,
			ReferenceDate:  normalize.FormatDate(cfg.Context.ReferenceDate),
			RuleSetHash:    hash,
			EngineVersion:  ir.EngineVersion,
			IRVersion:      ir.IRVersion,
			RecordCount:    len(records),
			ViolationCount: len(set.Violations),
			AuditCount:     len(set.AuditNotes),
		},
	}

	elapsed := time.Since(start)
	opts.Metrics.ObserveRunDuration(elapsed)
	span.SetAttributes(
		attribute.String("run_id", set.RunID),
		attribute.Int("violations", len(set.Violations)),
		attribute.Int("audit_notes", len(set.AuditNotes)),
	)
	slog.Info("run complete",
		"run_id", set.RunID,
		"violations", len(set.Violations),
		"audit_notes", len(set.AuditNotes),
		"duration", elapsed)
	return res, nil
}

// NormalizeSources rewrites the source column of every record to its
// display name. Records without a source are returned unchanged.
func NormalizeSources(records []ir.Record, schema entity.Schema, sources *entity.SourceNormalizer) []ir.Record {
	schema = schema.WithDefaults()
	out := make([]ir.Record, len(records))
	for i, r := range records {
		raw, ok := r.Get(schema.SourceField)
		if !ok {
			out[i] = r
			continue
		}
		out[i] = r.WithField(schema.SourceField, sources.Normalize(raw))
	}
	return out
}
