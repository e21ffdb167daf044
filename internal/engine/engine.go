package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/JeedaveyFCRA/vioverse-pro/internal/entity"
	"github.com/JeedaveyFCRA/vioverse-pro/internal/ir"
)

// Metrics receives evaluation counters. Implemented by metrics.Collector.
type Metrics interface {
	RuleEvaluated(ruleID string, fired bool)
	RuleFailed(ruleID string, code EvalErrorCode)
	RecordsEvaluated(n int)
}

// Engine applies a compiled rule set to records.
//
// INVARIANTS:
//   - rules slice order NEVER changes after construction
//   - each rule is evaluated independently; a failure in one rule never
//     affects another rule on the same record
//   - output order is (row index, rule order) regardless of worker count
//
// An Engine is read-only after New and safe for concurrent use.
type Engine struct {
	rules       []ir.Rule
	ctx         *ir.Context
	schema      entity.Schema
	workers     int
	minSeverity ir.Severity
	metrics     Metrics
	runIDs      RunIDGenerator
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers bounds the number of records evaluated concurrently.
// Values below 1 mean one worker.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n < 1 {
			n = 1
		}
		e.workers = n
	}
}

// WithMinSeverity drops violations below min. Audit notes are kept.
func WithMinSeverity(min ir.Severity) Option {
	return func(e *Engine) {
		e.minSeverity = min
	}
}

// WithMetrics reports evaluation counters to m.
func WithMetrics(m Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithSchema sets the columns used for finding identity.
func WithSchema(s entity.Schema) Option {
	return func(e *Engine) {
		e.schema = s.WithDefaults()
	}
}

// WithRunIDGenerator sets the run id source (default UUIDv7).
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(e *Engine) {
		e.runIDs = g
	}
}

// New creates an Engine for rules in declaration order under ctx.
// The rules slice is copied to prevent external mutation.
func New(rules []ir.Rule, ctx *ir.Context, opts ...Option) *Engine {
	if ctx == nil {
		ctx = &ir.Context{}
	}
	e := &Engine{
		rules:   slices.Clone(rules),
		ctx:     ctx,
		schema:  entity.DefaultSchema(),
		workers: runtime.GOMAXPROCS(0),
		runIDs:  UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rules returns the engine's rules in declaration order.
func (e *Engine) Rules() []ir.Rule {
	return slices.Clone(e.rules)
}

// Outcome is the result of one rule on one record.
type Outcome struct {
	RuleID string
	Fired  bool
	Err    error
}

// Apply evaluates every rule against rec in declaration order and returns
// the violations and audit notes it produces.
func (e *Engine) Apply(rec ir.Record) ([]ir.Violation, []ir.AuditNote) {
	vs, notes, _ := e.apply(rec)
	return vs, notes
}

// Explain is Apply plus the per-rule outcome, including recovered errors.
func (e *Engine) Explain(rec ir.Record) ([]ir.Violation, []ir.AuditNote, []Outcome) {
	return e.apply(rec)
}

func (e *Engine) apply(rec ir.Record) ([]ir.Violation, []ir.AuditNote, []Outcome) {
	s := newScope(rec, e.ctx)
	identity := entity.Identity(rec, e.schema)

	var violations []ir.Violation
	var notes []ir.AuditNote
	outcomes := make([]Outcome, 0, len(e.rules))

	for order, rule := range e.rules {
		fired, err := e.applyRule(rule, s)
		outcomes = append(outcomes, Outcome{RuleID: rule.ID, Fired: fired, Err: err})
		if err != nil {
			slog.Debug("rule evaluation failed",
				"rule_id", rule.ID,
				"row", rec.Index,
				"error", err)
			if e.metrics != nil {
				e.metrics.RuleFailed(rule.ID, ErrorCode(err))
			}
			continue
		}
		if e.metrics != nil {
			e.metrics.RuleEvaluated(rule.ID, fired)
		}
		if !fired {
			continue
		}

		f, err := e.finding(rule, order, rec, identity, s)
		if err != nil {
			slog.Warn("finding dropped", "rule_id", rule.ID, "row", rec.Index, "error", err)
			continue
		}
		if rule.Kind == ir.KindAudit {
			notes = append(notes, ir.AuditNote{Finding: f})
			continue
		}
		if e.minSeverity != 0 && !rule.Severity.AtLeast(e.minSeverity) {
			continue
		}
		violations = append(violations, ir.Violation{Finding: f})
	}
	return violations, notes, outcomes
}

// applyRule evaluates one rule, converting panics into EvalErrors.
func (e *Engine) applyRule(rule ir.Rule, s *scope) (fired bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			fired = false
			err = &EvalError{Code: ErrCodePanic, RuleID: rule.ID, Message: fmt.Sprint(r)}
		}
	}()

	fired, err = evaluate(rule.When, s)
	if err != nil {
		if ee, ok := err.(*EvalError); ok && ee.RuleID == "" {
			ee.RuleID = rule.ID
		}
		return false, err
	}
	return fired, nil
}

func (e *Engine) finding(rule ir.Rule, order int, rec ir.Record, identity ir.EntityIdentity, s *scope) (ir.Finding, error) {
	evidence := snapshot(rule, s)
	id, err := ir.FindingID(rule.ID, rec.Index, identity, evidence)
	if err != nil {
		return ir.Finding{}, err
	}
	f := ir.Finding{
		ID:          id,
		RuleID:      rule.ID,
		RuleName:    rule.Name,
		Severity:    rule.Severity,
		Citations:   rule.Citations,
		Explanation: rule.Explain,
		Entity:      identity,
		RowIndex:    rec.Index,
		Evidence:    evidence,
	}
	return f.WithRuleOrder(order), nil
}

// Result is the output of a run over a record set.
type Result struct {
	RunID      string
	Violations []ir.Violation
	AuditNotes []ir.AuditNote
	Records    int
	Failures   int
}

type recordResult struct {
	violations []ir.Violation
	notes      []ir.AuditNote
	failures   int
}

// Run evaluates every record on a bounded worker pool and returns findings
// ordered by (row index, rule order). Records share nothing but the
// read-only rules and context. Cancelling ctx abandons the run.
func (e *Engine) Run(ctx context.Context, records []ir.Record) (*Result, error) {
	results := make([]recordResult, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := range records {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			vs, notes, outcomes := e.apply(records[i])
			failures := 0
			for _, o := range outcomes {
				if o.Err != nil {
					failures++
				}
			}
			results[i] = recordResult{violations: vs, notes: notes, failures: failures}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("engine run: %w", err)
	}

	res := &Result{RunID: e.runIDs.Generate(), Records: len(records)}
	for _, r := range results {
		res.Violations = append(res.Violations, r.violations...)
		res.AuditNotes = append(res.AuditNotes, r.notes...)
		res.Failures += r.failures
	}
	slices.SortStableFunc(res.Violations, func(a, b ir.Violation) int {
		return compareFindings(a.Finding, b.Finding)
	})
	slices.SortStableFunc(res.AuditNotes, func(a, b ir.AuditNote) int {
		return compareFindings(a.Finding, b.Finding)
	})

	if e.metrics != nil {
		e.metrics.RecordsEvaluated(len(records))
	}
	slog.Info("rules applied",
		"run_id", res.RunID,
		"records", res.Records,
		"rules", len(e.rules),
		"violations", len(res.Violations),
		"audit_notes", len(res.AuditNotes),
		"failures", res.Failures)
	return res, nil
}

func compareFindings(a, b ir.Finding) int {
	if a.RowIndex != b.RowIndex {
		return a.RowIndex - b.RowIndex
	}
	return a.RuleOrder() - b.RuleOrder()
}
