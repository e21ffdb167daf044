// Package metrics exposes evaluation counters in Prometheus format.
//
// The CLI is a batch tool, so nothing is scraped: a Collector owns its own
// registry and is flushed to a node_exporter textfile with WriteTextfile.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/JeedaveyFCRA/vioverse-pro/internal/engine"
)

// Collector implements engine.Metrics.
type Collector struct {
	registry *prometheus.Registry

	// Rule evaluations by rule and outcome ("fired", "clear")
	RuleEvaluations *prometheus.CounterVec

	// Recovered evaluation errors by rule and error code
	RuleErrors *prometheus.CounterVec

	Records prometheus.Counter

	// Findings by kind ("violation", "audit") and severity
	Findings *prometheus.CounterVec

	RunDuration prometheus.Histogram
}

var _ engine.Metrics = (*Collector)(nil)

// New creates a Collector with all metrics registered on a fresh registry.
func New() *Collector {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Collector{
		registry: reg,
		RuleEvaluations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vioverse_rule_evaluations_total",
			Help: "Rule evaluations by rule and outcome",
		}, []string{"rule_id", "outcome"}),

		RuleErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vioverse_rule_errors_total",
			Help: "Recovered rule evaluation errors by rule and code",
		}, []string{"rule_id", "code"}),

		Records: f.NewCounter(prometheus.CounterOpts{
			Name: "vioverse_records_evaluated_total",
			Help: "Records evaluated",
		}),

		Findings: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vioverse_findings_total",
			Help: "Findings emitted by kind and severity",
		}, []string{"kind", "severity"}),

		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "vioverse_run_duration_seconds",
			Help:    "Duration of a full evaluation run",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
}

// RuleEvaluated records one rule outcome on one record.
func (c *Collector) RuleEvaluated(ruleID string, fired bool) {
	if c == nil {
		return
	}
	outcome := "clear"
	if fired {
		outcome = "fired"
	}
	c.RuleEvaluations.WithLabelValues(ruleID, outcome).Inc()
}

// RuleFailed records a recovered evaluation error.
func (c *Collector) RuleFailed(ruleID string, code engine.EvalErrorCode) {
	if c == nil {
		return
	}
	if code == "" {
		code = "UNKNOWN"
	}
	c.RuleErrors.WithLabelValues(ruleID, string(code)).Inc()
}

// RecordsEvaluated adds n evaluated records.
func (c *Collector) RecordsEvaluated(n int) {
	if c == nil {
		return
	}
	c.Records.Add(float64(n))
}

// IncrementFinding records an emitted finding.
func (c *Collector) IncrementFinding(kind, severity string) {
	if c == nil {
		return
	}
	c.Findings.WithLabelValues(kind, severity).Inc()
}

// ObserveRunDuration records the wall time of a run.
func (c *Collector) ObserveRunDuration(d time.Duration) {
	if c == nil {
		return
	}
	c.RunDuration.Observe(d.Seconds())
}

// Registry returns the registry backing c.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// WriteTextfile writes every metric to path in the text exposition format.
// The file is replaced atomically.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
