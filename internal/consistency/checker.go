package consistency

import (
	"cmp"
	"log/slog"
	"runtime"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/JeedaveyFCRA/vioverse-pro/internal/config"
	"github.com/JeedaveyFCRA/vioverse-pro/internal/entity"
	"github.com/JeedaveyFCRA/vioverse-pro/internal/ir"
	"github.com/JeedaveyFCRA/vioverse-pro/internal/normalize"
)

// UnknownSource keys values from records with a blank source column.
const UnknownSource = "unknown"

// Checker flags critical fields that disagree across sources.
//
// A Checker is read-only after New and safe for concurrent use.
type Checker struct {
	critical  []string
	money     map[string]bool
	rule      ir.Rule
	order     int
	schema    entity.Schema
	canon     *entity.Canonicalizer
	layouts   []string
	sentinels []string
	workers   int
}

// Option configures a Checker.
type Option func(*Checker)

// WithSchema sets the identity columns used for grouping.
func WithSchema(s entity.Schema) Option {
	return func(c *Checker) {
		c.schema = s.WithDefaults()
	}
}

// WithCanonicalizer sets the name canonicalizer used in entity keys.
func WithCanonicalizer(canon *entity.Canonicalizer) Option {
	return func(c *Checker) {
		c.canon = canon
	}
}

// WithContext takes date layouts and missing sentinels from the run context.
func WithContext(ctx *ir.Context) Option {
	return func(c *Checker) {
		if ctx == nil {
			return
		}
		c.layouts = ctx.DateFormats
		c.sentinels = ctx.Sentinels
	}
}

// WithWorkers bounds the number of groups compared concurrently.
func WithWorkers(n int) Option {
	return func(c *Checker) {
		if n < 1 {
			n = 1
		}
		c.workers = n
	}
}

// WithRuleOrder sets the sort position of emitted findings. The pipeline
// passes the row rule count so cross-source findings sort after row rules
// on the same row.
func WithRuleOrder(order int) Option {
	return func(c *Checker) {
		c.order = order
	}
}

// New creates a Checker from the consistency configuration.
func New(cfg config.Consistency, opts ...Option) *Checker {
	money := make(map[string]bool, len(cfg.MoneyFields))
	for _, f := range cfg.MoneyFields {
		money[f] = true
	}
	c := &Checker{
		critical: slices.Clone(cfg.CriticalFields),
		money:    money,
		rule: ir.Rule{
			ID:        cfg.RuleID,
			Name:      cfg.RuleName,
			Severity:  cfg.Severity,
			Kind:      ir.KindViolation,
			Citations: slices.Clone(cfg.Citations),
			Explain:   cfg.Explain,
		},
		schema:  entity.DefaultSchema(),
		canon:   entity.NewCanonicalizer(entity.DefaultAliases()),
		workers: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Rule returns the identity carried by emitted findings.
func (c *Checker) Rule() ir.Rule {
	return c.rule
}

// GroupKey identifies one consistency group.
type GroupKey struct {
	Entity ir.EntityKey
	Period string
}

func (k GroupKey) String() string {
	return k.Entity.String() + "|" + k.Period
}

// Group is the set of records sharing a GroupKey, ordered by
// (source, row index).
type Group struct {
	Key     GroupKey
	Members []ir.Record
}

// Groups partitions records by (entity key, period key). Records with a
// blank canonical name or a blank period are excluded. Only groups with at
// least two members are returned, in key order.
func (c *Checker) Groups(records []ir.Record) []Group {
	byKey := make(map[GroupKey][]ir.Record)
	for _, r := range records {
		key, ok := c.groupKey(r)
		if !ok {
			continue
		}
		byKey[key] = append(byKey[key], r)
	}

	groups := make([]Group, 0, len(byKey))
	for key, members := range byKey {
		if len(members) < 2 {
			continue
		}
		slices.SortFunc(members, func(a, b ir.Record) int {
			return cmp.Or(
				strings.Compare(c.source(a), c.source(b)),
				cmp.Compare(a.Index, b.Index),
			)
		})
		groups = append(groups, Group{Key: key, Members: members})
	}
	slices.SortFunc(groups, func(a, b Group) int {
		return strings.Compare(a.Key.String(), b.Key.String())
	})
	return groups
}

func (c *Checker) groupKey(r ir.Record) (GroupKey, bool) {
	key := c.canon.KeyOf(r, c.schema)
	if key.Name == "" {
		return GroupKey{}, false
	}
	period := c.periodKey(r.Text(c.schema.PeriodField))
	if period == "" {
		return GroupKey{}, false
	}
	return GroupKey{Entity: key, Period: period}, true
}

// periodKey renders a parseable period as an ISO date and falls back to the
// trimmed raw text.
func (c *Checker) periodKey(raw string) string {
	if normalize.IsMissing(raw, c.sentinels...) {
		return ""
	}
	if d, ok := normalize.ParseDate(raw, c.layouts, c.sentinels...); ok {
		return normalize.FormatDate(d)
	}
	return strings.TrimSpace(raw)
}

func (c *Checker) source(r ir.Record) string {
	if s := r.Text(c.schema.SourceField); s != "" {
		return s
	}
	return UnknownSource
}

// compareKey is the value a field is compared by: the canonical decimal for
// money fields that parse, the trimmed text otherwise.
func (c *Checker) compareKey(field, raw string) string {
	if c.money[field] {
		if m, ok := normalize.ParseMoney(raw, c.sentinels...); ok {
			return normalize.CanonicalMoney(m)
		}
	}
	return strings.TrimSpace(raw)
}

// Check compares every critical field in every group and returns one
// violation per (group, field) that disagrees, ordered by (row index, group
// key, field order).
func (c *Checker) Check(records []ir.Record) []ir.Violation {
	groups := c.Groups(records)
	results := make([][]ir.Violation, len(groups))

	var g errgroup.Group
	g.SetLimit(c.workers)
	for i, grp := range groups {
		g.Go(func() error {
			results[i] = c.compare(grp)
			return nil
		})
	}
	_ = g.Wait()

	var out []ir.Violation
	for _, vs := range results {
		out = append(out, vs...)
	}
	slices.SortStableFunc(out, func(a, b ir.Violation) int {
		return cmp.Compare(a.RowIndex, b.RowIndex)
	})

	slog.Info("consistency checked",
		"records", len(records),
		"groups", len(groups),
		"violations", len(out))
	return out
}

func (c *Checker) compare(grp Group) []ir.Violation {
	rep := grp.Members[0]
	identity := entity.Identity(rep, c.schema)

	var out []ir.Violation
	for _, field := range c.critical {
		distinct := make(map[string]bool)
		values := make(map[string][]string)
		for _, r := range grp.Members {
			raw, ok := r.Get(field)
			if !ok || normalize.IsMissing(raw, c.sentinels...) {
				continue
			}
			distinct[c.compareKey(field, raw)] = true
			src := c.source(r)
			values[src] = append(values[src], strings.TrimSpace(raw))
		}
		if len(distinct) < 2 {
			continue
		}

		evidence := ir.IRObject{
			"field":         ir.IRString(field),
			"source_values": sourceValues(values),
		}
		id, err := ir.FindingID(c.rule.ID, rep.Index, identity, evidence)
		if err != nil {
			slog.Warn("finding dropped", "rule_id", c.rule.ID, "group", grp.Key.String(), "error", err)
			continue
		}
		f := ir.Finding{
			ID:          id,
			RuleID:      c.rule.ID,
			RuleName:    c.rule.Name,
			Severity:    c.rule.Severity,
			Citations:   c.rule.Citations,
			Explanation: c.rule.Explain,
			Entity:      identity,
			RowIndex:    rep.Index,
			Evidence:    evidence,
		}
		out = append(out, ir.Violation{Finding: f.WithRuleOrder(c.order)})
	}
	return out
}

// sourceValues keys raw values by source. A source reported more than once
// in a group keeps every value as a sorted list.
func sourceValues(values map[string][]string) ir.IRObject {
	obj := make(ir.IRObject, len(values))
	for src, vs := range values {
		if len(vs) == 1 {
			obj[src] = ir.IRString(vs[0])
			continue
		}
		sorted := slices.Clone(vs)
		slices.Sort(sorted)
		arr := make(ir.IRArray, len(sorted))
		for i, v := range sorted {
			arr[i] = ir.IRString(v)
		}
		obj[src] = arr
	}
	return obj
}
