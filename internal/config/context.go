package config

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/JeedaveyFCRA/vioverse-pro/internal/entity"
	"github.com/JeedaveyFCRA/vioverse-pro/internal/ir"
	"github.com/JeedaveyFCRA/vioverse-pro/internal/normalize"
)

// fileContext is the YAML shape of a context file.
type fileContext struct {
	ReferenceDate    string              `yaml:"reference_date"`
	ReferenceName    string              `yaml:"reference_name"`
	DerivedDates     map[string]int      `yaml:"derived_dates"`
	DateFormats      []string            `yaml:"date_formats"`
	Keywords         map[string][]string `yaml:"keywords"`
	MissingSentinels []string            `yaml:"missing_sentinels"`
	Schema           entity.Schema       `yaml:"schema"`
	Consistency      fileConsistency     `yaml:"consistency"`
	Sources          map[string]string   `yaml:"sources"`
}

type fileConsistency struct {
	Disabled       bool     `yaml:"disabled"`
	CriticalFields []string `yaml:"critical_fields"`
	MoneyFields    []string `yaml:"money_fields"`
	RuleID         string   `yaml:"rule_id"`
	RuleName       string   `yaml:"rule_name"`
	Severity       string   `yaml:"severity"`
	Citations      []string `yaml:"citations"`
	Explain        string   `yaml:"explain"`
}

// Consistency configures the cross-source check.
type Consistency struct {
	Disabled       bool
	CriticalFields []string
	MoneyFields    []string
	RuleID         string
	RuleName       string
	Severity       ir.Severity
	Citations      []string
	Explain        string
}

// DefaultConsistency compares the tradeline fields that must agree across
// bureaus for the same report date.
func DefaultConsistency() Consistency {
	return Consistency{
		CriticalFields: []string{"account_status", "balance", "amount_past_due", "charge_off_amount", "remarks_multi"},
		MoneyFields:    []string{"balance", "amount_past_due", "charge_off_amount"},
		RuleID:         "SEV-XB-001",
		RuleName:       "Cross-Bureau Inconsistency",
		Severity:       ir.SeveritySevere,
		Citations:      []string{"§1681e(b)"},
		Explain:        "Critical field differs across sources for the same entity and reporting period.",
	}
}

// Config is a fully resolved run configuration.
type Config struct {
	Context     ir.Context
	Schema      entity.Schema
	Consistency Consistency
	Sources     map[string]string

	// derived holds day offsets so a reference date override can recompute
	// the derived dates.
	derived map[string]int
}

// Default returns a configuration with the given reference date and the
// compiled-in schema, sources and consistency settings.
func Default(reference time.Time) *Config {
	c := &Config{
		Context: ir.Context{
			ReferenceName: ir.DefaultReferenceName,
			Keywords:      map[string][]string{},
		},
		Schema:      entity.DefaultSchema(),
		Consistency: DefaultConsistency(),
		Sources:     entity.DefaultSources(),
		derived:     map[string]int{},
	}
	c.setReference(reference)
	return c
}

// Load reads and parses a context file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Code: ErrUnreadable, Path: path, Message: "cannot read context file", Err: err}
	}
	return Parse(data, path)
}

// Parse decodes a context document. path is used in error messages only.
//
// Top-level string lists other than the known sections are accepted as
// keyword lists, so older context files that declare bankruptcy_tokens: [...]
// next to the reference date keep working.
func Parse(data []byte, path string) (*Config, error) {
	var fc fileContext
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, &Error{Code: ErrMalformed, Path: path, Message: err.Error(), Err: err}
	}
	var loose map[string]any
	if err := yaml.Unmarshal(data, &loose); err != nil {
		return nil, &Error{Code: ErrMalformed, Path: path, Message: err.Error(), Err: err}
	}

	refName := strings.TrimSpace(fc.ReferenceName)
	if refName == "" {
		refName = ir.DefaultReferenceName
	}
	refRaw := strings.TrimSpace(fc.ReferenceDate)
	if refRaw == "" && refName != ir.DefaultReferenceName {
		switch v := loose[refName].(type) {
		case string:
			refRaw = strings.TrimSpace(v)
		case time.Time:
			refRaw = v.Format("2006-01-02")
		}
	}
	ref, err := parseReference(refRaw)
	if err != nil {
		return nil, &Error{Code: ErrReferenceDate, Path: path, Message: err.Error()}
	}

	c := Default(ref)
	c.Context.ReferenceName = refName
	maps.Copy(c.derived, fc.DerivedDates)

	layouts, err := normalize.Layouts(fc.DateFormats)
	if err != nil {
		return nil, &Error{Code: ErrDateFormat, Path: path, Message: err.Error(), Err: err}
	}
	c.Context.DateFormats = layouts

	for name, v := range loose {
		if isKnownSection(name) {
			continue
		}
		if list, ok := stringList(v); ok {
			c.Context.Keywords[name] = list
		}
	}
	maps.Copy(c.Context.Keywords, fc.Keywords)

	for _, s := range fc.MissingSentinels {
		c.Context.Sentinels = append(c.Context.Sentinels, strings.ToLower(strings.TrimSpace(s)))
	}

	c.Schema = fc.Schema.WithDefaults()
	if len(fc.Sources) > 0 {
		maps.Copy(c.Sources, fc.Sources)
	}

	cons, err := resolveConsistency(fc.Consistency)
	if err != nil {
		if ce, ok := err.(*Error); ok {
			ce.Path = path
		}
		return nil, err
	}
	c.Consistency = cons

	c.setReference(ref)
	return c, nil
}

// SetReferenceDate overrides the reference date (YYYY-MM-DD) and recomputes
// every derived date.
func (c *Config) SetReferenceDate(raw string) error {
	ref, err := parseReference(strings.TrimSpace(raw))
	if err != nil {
		return &Error{Code: ErrReferenceDate, Message: err.Error()}
	}
	c.setReference(ref)
	return nil
}

// DerivedOffsets returns the configured derived date offsets in days.
func (c *Config) DerivedOffsets() map[string]int {
	return maps.Clone(c.derived)
}

func (c *Config) setReference(ref time.Time) {
	c.Context.ReferenceDate = ref
	c.Context.DerivedDates = make(map[string]time.Time, len(c.derived))
	if ref.IsZero() {
		return
	}
	for name, days := range c.derived {
		c.Context.DerivedDates[name] = ref.AddDate(0, 0, days)
	}
}

func parseReference(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, fmt.Errorf("reference date is required")
	}
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("reference date %q is not YYYY-MM-DD", raw)
	}
	return d, nil
}

func resolveConsistency(fc fileConsistency) (Consistency, error) {
	c := DefaultConsistency()
	c.Disabled = fc.Disabled
	if len(fc.CriticalFields) > 0 {
		c.CriticalFields = fc.CriticalFields
	}
	if fc.MoneyFields != nil {
		c.MoneyFields = fc.MoneyFields
	}
	if fc.RuleID != "" {
		c.RuleID = fc.RuleID
	}
	if fc.RuleName != "" {
		c.RuleName = fc.RuleName
	}
	if fc.Severity != "" {
		sev, err := ir.ParseSeverity(fc.Severity)
		if err != nil {
			return c, &Error{Code: ErrSeverity, Message: "consistency.severity: " + err.Error(), Err: err}
		}
		c.Severity = sev
	}
	if len(fc.Citations) > 0 {
		c.Citations = fc.Citations
	}
	if fc.Explain != "" {
		c.Explain = fc.Explain
	}
	for _, m := range c.MoneyFields {
		if !slices.Contains(c.CriticalFields, m) {
			return c, &Error{Code: ErrFieldList, Message: fmt.Sprintf("consistency.money_fields: %q is not a critical field", m)}
		}
	}
	return c, nil
}

func isKnownSection(name string) bool {
	switch name {
	case "reference_date", "reference_name", "derived_dates", "date_formats", "keywords",
		"missing_sentinels", "schema", "consistency", "sources":
		return true
	}
	return false
}

func stringList(v any) ([]string, bool) {
	items, ok := v.([]any)
	if !ok || len(items) == 0 {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		s, ok := it.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}
