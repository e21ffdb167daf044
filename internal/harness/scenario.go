package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/JeedaveyFCRA/vioverse-pro/internal/ir"
	"github.com/JeedaveyFCRA/vioverse-pro/internal/queryir"
)

// Scenario defines a conformance scenario: inputs for one run and the
// assertions its output must satisfy.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Rules lists rule files or directories, compiled in order.
	Rules []string `yaml:"rules"`

	// Context is the run context file. Either Context or ReferenceDate
	// is required; ReferenceDate overrides the file's date.
	Context       string `yaml:"context,omitempty"`
	ReferenceDate string `yaml:"reference_date,omitempty"`

	// Aliases optionally replaces the built-in alias table.
	Aliases string `yaml:"aliases,omitempty"`

	// Records are inline rows keyed by column. Columns fixes the header
	// order; by default it is the sorted union of the record keys.
	Records []map[string]string `yaml:"records,omitempty"`
	Columns []string            `yaml:"columns,omitempty"`

	// RecordsCSV reads the rows from a CSV file instead.
	RecordsCSV string `yaml:"records_csv,omitempty"`

	MinSeverity     string `yaml:"min_severity,omitempty"`
	SkipConsistency bool   `yaml:"skip_consistency,omitempty"`

	// RunID fixes the run id. Defaults to testutil.DefaultRunID.
	RunID string `yaml:"run_id,omitempty"`

	Assertions []Assertion `yaml:"assertions"`
}

// Assertion validates the findings of a run or the rows it stored.
type Assertion struct {
	// Type selects the assertion; see the Assert* constants.
	Type string `yaml:"type"`

	// Rule is the rule id a finding assertion matches. Optional for the
	// count assertions.
	Rule string `yaml:"rule,omitempty"`

	// Row, Source and Severity narrow a finding match when set.
	Row      *int   `yaml:"row,omitempty"`
	Source   string `yaml:"source,omitempty"`
	Severity string `yaml:"severity,omitempty"`

	// Evidence is a subset match on the finding's evidence, compared as
	// text. "" and "null" match a null value.
	Evidence map[string]string `yaml:"evidence,omitempty"`

	// Count is the expected number (violation_count, audit_count,
	// stored_count).
	Count *int `yaml:"count,omitempty"`

	// Rules is the expected first-occurrence order (violation_order).
	Rules []string `yaml:"rules,omitempty"`

	// Table, Where and Expect query the stored run (final_state,
	// stored_count). Where values must all match; Expect is a subset
	// match on the single matching row.
	Table  string         `yaml:"table,omitempty"`
	Where  map[string]any `yaml:"where,omitempty"`
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertViolation      = "violation"
	AssertNoViolation    = "no_violation"
	AssertAuditNote      = "audit_note"
	AssertViolationCount = "violation_count"
	AssertAuditCount     = "audit_count"
	AssertViolationOrder = "violation_order"
	AssertFinalState     = "final_state"
	AssertStoredCount    = "stored_count"
)

// LoadScenario reads and parses a scenario YAML file. Paths in the
// scenario are resolved relative to the file's directory.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving relative paths against basePath.
//
// Unknown fields are rejected, so a typo like "assertion:" fails loudly.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	scenario.resolvePaths(basePath)

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func (s *Scenario) resolvePaths(basePath string) {
	if basePath == "" {
		return
	}
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(basePath, p)
	}
	for i, p := range s.Rules {
		s.Rules[i] = resolve(p)
	}
	s.Context = resolve(s.Context)
	s.Aliases = resolve(s.Aliases)
	s.RecordsCSV = resolve(s.RecordsCSV)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Rules) == 0 {
		return fmt.Errorf("rules list is required and must be non-empty")
	}
	if s.Context == "" && s.ReferenceDate == "" {
		return fmt.Errorf("context or reference_date is required")
	}
	if len(s.Records) > 0 && s.RecordsCSV != "" {
		return fmt.Errorf("records and records_csv are mutually exclusive")
	}
	if len(s.Records) == 0 && s.RecordsCSV == "" {
		return fmt.Errorf("records or records_csv is required")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	if s.MinSeverity != "" {
		if _, err := ir.ParseSeverity(s.MinSeverity); err != nil {
			return fmt.Errorf("min_severity: %w", err)
		}
	}

	for _, p := range append(append([]string{}, s.Rules...), s.Context, s.Aliases, s.RecordsCSV) {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return fmt.Errorf("file not found: %s", p)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Severity != "" {
		if _, err := ir.ParseSeverity(a.Severity); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	}
	if a.Count != nil && *a.Count < 0 {
		return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
	}

	switch a.Type {
	case AssertViolation, AssertNoViolation, AssertAuditNote:
		if a.Rule == "" {
			return fmt.Errorf("assertions[%d]: rule is required for %s", index, a.Type)
		}
	case AssertViolationCount, AssertAuditCount:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for %s", index, a.Type)
		}
	case AssertViolationOrder:
		if len(a.Rules) == 0 {
			return fmt.Errorf("assertions[%d]: rules list is required for violation_order", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertStoredCount:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for stored_count", index)
		}
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for stored_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	if a.Table != "" {
		if _, err := whereFilter(a.Where); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
		if errs := queryir.Validate(queryir.Count{From: a.Table}); len(errs) > 0 {
			return fmt.Errorf("assertions[%d]: %w", index, errs[0])
		}
	}
	return nil
}
