package ir

import (
	"fmt"
	"strings"
)

// Severity is the ordered violation taxonomy.
// The zero value is invalid; compiled rules always carry one of the constants.
type Severity int

const (
	SeverityMinor Severity = iota + 1
	SeverityModerate
	SeveritySerious
	SeveritySevere
	SeverityExtreme
)

var severityNames = map[Severity]string{
	SeverityMinor:    "Minor",
	SeverityModerate: "Moderate",
	SeveritySerious:  "Serious",
	SeveritySevere:   "Severe",
	SeverityExtreme:  "Extreme",
}

// String returns the display name ("Serious", "Extreme", ...).
func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// AtLeast reports whether s is at or above min.
func (s Severity) AtLeast(min Severity) bool {
	return s >= min
}

// ParseSeverity parses a severity name case-insensitively.
func ParseSeverity(s string) (Severity, error) {
	want := strings.TrimSpace(s)
	for sev, name := range severityNames {
		if strings.EqualFold(name, want) {
			return sev, nil
		}
	}
	return 0, fmt.Errorf("unknown severity %q: must be one of Minor, Moderate, Serious, Severe, Extreme", s)
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(b []byte) error {
	sev, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = sev
	return nil
}

// RuleKind separates claims from informational output.
type RuleKind string

const (
	// KindViolation rules produce Violations counted in the violations table.
	KindViolation RuleKind = "violation"
	// KindAudit rules produce AuditNotes, never counted as violations.
	KindAudit RuleKind = "audit"
)

// ValidRuleKinds defines allowed rule kinds.
var ValidRuleKinds = map[RuleKind]bool{
	KindViolation: true,
	KindAudit:     true,
}

// ValueType is the declared interpretation of a field inside a condition leaf.
type ValueType string

const (
	// TypeAuto resolves date first, then money, then text.
	TypeAuto  ValueType = "auto"
	TypeDate  ValueType = "date"
	TypeMoney ValueType = "money"
	TypeText  ValueType = "text"
)

// ValidValueTypes defines allowed per-leaf type declarations.
var ValidValueTypes = map[ValueType]bool{
	TypeAuto:  true,
	TypeDate:  true,
	TypeMoney: true,
	TypeText:  true,
}

// Rule is a compiled, read-only rule definition.
type Rule struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Severity  Severity        `json:"severity"`
	Kind      RuleKind        `json:"kind"`
	Citations []string        `json:"citations,omitempty"`
	Explain   string          `json:"explain"`
	When      Condition       `json:"-"`
	Evidence  []EvidenceField `json:"evidence,omitempty"`
}

// EvidenceField names a record field captured when the rule fires.
type EvidenceField struct {
	Field string    `json:"field"`
	Type  ValueType `json:"type"` // auto renders raw text
}
