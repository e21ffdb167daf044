package entity

import "strings"

// SourceNormalizer maps source codes ("EQ", "transunion") to display names.
// Unknown sources pass through trimmed.
type SourceNormalizer struct {
	names map[string]string
}

// DefaultSources maps the three credit bureau codes and names.
func DefaultSources() map[string]string {
	return map[string]string{
		"EQ":         "Equifax",
		"EQUIFAX":    "Equifax",
		"EX":         "Experian",
		"EXP":        "Experian",
		"EXPERIAN":   "Experian",
		"TU":         "TransUnion",
		"TRANSUNION": "TransUnion",
	}
}

// NewSourceNormalizer builds a normalizer from code -> name; codes match
// case-insensitively.
func NewSourceNormalizer(names map[string]string) *SourceNormalizer {
	m := make(map[string]string, len(names))
	for code, name := range names {
		m[strings.ToUpper(strings.TrimSpace(code))] = name
	}
	return &SourceNormalizer{names: m}
}

// Normalize returns the display name for raw.
func (s *SourceNormalizer) Normalize(raw string) string {
	t := strings.TrimSpace(raw)
	if name, ok := s.names[strings.ToUpper(t)]; ok {
		return name
	}
	return t
}
