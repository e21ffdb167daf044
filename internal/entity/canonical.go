package entity

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var (
	// " 70050149****", " ****1234", " XXXXX1234", " 12345678"
	maskedFragment = regexp.MustCompile(`\s+([xX*#]{2,}\d{2,}|\d{4,}\*{2,}|\d{4,})$`)
	closedParen    = regexp.MustCompile(`(?i)\s*\(closed\)\s*$`)
	closedSuffix   = regexp.MustCompile(`(?i)\s*-\s*closed\s*$`)
	slashSpacing   = regexp.MustCompile(`\s*/\s*`)
)

// AliasRule maps reported name variants to one canonical name.
//
// The rule fires when the uppercased name contains any Match substring,
// every All substring, and (when WithAny is set) at least one WithAny
// substring.
type AliasRule struct {
	Match     []string `yaml:"match"`
	All       []string `yaml:"all,omitempty"`
	WithAny   []string `yaml:"with_any,omitempty"`
	Canonical string   `yaml:"canonical"`
}

func (r AliasRule) matches(upper string) bool {
	if !containsAny(upper, r.Match) {
		return false
	}
	for _, s := range r.All {
		if !strings.Contains(upper, strings.ToUpper(s)) {
			return false
		}
	}
	return len(r.WithAny) == 0 || containsAny(upper, r.WithAny)
}

func containsAny(upper string, subs []string) bool {
	for _, s := range subs {
		if s != "" && strings.Contains(upper, strings.ToUpper(s)) {
			return true
		}
	}
	return false
}

// Canonicalizer resolves raw entity names. The zero value cleans names
// without aliasing.
type Canonicalizer struct {
	aliases []AliasRule
}

// NewCanonicalizer returns a Canonicalizer over an ordered alias table.
// The first matching rule wins.
func NewCanonicalizer(aliases []AliasRule) *Canonicalizer {
	return &Canonicalizer{aliases: append([]AliasRule(nil), aliases...)}
}

// Aliases returns a copy of the alias table.
func (c *Canonicalizer) Aliases() []AliasRule {
	return append([]AliasRule(nil), c.aliases...)
}

// Canonicalize returns the canonical name for raw. A name that matches no
// alias returns its cleaned form. Canonicalize is idempotent.
func (c *Canonicalizer) Canonicalize(raw string) string {
	n := Clean(raw)
	if n == "" {
		return ""
	}
	upper := cases.Upper(language.Und).String(n)
	for _, a := range c.aliases {
		if a.matches(upper) {
			return a.Canonical
		}
	}
	return n
}

// Clean strips trailing account fragments and closed markers, tightens slash
// spacing and collapses whitespace. The steps repeat until nothing changes,
// so "ACME 1234 (CLOSED)" and "ACME (CLOSED) 1234" both clean to "ACME".
func Clean(raw string) string {
	n := norm.NFC.String(raw)
	for {
		prev := n
		n = strings.Join(strings.Fields(n), " ")
		n = slashSpacing.ReplaceAllString(n, "/")
		n = maskedFragment.ReplaceAllString(n, "")
		n = closedParen.ReplaceAllString(n, "")
		n = closedSuffix.ReplaceAllString(n, "")
		if n == prev {
			return n
		}
	}
}
