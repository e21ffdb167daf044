package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/cockroachdb/apd/v3"
)

var (
	moneyNumber = regexp.MustCompile(`-?(\d+(\.\d+)?|\.\d+)`)
	strictMoney = regexp.MustCompile(`^-?(\d+(\.\d+)?|\.\d+)$`)
)

// stripMoney drops currency symbols, thousands separators and whitespace,
// and turns an accounting-style "(50.00)" into "-50.00".
func stripMoney(raw string) string {
	s := strings.Map(func(r rune) rune {
		if r == ',' || unicode.IsSpace(r) || unicode.Is(unicode.Sc, r) {
			return -1
		}
		return r
	}, raw)
	if len(s) > 2 && s[0] == '(' && s[len(s)-1] == ')' {
		s = "-" + s[1:len(s)-1]
	}
	return s
}

// ParseMoney extracts the first signed decimal from raw after stripping
// currency symbols and commas: "$12,345.67" is 12345.67, "-$50" is -50,
// "$.75" is 0.75, "Balance 1,200 as of" is 1200. Missing sentinels and
// values without a number return ok=false.
func ParseMoney(raw string, extraSentinels ...string) (*apd.Decimal, bool) {
	if IsMissing(raw, extraSentinels...) {
		return nil, false
	}
	m := moneyNumber.FindString(stripMoney(raw))
	if m == "" {
		return nil, false
	}
	d, _, err := apd.NewFromString(m)
	if err != nil {
		return nil, false
	}
	return d, true
}

// parseNumberStrict accepts raw only when the whole value is a number once
// currency formatting is removed. Type inference uses it so free text that
// happens to contain digits ("charged off 30 days") stays text.
func parseNumberStrict(raw string) (*apd.Decimal, bool) {
	s := stripMoney(raw)
	if !strictMoney.MatchString(s) {
		return nil, false
	}
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return nil, false
	}
	return d, true
}

// CanonicalMoney renders d without trailing zeros so "100", "100.00" and
// "$100.0" produce the same text.
func CanonicalMoney(d *apd.Decimal) string {
	if d == nil {
		return ""
	}
	var r apd.Decimal
	r.Reduce(d)
	if r.IsZero() {
		return "0"
	}
	return r.Text('f')
}
