package normalize

import "strings"

// DefaultSentinels are the lowercase values treated as "not reported".
var DefaultSentinels = []string{"", "not reported", "none", "n/a", "na", "[not provided]"}

// IsMissing reports whether raw is blank, a default sentinel, one of extra,
// or a bracketed placeholder such as "[Not Provided]" or "[blank]".
// Comparison is case-insensitive on the trimmed value.
func IsMissing(raw string, extra ...string) bool {
	t := strings.ToLower(strings.TrimSpace(raw))
	if t == "" {
		return true
	}
	if strings.HasPrefix(t, "[") && strings.HasSuffix(t, "]") {
		return true
	}
	for _, s := range DefaultSentinels {
		if t == s {
			return true
		}
	}
	for _, s := range extra {
		if t == strings.ToLower(strings.TrimSpace(s)) {
			return true
		}
	}
	return false
}
