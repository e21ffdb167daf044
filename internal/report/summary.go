package report

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/JeedaveyFCRA/vioverse-pro/internal/ir"
)

// DefaultTopRules is the number of rules listed in a summary.
const DefaultTopRules = 5

// RuleCount is the number of violations one rule produced.
type RuleCount struct {
	RuleID string `json:"rule_id"`
	Name   string `json:"name"`
	Count  int    `json:"count"`
}

// Summary counts a result set.
type Summary struct {
	RunID      string         `json:"run_id,omitempty"`
	Records    int            `json:"records"`
	Violations int            `json:"violations"`
	AuditNotes int            `json:"audit_notes"`
	Failures   int            `json:"failures"`
	BySeverity map[string]int `json:"by_severity"`
	TopRules   []RuleCount    `json:"top_rules"`
}

// Summarize counts violations by severity and lists the top n rules by
// violation count, ties broken by rule id.
func Summarize(s *Set, n int) Summary {
	sum := Summary{
		RunID:      s.RunID,
		Violations: len(s.Violations),
		AuditNotes: len(s.AuditNotes),
		BySeverity: make(map[string]int),
	}
	counts := make(map[string]*RuleCount)
	for _, v := range s.Violations {
		sum.BySeverity[v.Severity.String()]++
		rc, ok := counts[v.RuleID]
		if !ok {
			rc = &RuleCount{RuleID: v.RuleID, Name: v.RuleName}
			counts[v.RuleID] = rc
		}
		rc.Count++
	}

	for _, rc := range counts {
		sum.TopRules = append(sum.TopRules, *rc)
	}
	slices.SortFunc(sum.TopRules, func(a, b RuleCount) int {
		return cmp.Or(cmp.Compare(b.Count, a.Count), strings.Compare(a.RuleID, b.RuleID))
	})
	if n > 0 && len(sum.TopRules) > n {
		sum.TopRules = sum.TopRules[:n]
	}
	return sum
}

// String renders the summary for terminal output.
func (s Summary) String() string {
	var b strings.Builder
	if s.RunID != "" {
		fmt.Fprintf(&b, "Run:          %s\n", s.RunID)
	}
	fmt.Fprintf(&b, "Records:      %d\n", s.Records)
	fmt.Fprintf(&b, "Violations:   %d\n", s.Violations)
	fmt.Fprintf(&b, "Audit notes:  %d\n", s.AuditNotes)
	if s.Failures > 0 {
		fmt.Fprintf(&b, "Rule errors:  %d\n", s.Failures)
	}
	if len(s.BySeverity) > 0 {
		b.WriteString("By severity:\n")
		for sev := ir.SeverityExtreme; sev >= ir.SeverityMinor; sev-- {
			if c := s.BySeverity[sev.String()]; c > 0 {
				fmt.Fprintf(&b, "  %-9s %d\n", sev, c)
			}
		}
	}
	if len(s.TopRules) > 0 {
		b.WriteString("Top rules:\n")
		for _, rc := range s.TopRules {
			fmt.Fprintf(&b, "  %-12s %4d  %s\n", rc.RuleID, rc.Count, rc.Name)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// WriteSummary writes the text form of s to w.
func WriteSummary(w io.Writer, s Summary) error {
	_, err := fmt.Fprintln(w, s.String())
	return err
}
