package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// fallbackLayouts are tried, in order, after the caller's preferred layouts.
// Layouts without a day component resolve to the first of the month.
var fallbackLayouts = []string{
	"2006-1-2",        // YYYY-MM-DD
	"1/2/2006",        // MM/DD/YYYY
	"2006/1/2",        // YYYY/MM/DD
	"2006-1",          // YYYY-MM
	"1/2006",          // MM/YYYY
	"2006/1",          // YYYY/MM
	"Jan 2, 2006",     // Jun 5, 2021
	"Jan 2 2006",      // Jun 5 2021
	"January 2, 2006", // June 5, 2021
	"Jan 2006",        // Jun 2021
	"January 2006",    // June 2021
}

var (
	bareYear      = regexp.MustCompile(`^\d{4}$`)
	bareYearMonth = regexp.MustCompile(`^\d{6}$`)
)

// ParseDate parses raw with the preferred layouts first, then the fallback
// list; the first layout that matches wins. Missing sentinels and garbage
// return ok=false. Results are UTC midnight.
func ParseDate(raw string, layouts []string, extraSentinels ...string) (time.Time, bool) {
	if IsMissing(raw, extraSentinels...) {
		return time.Time{}, false
	}
	s := strings.Join(strings.Fields(raw), " ")

	for _, l := range layouts {
		if d, err := time.Parse(l, s); err == nil {
			return midnight(d), true
		}
	}
	for _, l := range fallbackLayouts {
		if d, err := time.Parse(l, s); err == nil {
			return midnight(d), true
		}
	}

	if bareYear.MatchString(s) {
		y, _ := strconv.Atoi(s)
		return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC), true
	}
	if bareYearMonth.MatchString(s) {
		y, _ := strconv.Atoi(s[:4])
		m, _ := strconv.Atoi(s[4:])
		if m >= 1 && m <= 12 {
			return time.Date(y, time.Month(m), 1, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

func midnight(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

// monthOnlyPatterns match year-month values that carry no day.
var monthOnlyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\d{4}-\d{1,2}$`),
	regexp.MustCompile(`^\d{4}/\d{1,2}$`),
	regexp.MustCompile(`^\d{1,2}/\d{4}$`),
	regexp.MustCompile(`^\d{4}(0[1-9]|1[0-2])$`),
	regexp.MustCompile(`^(?i)[a-z]{3,9}\.? \d{4}$`),
}

// MonthOnly reports whether raw looks like a year-month with no day
// component (2021-06, 06/2021, 202106, Jun 2021). Used to flag imprecise
// dates.
func MonthOnly(raw string) bool {
	s := strings.TrimSpace(raw)
	if s == "" {
		return false
	}
	for _, re := range monthOnlyPatterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// FormatDate renders d as an ISO calendar date.
func FormatDate(d time.Time) string {
	return d.Format("2006-01-02")
}

// MonthIndex is year*12 + month-1, for month-granularity comparisons.
func MonthIndex(d time.Time) int {
	return d.Year()*12 + int(d.Month()) - 1
}

// DaysBetween returns a - b in whole days.
func DaysBetween(a, b time.Time) int {
	return int(midnight(a).Sub(midnight(b)).Hours() / 24)
}
