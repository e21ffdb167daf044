package normalize

import (
	"regexp"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"

	"github.com/JeedaveyFCRA/vioverse-pro/internal/ir"
)

var bareDigits = regexp.MustCompile(`^\d+$`)

// Kind is the resolved interpretation of a raw cell.
type Kind int

const (
	KindMissing Kind = iota
	KindText
	KindDate
	KindMoney
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindDate:
		return "date"
	case KindMoney:
		return "money"
	default:
		return "missing"
	}
}

// Value is a raw cell resolved under a declared type.
// Raw is always the original cell text, even when Kind is KindMissing.
type Value struct {
	Kind  Kind
	Raw   string
	Date  time.Time
	Money *apd.Decimal
}

// Present reports whether the value resolved to something comparable.
func (v Value) Present() bool {
	return v.Kind != KindMissing
}

// Options carries the run-scoped parsing preferences.
type Options struct {
	Layouts   []string // preferred date layouts, Go syntax
	Sentinels []string // extra missing-value sentinels
}

// Resolve interprets a raw cell. An absent cell, a sentinel, or a value that
// does not parse as its declared type resolves to KindMissing. TypeAuto tries
// date, then a strict whole-value number, then text; a bare digit run is
// always a number under TypeAuto.
func Resolve(raw string, present bool, typ ir.ValueType, opts Options) Value {
	v := Value{Kind: KindMissing, Raw: raw}
	if !present || IsMissing(raw, opts.Sentinels...) {
		return v
	}

	switch typ {
	case ir.TypeDate:
		if d, ok := ParseDate(raw, opts.Layouts, opts.Sentinels...); ok {
			v.Kind, v.Date = KindDate, d
		}
	case ir.TypeMoney:
		if m, ok := ParseMoney(raw, opts.Sentinels...); ok {
			v.Kind, v.Money = KindMoney, m
		}
	case ir.TypeText:
		v.Kind = KindText
	default:
		// A bare digit run ("1200", "202106") is a number unless declared a date.
		if bareDigits.MatchString(strings.TrimSpace(raw)) {
			if m, ok := parseNumberStrict(raw); ok {
				v.Kind, v.Money = KindMoney, m
				return v
			}
		}
		if d, ok := ParseDate(raw, opts.Layouts, opts.Sentinels...); ok {
			v.Kind, v.Date = KindDate, d
		} else if m, ok := parseNumberStrict(raw); ok {
			v.Kind, v.Money = KindMoney, m
		} else {
			v.Kind = KindText
		}
	}
	return v
}

// Render returns the canonical text of v: ISO date, reduced decimal, trimmed
// raw text, or "" when missing.
func (v Value) Render() string {
	switch v.Kind {
	case KindDate:
		return FormatDate(v.Date)
	case KindMoney:
		return CanonicalMoney(v.Money)
	case KindText:
		return strings.TrimSpace(v.Raw)
	default:
		return ""
	}
}
