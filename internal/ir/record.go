package ir

import (
	"slices"
	"strings"
	"time"
)

// Record is one reported line item from one source.
// Fields holds only present cells; a blank cell is absent.
type Record struct {
	Index   int               `json:"row_index"`
	Columns []string          `json:"columns"`
	Fields  map[string]string `json:"fields"`
}

// NewRecord builds a Record from a header and row, dropping blank cells.
// Extra cells beyond the header are ignored; short rows leave columns absent.
func NewRecord(index int, header []string, row []string) Record {
	r := Record{
		Index:   index,
		Columns: header,
		Fields:  make(map[string]string, len(header)),
	}
	for i, col := range header {
		if i >= len(row) {
			break
		}
		if strings.TrimSpace(row[i]) == "" {
			continue
		}
		r.Fields[col] = row[i]
	}
	return r
}

// Get returns the raw value of a field and whether it is present.
func (r Record) Get(field string) (string, bool) {
	v, ok := r.Fields[field]
	return v, ok
}

// Text returns the trimmed raw value, or "" when absent.
func (r Record) Text(field string) string {
	return strings.TrimSpace(r.Fields[field])
}

// WithField returns a copy of r with field set to value.
// Records are immutable; pre-processing (source normalization) uses this.
func (r Record) WithField(field, value string) Record {
	fields := make(map[string]string, len(r.Fields)+1)
	for k, v := range r.Fields {
		fields[k] = v
	}
	fields[field] = value

	cols := r.Columns
	if _, ok := r.Fields[field]; !ok && !slices.Contains(cols, field) {
		cols = append(append([]string(nil), cols...), field)
	}
	return Record{Index: r.Index, Columns: cols, Fields: fields}
}

// DefaultReferenceName is the rule token for the run reference date.
const DefaultReferenceName = "reference_date"

// Context is the run-scoped, read-only evaluation context.
type Context struct {
	ReferenceDate time.Time
	ReferenceName string
	DerivedDates  map[string]time.Time
	DateFormats   []string // Go layouts, tried before the fallback list
	Keywords      map[string][]string
	Sentinels     []string // extra missing-value sentinels, lowercase
}

// Date resolves a named context date: "reference_date", the configured
// reference alias, or a derived date.
func (c *Context) Date(name string) (time.Time, bool) {
	if name == DefaultReferenceName || (c.ReferenceName != "" && name == c.ReferenceName) {
		return c.ReferenceDate, !c.ReferenceDate.IsZero()
	}
	d, ok := c.DerivedDates[name]
	return d, ok
}

// KeywordList resolves a named keyword list.
func (c *Context) KeywordList(name string) ([]string, bool) {
	kw, ok := c.Keywords[name]
	return kw, ok
}

// EntityIdentity is the stable identity carried on every finding.
type EntityIdentity struct {
	Code    string `json:"entity_code"`
	Name    string `json:"entity_name"`
	Source  string `json:"source"`
	Period  string `json:"period"`
	Locator string `json:"locator,omitempty"`
}

func (e EntityIdentity) toIR() IRObject {
	return IRObject{
		"code":    IRString(e.Code),
		"name":    IRString(e.Name),
		"source":  IRString(e.Source),
		"period":  IRString(e.Period),
		"locator": IRString(e.Locator),
	}
}

// NoDiscriminator marks a record without an account fragment.
const NoDiscriminator = "NA"

// EntityKey groups records that describe the same real-world entity.
type EntityKey struct {
	Code          string `json:"code"`
	Name          string `json:"name"`
	Discriminator string `json:"discriminator"`
}

// String renders the key as code|name|discriminator.
func (k EntityKey) String() string {
	return k.Code + "|" + k.Name + "|" + k.Discriminator
}
