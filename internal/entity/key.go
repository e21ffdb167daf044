package entity

import (
	"strings"

	"github.com/JeedaveyFCRA/vioverse-pro/internal/ir"
)

// Schema names the record columns that carry entity identity.
type Schema struct {
	CodeField          string `yaml:"code_field"`
	NameField          string `yaml:"name_field"`
	SourceField        string `yaml:"source_field"`
	PeriodField        string `yaml:"period_field"`
	LocatorField       string `yaml:"locator_field"`
	DiscriminatorField string `yaml:"discriminator_field"`
}

// DefaultSchema matches the tradeline CSV layout.
func DefaultSchema() Schema {
	return Schema{
		CodeField:          "creditor_code",
		NameField:          "creditor_full_name",
		SourceField:        "bureau",
		PeriodField:        "report_date",
		LocatorField:       "png_file_start",
		DiscriminatorField: "account_last4",
	}
}

// WithDefaults fills empty column names from DefaultSchema.
func (s Schema) WithDefaults() Schema {
	d := DefaultSchema()
	fill := func(v *string, def string) {
		if strings.TrimSpace(*v) == "" {
			*v = def
		}
	}
	fill(&s.CodeField, d.CodeField)
	fill(&s.NameField, d.NameField)
	fill(&s.SourceField, d.SourceField)
	fill(&s.PeriodField, d.PeriodField)
	fill(&s.LocatorField, d.LocatorField)
	fill(&s.DiscriminatorField, d.DiscriminatorField)
	return s
}

// KeyOf builds the grouping key of a record: trimmed code, canonical name and
// discriminator, NA when the discriminator is blank.
func (c *Canonicalizer) KeyOf(r ir.Record, s Schema) ir.EntityKey {
	disc := r.Text(s.DiscriminatorField)
	if disc == "" {
		disc = ir.NoDiscriminator
	}
	return ir.EntityKey{
		Code:          r.Text(s.CodeField),
		Name:          c.Canonicalize(r.Text(s.NameField)),
		Discriminator: disc,
	}
}

// Identity extracts the identity carried on findings. The name is the
// reported (trimmed) name, not the canonical one.
func Identity(r ir.Record, s Schema) ir.EntityIdentity {
	return ir.EntityIdentity{
		Code:    r.Text(s.CodeField),
		Name:    r.Text(s.NameField),
		Source:  r.Text(s.SourceField),
		Period:  r.Text(s.PeriodField),
		Locator: r.Text(s.LocatorField),
	}
}
