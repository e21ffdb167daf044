package consistency

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JeedaveyFCRA/vioverse-pro/internal/config"
	"github.com/JeedaveyFCRA/vioverse-pro/internal/ir"
)

func row(index int, source, name, period, last4 string, kv ...string) ir.Record {
	header := []string{"creditor_code", "creditor_full_name", "bureau", "report_date", "account_last4"}
	cells := []string{"ACM", name, source, period, last4}
	for i := 0; i+1 < len(kv); i += 2 {
		header = append(header, kv[i])
		cells = append(cells, kv[i+1])
	}
	return ir.NewRecord(index, header, cells)
}

func newChecker(opts ...Option) *Checker {
	return New(config.DefaultConsistency(), append([]Option{WithWorkers(2)}, opts...)...)
}

func TestCheck_CrossSourceSymmetry(t *testing.T) {
	records := []ir.Record{
		row(0, "EQ", "Acme", "2024-03-01", "1234", "balance", "100.00"),
		row(1, "EX", "ACME", "03/01/2024", "1234", "balance", "$100"),
		row(2, "TU", "acme", "Mar 1, 2024", "1234", "balance", "150.00"),
	}

	vs := newChecker().Check(records)
	require.Len(t, vs, 1)

	v := vs[0]
	assert.Equal(t, "SEV-XB-001", v.RuleID)
	assert.Equal(t, ir.SeveritySevere, v.Severity)
	assert.Equal(t, 0, v.RowIndex, "representative is the smallest source")
	assert.Equal(t, "EQ", v.Entity.Source)
	assert.Equal(t, ir.IRObject{
		"field": ir.IRString("balance"),
		"source_values": ir.IRObject{
			"EQ": ir.IRString("100.00"),
			"EX": ir.IRString("$100"),
			"TU": ir.IRString("150.00"),
		},
	}, v.Evidence)
}

func TestCheck_OrderIndependent(t *testing.T) {
	a := row(0, "EQ", "Acme", "2024-03-01", "1234", "balance", "100", "account_status", "Open")
	b := row(1, "EX", "Acme", "2024-03-01", "1234", "balance", "150", "account_status", "Closed")
	c := row(2, "TU", "Acme", "2024-03-01", "1234", "balance", "100", "account_status", "Open")

	ch := newChecker()
	first := ch.Check([]ir.Record{a, b, c})
	second := ch.Check([]ir.Record{c, b, a})
	require.Len(t, first, 2)
	require.Len(t, second, 2)
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, first[i].Evidence, second[i].Evidence)
	}

	// Critical field order: account_status before balance.
	assert.Equal(t, ir.IRString("account_status"), first[0].Evidence["field"])
	assert.Equal(t, ir.IRString("balance"), first[1].Evidence["field"])
}

func TestCheck_NoFalseGrouping(t *testing.T) {
	tests := []struct {
		name    string
		records []ir.Record
	}{
		{"different account fragment", []ir.Record{
			row(0, "EQ", "Acme", "2024-03-01", "1234", "balance", "100"),
			row(1, "TU", "Acme", "2024-03-01", "5678", "balance", "150"),
		}},
		{"different period", []ir.Record{
			row(0, "EQ", "Acme", "2024-03-01", "1234", "balance", "100"),
			row(1, "TU", "Acme", "2024-04-01", "1234", "balance", "150"),
		}},
		{"different entity", []ir.Record{
			row(0, "EQ", "Acme", "2024-03-01", "1234", "balance", "100"),
			row(1, "TU", "Zenith", "2024-03-01", "1234", "balance", "150"),
		}},
		{"blank period", []ir.Record{
			row(0, "EQ", "Acme", "", "1234", "balance", "100"),
			row(1, "TU", "Acme", "N/A", "1234", "balance", "150"),
		}},
		{"blank name", []ir.Record{
			row(0, "EQ", "", "2024-03-01", "1234", "balance", "100"),
			row(1, "TU", "", "2024-03-01", "1234", "balance", "150"),
		}},
		{"single member", []ir.Record{
			row(0, "EQ", "Acme", "2024-03-01", "1234", "balance", "100"),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, newChecker().Check(tt.records))
		})
	}
}

func TestCheck_ValueComparison(t *testing.T) {
	tests := []struct {
		name  string
		field string
		a, b  string
		want  bool
	}{
		{"money formatting", "balance", "$1,200.00", "1200", false},
		{"money zero", "balance", "0", "0.00", false},
		{"money differs", "balance", "1200", "1200.01", true},
		{"missing ignored", "balance", "N/A", "150", false},
		{"text trimmed", "account_status", "Open", " Open ", false},
		{"text differs", "account_status", "Open", "Closed", true},
		{"text is case sensitive", "remarks_multi", "Paid", "PAID", true},
		{"non-critical field", "high_credit", "100", "200", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := []ir.Record{
				row(0, "EQ", "Acme", "2024-03-01", "1234", tt.field, tt.a),
				row(1, "TU", "Acme", "2024-03-01", "1234", tt.field, tt.b),
			}
			vs := newChecker().Check(records)
			if tt.want {
				assert.Len(t, vs, 1)
			} else {
				assert.Empty(t, vs)
			}
		})
	}
}

func TestCheck_DuplicateSource(t *testing.T) {
	records := []ir.Record{
		row(0, "TU", "Acme", "2024-03-01", "1234", "balance", "150"),
		row(1, "TU", "Acme", "2024-03-01", "1234", "balance", "100"),
	}
	vs := newChecker().Check(records)
	require.Len(t, vs, 1)
	assert.Equal(t, ir.IRObject{
		"TU": ir.IRArray{ir.IRString("100"), ir.IRString("150")},
	}, vs[0].Evidence["source_values"])
}

func TestCheck_AliasGrouping(t *testing.T) {
	records := []ir.Record{
		row(0, "EQ", "THE HOME DEPOT/CBNA", "2024-03-01", "NA", "balance", "10"),
		row(1, "TU", "THD/CBNA", "2024-03-01", "", "balance", "20"),
	}
	ch := newChecker()
	groups := ch.Groups(records)
	require.Len(t, groups, 1)
	assert.Equal(t, "THD/CBNA", groups[0].Key.Entity.Name)
	assert.Equal(t, ir.NoDiscriminator, groups[0].Key.Entity.Discriminator)
	assert.Len(t, ch.Check(records), 1)
}

func TestCheck_RuleOrder(t *testing.T) {
	records := []ir.Record{
		row(3, "EQ", "Acme", "2024-03-01", "1234", "balance", "1"),
		row(4, "TU", "Acme", "2024-03-01", "1234", "balance", "2"),
	}
	vs := newChecker(WithRuleOrder(12)).Check(records)
	require.Len(t, vs, 1)
	assert.Equal(t, 12, vs[0].RuleOrder())
	assert.Equal(t, 3, vs[0].RowIndex)
}

func TestCheck_ContextLayouts(t *testing.T) {
	// 05/06/2024 is June 5 under a day-first layout.
	records := []ir.Record{
		row(0, "EQ", "Acme", "05/06/2024", "1234", "balance", "1"),
		row(1, "TU", "Acme", "2024-06-05", "1234", "balance", "2"),
	}
	assert.Empty(t, newChecker().Check(records))

	ctx := &ir.Context{DateFormats: []string{"02/01/2006"}}
	assert.Len(t, newChecker(WithContext(ctx)).Check(records), 1)
}
