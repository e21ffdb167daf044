package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JeedaveyFCRA/vioverse-pro/internal/ir"
)

func TestAtLeast(t *testing.T) {
	tests := []struct {
		min  ir.Severity
		want []string
	}{
		{ir.SeverityMinor, []string{"Minor", "Moderate", "Serious", "Severe", "Extreme"}},
		{ir.SeveritySevere, []string{"Severe", "Extreme"}},
		{ir.SeverityExtreme, []string{"Extreme"}},
	}
	for _, tt := range tests {
		t.Run(tt.min.String(), func(t *testing.T) {
			in := AtLeast(tt.min)
			assert.Equal(t, "severity", in.Field)
			assert.Equal(t, Strings(tt.want...), in.Values)
		})
	}
}

func TestWhere(t *testing.T) {
	eq := Equals{Field: "run_id", Value: ir.IRString("r1")}
	src := Equals{Field: "source", Value: ir.IRString("Equifax")}

	assert.Nil(t, Where())
	assert.Nil(t, Where(nil, nil))
	assert.Equal(t, eq, Where(nil, eq))
	assert.Equal(t, And{Predicates: []Predicate{eq, src}}, Where(eq, nil, src))
}

func TestValidate_Valid(t *testing.T) {
	queries := []Query{
		Select{From: TableRuns},
		Select{From: TableViolations, Columns: []string{"id", "evidence"}},
		Count{From: TableAuditNotes, Filter: Where(
			Equals{Field: "row_index", Value: ir.IRInt(2)},
			In{Field: "source", Values: Strings("TransUnion")},
			AtLeast(ir.SeverityModerate),
		)},
		Count{From: TableViolations, Filter: In{Field: "rule_id"}},
	}
	for _, q := range queries {
		assert.Empty(t, Validate(q), "%#v", q)
	}
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	q := Select{
		From:    TableViolations,
		Columns: []string{"nope", "id"},
		Filter: And{Predicates: []Predicate{
			Equals{Field: "rule_id", Value: ir.IRNull{}},
			In{Field: "source", Values: []ir.IRValue{ir.IRString("a"), ir.IRArray{}}},
			Equals{Field: "1bad", Value: ir.IRString("x")},
		}},
	}
	errs := Validate(q)
	require.Len(t, errs, 4)
	assert.Contains(t, errs[0].Error(), `no column "nope"`)
	assert.Contains(t, errs[1].Error(), "compared to null")
	assert.Contains(t, errs[2].Error(), "only strings")
	assert.Contains(t, errs[3].Error(), "invalid column name")
}

func TestValidate_UnknownTable(t *testing.T) {
	errs := Validate(Count{From: "users", Filter: Equals{Field: "id", Value: ir.IRString("x")}})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), `unknown table "users"`)
}
