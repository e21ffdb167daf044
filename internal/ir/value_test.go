package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIRValueSealed(t *testing.T) {
	var _ IRValue = IRNull{}
	var _ IRValue = IRString("test")
	var _ IRValue = IRInt(42)
	var _ IRValue = IRBool(true)
	var _ IRValue = IRDecimal{}
	var _ IRValue = IRArray{IRString("a"), IRInt(1)}
	var _ IRValue = IRObject{"key": IRString("value")}
}

func TestIRObjectSortedKeys(t *testing.T) {
	obj := IRObject{
		"zebra":  IRString("z"),
		"apple":  IRString("a"),
		"banana": IRString("b"),
	}
	assert.Equal(t, []string{"apple", "banana", "zebra"}, obj.SortedKeys())
}

func TestCompareKeysRFC8785(t *testing.T) {
	tests := []struct {
		a, b string
		sign int
	}{
		{"a", "b", -1},
		{"b", "a", 1},
		{"a", "a", 0},
		{"aa", "a", 1},
		{"A", "a", -1},
		{"", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.a+"_vs_"+tt.b, func(t *testing.T) {
			got := compareKeysRFC8785(tt.a, tt.b)
			switch {
			case tt.sign < 0:
				assert.Less(t, got, 0)
			case tt.sign > 0:
				assert.Greater(t, got, 0)
			default:
				assert.Equal(t, 0, got)
			}
		})
	}
}

func TestIRObjectMarshalJSON(t *testing.T) {
	obj := NewIRObjectFromPairs(
		O("field", IRString("balance")),
		O("source_values", IRObject{
			"TransUnion": IRString("150.00"),
			"Equifax":    IRString("100.00"),
		}),
		O("amount", decimal(t, "-50")),
		O("missing", IRNull{}),
	)

	data, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"amount":-50,"field":"balance","missing":null,"source_values":{"Equifax":"100.00","TransUnion":"150.00"}}`,
		string(data))
}

func TestEvidenceRoundTripKeepsDecimals(t *testing.T) {
	in := IRObject{
		"balance":  decimal(t, "12345.67"),
		"count":    IRInt(3),
		"fields":   IRArray{IRString("a"), IRBool(false)},
		"optional": IRNull{},
	}
	data, err := MarshalCanonical(in)
	require.NoError(t, err)

	var out IRObject
	require.NoError(t, json.Unmarshal(data, &out))

	again, err := MarshalCanonical(out)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again))

	bal, ok := out["balance"].(IRDecimal)
	require.True(t, ok, "decimal literal must decode to IRDecimal, got %T", out["balance"])
	assert.Equal(t, "12345.67", bal.String())
	assert.Equal(t, IRInt(3), out["count"])
}

func TestUnmarshalIRObjectRejectsNonObject(t *testing.T) {
	var out IRObject
	err := json.Unmarshal([]byte(`[1,2]`), &out)
	require.Error(t, err)
}
