package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cad(s string) Money {
	return MustFromString(s, "CAD")
}

func TestQuantize_HalfUp(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"1.005", "1.01"},
		{"1.004", "1.00"},
		{"-1.005", "-1.01"},
		{"2.675", "2.68"},
		{"100", "100.00"},
	}
	for _, c := range cases {
		got := cad(c.in).Quantize()
		assert.Equal(t, c.want, got.Amount.StringFixed(2), "quantize %s", c.in)
	}
}

func TestFromFloat_AlwaysErrors(t *testing.T) {
	_, err := FromFloat(4.20, "CAD")
	require.Error(t, err)
}

func TestAdd_CurrencyMismatch(t *testing.T) {
	_, err := cad("1.00").Add(MustFromString("1.00", "USD"))
	require.Error(t, err)

	sum, err := cad("1.10").Add(cad("2.20"))
	require.NoError(t, err)
	assert.Equal(t, "3.30", sum.Amount.StringFixed(2))
}

func TestSub_And_Neg(t *testing.T) {
	diff, err := cad("5.00").Sub(cad("7.50"))
	require.NoError(t, err)
	assert.True(t, diff.IsNegative())
	assert.Equal(t, "2.50", diff.Neg().Amount.StringFixed(2))
}

func TestMulRat_QuantizesResult(t *testing.T) {
	rate := decimal.RequireFromString("0.0494")
	got := cad("2607.69").MulRat(rate)
	assert.Equal(t, "128.82", got.Amount.StringFixed(2))
}

func TestMin(t *testing.T) {
	assert.Equal(t, "1.00", Min(cad("1.00"), cad("2.00")).Amount.StringFixed(2))
	assert.Equal(t, "1.00", Min(cad("2.00"), cad("1.00")).Amount.StringFixed(2))
}
