package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRoundHalfEven(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1.005", "1.00"},
		{"1.015", "1.02"},
		{"1.025", "1.02"},
		{"2.5", "2.50"},
		{"-1.005", "-1.00"},
		{"0.125", "0.12"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Round(d(tt.in)).StringFixed(2))
		})
	}
}

func TestSum(t *testing.T) {
	assert.True(t, Sum().IsZero())
	assert.Equal(t, "9.00", String(Sum(d("2"), d("3"), d("4"))))
	assert.Equal(t, "0.30", String(Sum(d("0.1"), d("0.2"))))
}

func TestMul(t *testing.T) {
	assert.Equal(t, "750.00", String(Mul(d("150"), d("5"))))
	assert.Equal(t, "33.33", String(Mul(d("100"), d("0.3333"))))
	assert.True(t, MulNull(decimal.NullDecimal{}, d("4")).IsZero())
	assert.Equal(t, "400.00", String(MulNull(decimal.NewNullDecimal(d("100")), d("4"))))
}

func TestParse(t *testing.T) {
	v, err := Parse(" 12.345 ")
	require.NoError(t, err)
	assert.Equal(t, "12.34", String(v))

	_, err = Parse("twelve")
	assert.Error(t, err)

	n, err := ParseNull("")
	require.NoError(t, err)
	assert.False(t, n.Valid)

	n, err = ParseNull("150")
	require.NoError(t, err)
	assert.True(t, n.Valid)
	assert.Equal(t, "150.00", String(n.Decimal))
}

func TestNullHandling(t *testing.T) {
	assert.True(t, OrZero(decimal.NullDecimal{}).IsZero())
	assert.False(t, Positive(decimal.NullDecimal{}))
	assert.False(t, Positive(decimal.NewNullDecimal(decimal.Zero)))
	assert.True(t, Positive(decimal.NewNullDecimal(d("0.01"))))
	assert.Nil(t, NullString(decimal.NullDecimal{}))
	assert.Equal(t, "5.00", *NullString(decimal.NewNullDecimal(d("5"))))
}

func TestCents(t *testing.T) {
	assert.Equal(t, int64(123456), Cents(d("1234.56")))
	assert.Equal(t, int64(100), Cents(d("1.004")))
}
