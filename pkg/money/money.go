// Package money holds the fixed-precision helpers used for amounts and hours.
//
// Both money and hours carry two fractional digits and round half-to-even.
// Values are shopspring decimals end to end; floats never touch a monetary
// quantity.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Places is the number of fractional digits kept for money and hours.
const Places = 2

// Round applies the rounding policy (2 places, half-even).
func Round(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(Places)
}

// Parse reads a decimal string and rounds it to the storage precision.
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	return Round(d), nil
}

// ParseNull parses an optional value; an empty string yields an absent value.
func ParseNull(s string) (decimal.NullDecimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := Parse(s)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

// Sum adds values. The sum of nothing is zero.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return Round(total)
}

// Mul multiplies a rate by a quantity of hours (or any scalar).
func Mul(rate, qty decimal.Decimal) decimal.Decimal {
	return Round(rate.Mul(qty))
}

// MulNull multiplies an optional rate. An absent rate yields zero.
func MulNull(rate decimal.NullDecimal, qty decimal.Decimal) decimal.Decimal {
	if !rate.Valid {
		return decimal.Zero
	}
	return Mul(rate.Decimal, qty)
}

// OrZero reads an optional value in an aggregation context.
func OrZero(v decimal.NullDecimal) decimal.Decimal {
	if !v.Valid {
		return decimal.Zero
	}
	return v.Decimal
}

// Positive reports whether v holds a concrete value greater than zero.
// An absent value is never positive.
func Positive(v decimal.NullDecimal) bool {
	return v.Valid && v.Decimal.IsPositive()
}

// String renders a value with exactly two fractional digits.
func String(d decimal.Decimal) string {
	return Round(d).StringFixed(Places)
}

// NullString renders an optional value; absent values render as nil.
func NullString(v decimal.NullDecimal) *string {
	if !v.Valid {
		return nil
	}
	s := String(v.Decimal)
	return &s
}

// Cents converts an amount to minor units.
func Cents(d decimal.Decimal) int64 {
	return Round(d).Shift(Places).IntPart()
}
