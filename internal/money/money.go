// Package money holds the fixed-point helpers shared by every financing
// calculation. Amounts are shopspring decimals; nothing here uses float64.
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	// Places is the number of decimal places of every stored or returned amount.
	Places int32 = 2

	// WorkingPlaces bounds the scale of intermediate values inside iterative
	// calculations so that repeated multiplication does not grow the mantissa
	// without limit. It is far below a cent and never visible in output.
	WorkingPlaces int32 = 12
)

var (
	hundred = decimal.NewFromInt(100)
	twelve  = decimal.NewFromInt(12)
	half    = decimal.NewFromFloat(0.5)
)

// ErrInvalidAmount is returned when an amount string cannot be parsed
var ErrInvalidAmount = errors.New("invalid amount")

// Round rounds to cents using round-half-up (ties go toward positive infinity).
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Shift(Places).Add(half).Floor().Shift(-Places)
}

// Working truncates d to WorkingPlaces using round-half-up.
func Working(d decimal.Decimal) decimal.Decimal {
	return d.Shift(WorkingPlaces).Add(half).Floor().Shift(-WorkingPlaces)
}

// Percent returns amount * pct / 100 without rounding.
func Percent(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Div(hundred)
}

// MonthlyRate converts an annual percentage rate (e.g. 12 for 12%) into a
// monthly fraction (0.01).
func MonthlyRate(annualPct decimal.Decimal) decimal.Decimal {
	return annualPct.Div(hundred).Div(twelve)
}

// Sum adds all amounts.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// ClampZero returns zero for negative values.
func ClampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Format renders an amount with exactly two decimal places.
func Format(d decimal.Decimal) string {
	return Round(d).StringFixed(Places)
}

// Parse parses a decimal string and rejects values with more than two
// decimal places.
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.Exponent() < -Places && !d.Equal(d.Truncate(Places)) {
		return decimal.Zero, fmt.Errorf("%w: %q has more than %d decimal places", ErrInvalidAmount, s, Places)
	}
	return d, nil
}
