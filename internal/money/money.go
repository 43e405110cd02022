package money

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// scale is the number of minor-unit digits carried by an Amount.
const scale = 2

var (
	// ErrPrecision is returned when a value carries more than two decimal places.
	ErrPrecision = errors.New("amount has more than two decimal places")
	// ErrOutOfRange is returned when a value does not fit in an Amount.
	ErrOutOfRange = errors.New("amount out of range")

	maxMinor = decimal.NewFromInt(math.MaxInt64)
	minMinor = decimal.NewFromInt(math.MinInt64)
)

// Amount is a monetary value expressed in minor units (hundredths of the
// currency unit). Balances, fees and transfer amounts all use it so that no
// floating point ever touches a balance.
type Amount int64

// FromUnits converts whole currency units to an Amount.
func FromUnits(units int64) Amount {
	return Amount(units * 100)
}

// Parse reads a decimal string such as "120" or "99.50".
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return FromDecimal(d)
}

// FromDecimal converts a decimal value in currency units to an Amount.
func FromDecimal(d decimal.Decimal) (Amount, error) {
	minor := d.Shift(scale)
	if !minor.Equal(minor.Truncate(0)) {
		return 0, ErrPrecision
	}
	if minor.GreaterThan(maxMinor) || minor.LessThan(minMinor) {
		return 0, ErrOutOfRange
	}
	return Amount(minor.IntPart()), nil
}

// Add returns a+b, or ErrOutOfRange when the sum does not fit in an Amount.
func (a Amount) Add(b Amount) (Amount, error) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, ErrOutOfRange
	}
	return sum, nil
}

// Decimal returns the amount in currency units.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -scale)
}

// MulRate multiplies the amount by rate and rounds half away from zero to the
// nearest minor unit.
func (a Amount) MulRate(rate decimal.Decimal) Amount {
	return Amount(decimal.NewFromInt(int64(a)).Mul(rate).Round(0).IntPart())
}

// String formats the amount with exactly two decimals.
func (a Amount) String() string {
	return a.Decimal().StringFixed(scale)
}

// MarshalJSON renders the amount as a JSON number in currency units.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON accepts either a JSON number or a quoted decimal string.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("decode amount: %w", err)
	}
	v, err := FromDecimal(d)
	if err != nil {
		return err
	}
	*a = v
	return nil
}
