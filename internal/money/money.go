// Package money implements exact fixed-point arithmetic for ledger amounts.
// All amounts are carried as int64 minor units (cents); decimal strings only
// appear at the API boundary.
package money

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount indicates a malformed decimal input string.
var ErrInvalidAmount = errors.New("money: invalid amount")

// ToCents parses a decimal string into cents, rounding half away from zero
// to two decimal places.
func ToCents(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return d.Round(2).Shift(2).IntPart(), nil
}

// FromCents renders cents as a decimal string with two decimal places.
func FromCents(c int64) string {
	return decimal.New(c, -2).StringFixed(2)
}

// ParseRate parses a rate such as "0.13" or "80" (percent callers divide
// themselves). Rates are kept as decimals so tax math stays exact.
func ParseRate(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	if d.IsNegative() {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	return d, nil
}

// ApplyRate multiplies cents by rate and rounds half away from zero back to
// cents.
func ApplyRate(cents int64, rate decimal.Decimal) int64 {
	return decimal.New(cents, -2).Mul(rate).Round(2).Shift(2).IntPart()
}

// SplitTax separates a tax-inclusive total into net and tax portions:
// net = total / (1 + rate), tax = total - net. The remainder always lands on
// the tax side so the two parts sum back to the total exactly.
func SplitTax(total int64, rate decimal.Decimal) (net, tax int64) {
	divisor := decimal.New(1, 0).Add(rate)
	net = decimal.New(total, -2).Div(divisor).Round(2).Shift(2).IntPart()
	return net, total - net
}
