// Package core provides money parsing and handling utilities.
//
// Amounts are exact decimals. Values read from the backend keep whatever
// precision they arrive with; only totals are rounded, to two places.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencySymbol prefixes every amount shown to the user.
const CurrencySymbol = "₹"

// Money is a non-negative exact decimal amount in a single implicit currency.
type Money struct {
	d decimal.Decimal
}

// Zero is the additive identity.
var Zero = Money{}

// ParseAmount converts user or wire text to Money.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and an
// optional exponent as produced by JSON encoders. Empty, non-numeric and
// negative inputs fail with ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12,5")   -> 12.5
//	ParseAmount("1e2")    -> 100
//	ParseAmount("-1")     -> ErrInvalidAmount
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return MoneyFromDecimal(d)
}

// MoneyFromDecimal wraps d, rejecting negative values.
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	if d.IsNegative() {
		return Money{}, ErrInvalidAmount
	}
	return Money{d: d}, nil
}

// MustParseAmount is ParseAmount for literals known to be valid.
func MustParseAmount(s string) Money {
	m, err := ParseAmount(s)
	if err != nil {
		panic("core: invalid amount literal " + s)
	}
	return m
}

func (m Money) Validate() error {
	if m.d.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

// Decimal exposes the underlying value.
func (m Money) Decimal() decimal.Decimal {
	return m.d
}

// Add returns the exact sum.
func (m Money) Add(o Money) Money {
	return Money{d: m.d.Add(o.d)}
}

// Round2 rounds to two fractional digits, half away from zero.
func (m Money) Round2() Money {
	return Money{d: m.d.Round(2)}
}

// Equal compares values, ignoring representation (1.5 equals 1.50).
func (m Money) Equal(o Money) bool {
	return m.d.Equal(o.d)
}

func (m Money) IsZero() bool {
	return m.d.IsZero()
}

// String renders exactly two decimals, e.g. "15.50".
func (m Money) String() string {
	return m.d.StringFixed(2)
}

// Display renders the amount with the currency symbol, e.g. "₹15.50".
func (m Money) Display() string {
	return CurrencySymbol + m.String()
}

// Float64 is for spreadsheet cells and JSON numbers; never sum floats.
func (m Money) Float64() float64 {
	f, _ := m.d.Float64()
	return f
}
