// Package core provides money parsing and handling utilities.
//
// This file contains the amount parser used at every input boundary and the
// normalization rules every aggregate relies on.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// maxDollars keeps cents within int64 range.
var maxDollars = decimal.New(1, 15)

// ParseAmount converts a decimal string to Money with half-up rounding to cents.
//
// Zero is accepted; negative values and anything that is not a plain decimal
// number are rejected with ErrInvalidAmount. Nothing is silently coerced.
//
// Examples:
//
//	ParseAmount("12.34")  -> {1234}, nil
//	ParseAmount("12.345") -> {1235}, nil (rounds half up)
//	ParseAmount("0")      -> {0}, nil
//	ParseAmount("abc")    -> {}, ErrInvalidAmount
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	if d.IsNegative() {
		return Money{}, ErrNegativeAmount
	}
	if d.GreaterThanOrEqual(maxDollars) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: d.Round(2).Shift(2).IntPart()}, nil
}

// MustAmount is ParseAmount for literals known to be valid; it panics otherwise.
func MustAmount(s string) Money {
	m, err := ParseAmount(s)
	if err != nil {
		panic("core: invalid amount literal " + s)
	}
	return m
}

// Dollars returns the value as a float64 for display and ratio purposes.
// Use cents for sums.
func (m Money) Dollars() float64 {
	f, _ := m.Decimal().Float64()
	return f
}

// Decimal returns the exact decimal value in dollars.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String formats the amount as "$1234.50" or "-$12.00".
func (m Money) String() string {
	if m.Cents < 0 {
		return "-$" + Money{Cents: -m.Cents}.Decimal().StringFixed(2)
	}
	return "$" + m.Decimal().StringFixed(2)
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

// AmountOrZero is the single rule for a missing amount: it sums as zero.
func AmountOrZero(m *Money) Money {
	if m == nil {
		return Money{}
	}
	return *m
}

// VendorOrUnknown is the single rule for a missing vendor.
func VendorOrUnknown(vendor string) string {
	if strings.TrimSpace(vendor) == "" {
		return UnknownVendor
	}
	return vendor
}

// CategoryOrOther is the display rule for a missing category.
func CategoryOrOther(category string) string {
	if strings.TrimSpace(category) == "" {
		return DefaultCategory
	}
	return category
}

// FormatAmount renders an optional amount, keeping "unknown" distinct from zero.
func FormatAmount(m *Money) string {
	if m == nil {
		return "N/A"
	}
	return m.String()
}
