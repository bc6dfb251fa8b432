package service

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// money rounds an amount to cents
func money(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func requireNonNegative(field string, d decimal.Decimal) error {
	if d.IsNegative() {
		return newValidationError(field, "must not be negative")
	}
	return nil
}

func requirePositive(field string, d decimal.Decimal) error {
	if !d.IsPositive() {
		return newValidationError(field, "must be greater than zero")
	}
	return nil
}

// percentOf returns part/whole*100 rounded to two places, or nil when whole is
// zero. A negative whole gives a ratio of the opposite sign.
func percentOf(part, whole decimal.Decimal) *decimal.Decimal {
	if whole.IsZero() {
		return nil
	}
	p := part.Div(whole).Mul(hundred).Round(2)
	return &p
}
