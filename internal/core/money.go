// Package core provides the domain types and money handling utilities for the
// budget calculation engine.
//
// This file contains the safe decimal arithmetic all monetary computation in
// the engine must route through, plus parsing from user-entered strings.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// SafeAdd adds two decimal amounts.
//
// Decimal addition cannot overflow, but routing every monetary operation
// through these helpers keeps float64 out of money paths entirely.
func SafeAdd(a, b decimal.Decimal) decimal.Decimal {
	return a.Add(b)
}

// SafeSubtract subtracts b from a.
func SafeSubtract(a, b decimal.Decimal) decimal.Decimal {
	return a.Sub(b)
}

// SafeDivide divides a by b, returning zero when b is zero.
// A zero divisor is a normal state here (no budget, no interval), not an error.
func SafeDivide(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.Div(b)
}

// Rate returns numerator/denominator as a float64 for display purposes.
// Returns 0 when the denominator is zero or negative. Rates are ratios for
// presentation, never stored money; this is the only place money meets float64.
func Rate(numerator, denominator decimal.Decimal) float64 {
	if denominator.Sign() <= 0 {
		return 0
	}
	rate, _ := numerator.Div(denominator).Float64()
	return rate
}

// ParseAmount converts a decimal string to a decimal amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators.
// Returns an error for invalid formats, negative values, or zero amounts.
//
// Examples:
//
//	ParseAmount("1200")  -> 1200, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("-5")    -> error
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		// Only positive values allowed
		return decimal.Zero, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, part := range parts {
		for _, r := range part {
			if !unicode.IsDigit(r) {
				return decimal.Zero, ErrInvalidAmount
			}
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.Sign() <= 0 {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}
