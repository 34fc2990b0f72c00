// Package types provides common type aliases and utilities.
package types

import (
	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors when many
// transaction rows are summed into one cell.
type Money = decimal.Decimal

// MustMoney parses s and panics on error. For literals and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero.
func Zero() Money {
	return decimal.Zero
}

// SumMoney adds all values; an empty slice sums to zero.
func SumMoney(values []Money) Money {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// ToFloat converts Money for chart payloads and spreadsheet cells,
// where an inexact float is acceptable.
func ToFloat(m Money) float64 {
	return m.InexactFloat64()
}
