// Package core provides the expense record, calendar dates and query parameter types.
//
// This file contains the strict amount parsing of the entry surfaces (HTTP, CLI)
// and the lenient number parsing of query bounds.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a decimal string into a non-negative amount.
//
// Both dot (12.34) and comma (12,34) decimal separators are accepted.
// Signs, grouping separators and anything decimal.NewFromString rejects yield ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,5")  -> 12.5, nil
//	ParseAmount("-1")    -> 0, ErrInvalidAmount
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") || strings.ContainsAny(s, "eE") {
		return 0, ErrInvalidAmount
	}
	return ParseNumber(s)
}

// ParseNumber converts any decimal string, signed or in exponent form, into a
// float. A comma is read as the decimal separator. Query bounds use it so that
// "-1" or "1e1" still limit the result.
func ParseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	f, _ := d.Float64()
	return f, nil
}
