// Package utils provides common formatting helpers for solarquote.
package utils

import (
	"fmt"
	"math"
	"strings"
)

// FormatDollars formats an amount with thousands separators and the given
// number of decimal places, e.g. 1234.5 → "$1,234.5", -200 → "-$200.0" (1 dp).
func FormatDollars(amount float64, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}
	negative := amount < 0
	s := fmt.Sprintf("%.*f", decimals, math.Abs(amount))

	intPart, frac, hasFrac := strings.Cut(s, ".")
	formatted := groupThousands(intPart)
	if hasFrac {
		formatted += "." + frac
	}

	// Values that round to zero print without a sign.
	if negative && strings.Trim(s, "0.") != "" {
		return "-$" + formatted
	}
	return "$" + formatted
}

// FormatLabel formats a chart value label: one decimal place.
func FormatLabel(amount float64) string {
	return FormatDollars(amount, 1)
}

// FormatTick formats an axis tick: whole dollars.
func FormatTick(amount float64) string {
	return FormatDollars(amount, 0)
}

// PrefixDollar renders an opaque price string as entered, with a "$" prefix.
// The value is not parsed or normalised.
func PrefixDollar(s string) string {
	return "$" + s
}

// groupThousands inserts a comma between every group of 3 digits.
func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}

	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
