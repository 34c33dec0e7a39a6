package model

import (
	"math"
	"math/big"
	"strconv"
)

// FormatPrice renders a price in major units for display. Whole numbers
// render without decimals, everything else with exactly two decimal places.
// Rounding works on the decimal the user sees, not the raw binary float, so
// 10.555 becomes "10.56" rather than "10.55".
// Examples: 10 → "10", 10.5 → "10.50", 10.555 → "10.56"
func FormatPrice(price float64) string {
	if price == math.Trunc(price) {
		return strconv.FormatFloat(price, 'f', -1, 64)
	}
	r, ok := new(big.Rat).SetString(strconv.FormatFloat(price, 'f', -1, 64))
	if !ok {
		return strconv.FormatFloat(price, 'f', 2, 64)
	}
	// FloatString rounds half away from zero
	return r.FloatString(2)
}

// ParseCents converts decimal string amounts (dollars) to cents (int64).
// Use for fields that arrive in major currency units (e.g. "99.00" = $99.00).
// Handles edge cases: empty strings, missing decimals, large values.
// Examples: "99.00" → 9900, "1234.56" → 123456, "" → 0
func ParseCents(s string) int64 {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	// math.Round handles both positive and negative numbers correctly
	return int64(math.Round(f * 100))
}

// ParseMinorUnits converts string amounts already in minor units to int64.
// Variant and line prices on the cart API are minor-unit fixed-point.
// Examples: "8900" → 8900, "123456" → 123456, "" → 0
func ParseMinorUnits(s string) int64 {
	if s == "" {
		return 0
	}
	// Parse as float to handle potential decimal values, then truncate
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int64(f)
}

// ParseQuantity coerces a user-entered quantity to a non-negative integer.
// Anything unparseable counts as zero, matching how quantity inputs behave.
func ParseQuantity(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
