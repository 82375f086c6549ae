package types

import "github.com/shopspring/decimal"

// minorPerMajor is the number of minor units (cents) in one rand.
const minorPerMajor = 100

// MinorToRand converts a minor-unit amount to a display decimal. All
// arithmetic stays in minor units; this conversion belongs at the render
// boundary only.
func MinorToRand(minor int64) decimal.Decimal {
	return decimal.NewFromInt(minor).Div(decimal.NewFromInt(minorPerMajor))
}

// FormatRand renders a minor-unit amount as a fixed two-decimal string.
func FormatRand(minor int64) string {
	return MinorToRand(minor).StringFixed(2)
}
