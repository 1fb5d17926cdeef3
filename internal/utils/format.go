package utils

import (
	"math"

	"github.com/shopspring/decimal"
)

// PercentPlaces is the precision of every percentage shown in the lab.
const PercentPlaces = 2

// FormatPercent renders a fractional rate as a percentage, 0.0812 -> "8.12%".
func FormatPercent(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return decimal.NewFromFloat(v).Shift(2).StringFixed(PercentPlaces) + "%"
}

// FormatRatio renders a plain ratio such as a beta with two decimals.
func FormatRatio(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return decimal.NewFromFloat(v).StringFixed(2)
}

// ValidateFinite returns a ValidationError when v is NaN or infinite.
func ValidateFinite(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NewValidationErrorf(field, "must be a finite number, got %v", v)
	}
	return nil
}
