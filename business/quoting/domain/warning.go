package domain

import "github.com/shopspring/decimal"

// Warning classifies a quote's price impact into bands shown to callers.
type Warning struct {
	Level       WarningLevel
	ShouldBlock bool
}

// WarningLevel names the price-impact band a quote falls into.
type WarningLevel string

const (
	WarningLow      WarningLevel = "low"       // [0, 1)
	WarningMedium   WarningLevel = "medium"    // [1, 3)
	WarningHigh     WarningLevel = "high"      // [3, 5)
	WarningVeryHigh WarningLevel = "very-high" // [5, 15)
	WarningExtreme  WarningLevel = "extreme"   // [15, inf)
)

// WarnFor classifies a price impact percentage. Only the extreme band sets
// ShouldBlock.
func WarnFor(priceImpact decimal.Decimal) Warning {
	pct, _ := priceImpact.Float64()

	switch {
	case pct < 1:
		return Warning{Level: WarningLow}
	case pct < 3:
		return Warning{Level: WarningMedium}
	case pct < 5:
		return Warning{Level: WarningHigh}
	case pct < 15:
		return Warning{Level: WarningVeryHigh}
	default:
		return Warning{Level: WarningExtreme, ShouldBlock: true}
	}
}
