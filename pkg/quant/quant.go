// Package quant defines the fixed-point units used across the engine.
// The quote asset carries 6 decimals, the base asset 9 decimals, and a
// Price is the quote amount (in its smallest unit) for one whole base
// token: quote = base * price / PriceScale.
package quant

import "everdex/pkg/safe"

// Price is quote smallest-units per whole base token (6 decimals).
type Price = uint64

// QuoteAmount is an amount of the quote asset in smallest units (6 decimals).
type QuoteAmount = uint64

// BaseAmount is an amount of the base asset in smallest units (9 decimals).
type BaseAmount = uint64

const (
	// QuoteScale is the smallest-unit factor of the quote asset (6 decimals).
	QuoteScale uint64 = 1_000_000

	// PriceScale is the smallest-unit factor of the base asset (9 decimals),
	// which is also the divisor in base*price conversions.
	PriceScale uint64 = 1_000_000_000

	// GrowthScale is the fixed 6-decimal scale of the daily growth factor.
	GrowthScale uint64 = 1_000_000

	// DailyGrowthPpm is the guaranteed daily appreciation: 200 ppm = 0.02%/day.
	DailyGrowthPpm uint64 = 200

	// SupplyCap is the total base-asset supply cap in whole tokens.
	SupplyCap uint64 = 1_000_000_000

	// SecondsPerDay is the boost cadence unit.
	SecondsPerDay int64 = 86_400

	// InitialQuoteReserve seeds the curve with 100,000 quote units.
	InitialQuoteReserve uint64 = 100_000_000_000

	// InitialBaseReserve seeds the curve with 1,000,000 whole base tokens.
	InitialBaseReserve uint64 = 1_000_000_000_000_000
)

// BaseToQuote converts a base amount to quote at the given price.
func BaseToQuote(base BaseAmount, price Price) (QuoteAmount, error) {
	return safe.MulDiv(base, price, PriceScale)
}

// QuoteToBase converts a quote amount to base at the given price.
func QuoteToBase(quote QuoteAmount, price Price) (BaseAmount, error) {
	if price == 0 {
		return 0, safe.ErrDivisionByZero
	}
	return safe.MulDiv(quote, PriceScale, price)
}
