package engine

import (
	"fmt"

	"everdex/internal/domain"
	"everdex/pkg/quant"
	"everdex/pkg/safe"
)

// OrganicPrice returns the instantaneous quote/base ratio implied purely
// by the current reserves, ignoring any bonus. A drained base reserve
// yields zero by contract, never an error.
func OrganicPrice(c *domain.Curve) (uint64, error) {
	if c.BaseReserve == 0 {
		return 0, nil
	}
	p, err := safe.MulDiv(c.QuoteReserve, quant.PriceScale, c.BaseReserve)
	if err != nil {
		return 0, fmt.Errorf("%w: organic price", domain.ErrMathOverflow)
	}
	return p, nil
}

// EffectivePrice returns organic price plus the cumulative bonus. On
// overflow it saturates to the organic price by contract.
func EffectivePrice(c *domain.Curve) (uint64, error) {
	organic, err := OrganicPrice(c)
	if err != nil {
		return 0, err
	}
	sum, err := safe.Add(organic, c.CumulativeBonus)
	if err != nil {
		return organic, nil
	}
	return sum, nil
}

// QuoteToBase quotes the base tokens receivable for quoteAmount against
// the constant-product invariant: newY = k/(x+in), out = y - newY.
func QuoteToBase(c *domain.Curve, quoteAmount uint64) (uint64, error) {
	newX, err := safe.Add(c.QuoteReserve, quoteAmount)
	if err != nil {
		return 0, fmt.Errorf("%w: quote reserve", domain.ErrMathOverflow)
	}
	newY, err := safe.DivWide(c.Invariant(), newX)
	if err != nil {
		return 0, fmt.Errorf("%w: base projection", domain.ErrMathOverflow)
	}
	tokens, err := safe.Sub(c.BaseReserve, newY)
	if err != nil {
		// k/(x+in) exceeding y means the invariant and reserves disagree.
		return 0, domain.ErrPriceCalculation
	}
	return tokens, nil
}

// BoostResult describes one daily-boost application.
type BoostResult struct {
	OrganicPrice uint64
	MinimumPrice uint64
	FinalPrice   uint64
	DaysPassed   int64
	BoostAmount  uint64
}

// ApplyDailyBoost enforces the price floor: the effective price must not
// grow slower than DailyGrowthPpm per elapsed day, while organic growth
// above the floor passes through untouched. Returns nil when no full day
// has elapsed (idempotent within the same day).
//
// The linear factor (1e6 + days*200)/1e6 approximates compounding at
// 0.02%/day; over long gaps the approximation undershoots true
// compounding slightly.
func ApplyDailyBoost(c *domain.Curve, now int64) (*BoostResult, error) {
	days := (now - c.LastBoostAt) / quant.SecondsPerDay
	if days <= 0 {
		return nil, nil
	}
	c.BoostAppliedToday = false

	organic, err := OrganicPrice(c)
	if err != nil {
		return nil, err
	}
	growth, err := safe.Mul(uint64(days), quant.DailyGrowthPpm)
	if err != nil {
		return nil, fmt.Errorf("%w: growth factor", domain.ErrMathOverflow)
	}
	factor, err := safe.Add(quant.GrowthScale, growth)
	if err != nil {
		return nil, fmt.Errorf("%w: growth factor", domain.ErrMathOverflow)
	}
	minimum, err := safe.MulDiv(c.CurrentPrice, factor, quant.GrowthScale)
	if err != nil {
		return nil, fmt.Errorf("%w: minimum price", domain.ErrMathOverflow)
	}

	boosted := organic
	if minimum > boosted {
		boosted = minimum
	}
	var boost uint64
	if boosted > organic {
		boost = boosted - organic
		bonus, err := safe.Add(c.CumulativeBonus, boost)
		if err != nil {
			return nil, fmt.Errorf("%w: cumulative bonus", domain.ErrMathOverflow)
		}
		c.CumulativeBonus = bonus
	}

	c.CurrentPrice = boosted
	c.LastBoostAt = now
	c.BoostAppliedToday = true

	return &BoostResult{
		OrganicPrice: organic,
		MinimumPrice: minimum,
		FinalPrice:   boosted,
		DaysPassed:   days,
		BoostAmount:  boost,
	}, nil
}

// AppreciationBonus is the small per-transaction reward earned by
// queue-matched volume: volume / (lockedPrice * SupplyCap). A zero
// denominator yields zero by contract.
func AppreciationBonus(volume, lockedPrice uint64) uint64 {
	denom := safe.MulWide(lockedPrice, quant.SupplyCap)
	if denom.IsZero() {
		return 0
	}
	bonus, err := safe.DivByWide(volume, denom)
	if err != nil {
		return 0
	}
	return bonus
}
