package service

import (
	"sync"

	"github.com/shopspring/decimal"

	"everdex/internal/domain"
	"everdex/internal/engine"
)

// EngineVersion is reported on the query surface for debugging.
const EngineVersion = "2.1.0"

// Snapshot is the human-scale view of the curve: prices in whole quote
// units, reserves in whole tokens.
type Snapshot struct {
	OrganicPrice      decimal.Decimal  `json:"organic_price"`
	EffectivePrice    decimal.Decimal  `json:"effective_price"`
	CumulativeBonus   decimal.Decimal  `json:"cumulative_bonus"`
	PremiumPct        *decimal.Decimal `json:"premium_pct,omitempty"` // effective over organic
	QuoteReserve      decimal.Decimal  `json:"quote_reserve"`
	BaseReserve       decimal.Decimal  `json:"base_reserve"`
	CirculatingSupply decimal.Decimal  `json:"circulating_supply"`
	TotalVolume       decimal.Decimal  `json:"total_volume"`
	BuyQueueDepth     uint64           `json:"buy_queue_depth"`
	SellQueueDepth    uint64           `json:"sell_queue_depth"`
	BoostAppliedToday bool             `json:"boost_applied_today"`
	Version           string           `json:"version"`
}

// MarketService is the read-only query surface over the curve state.
type MarketService struct {
	mu               sync.RWMutex
	store            domain.Store
	premiumThreshold decimal.Decimal
	last             *Snapshot
}

// NewMarketService creates a new MarketService instance
func NewMarketService(store domain.Store, premiumThreshold decimal.Decimal) *MarketService {
	return &MarketService{
		store:            store,
		premiumThreshold: premiumThreshold,
	}
}

// Snapshot loads the curve and converts it to display scale.
func (s *MarketService) Snapshot() (*Snapshot, error) {
	c, err := s.store.LoadCurve()
	if err != nil {
		return nil, err
	}

	organic, err := engine.OrganicPrice(c)
	if err != nil {
		return nil, err
	}
	effective, err := engine.EffectivePrice(c)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		OrganicPrice:      decimal.NewFromUint64(organic).Shift(-6),
		EffectivePrice:    decimal.NewFromUint64(effective).Shift(-6),
		CumulativeBonus:   decimal.NewFromUint64(c.CumulativeBonus).Shift(-6),
		QuoteReserve:      decimal.NewFromUint64(c.QuoteReserve).Shift(-6),
		BaseReserve:       decimal.NewFromUint64(c.BaseReserve).Shift(-9),
		CirculatingSupply: decimal.NewFromUint64(c.CirculatingSupply).Shift(-9),
		TotalVolume:       decimal.NewFromUint64(c.TotalVolume).Shift(-6),
		BuyQueueDepth:     c.BuyQueueTail - c.BuyQueueHead,
		SellQueueDepth:    c.SellQueueTail - c.SellQueueHead,
		BoostAppliedToday: c.BoostAppliedToday,
		Version:           EngineVersion,
	}
	snap.PremiumPct = premiumPct(snap.OrganicPrice, snap.EffectivePrice)

	s.mu.Lock()
	s.last = snap
	s.mu.Unlock()

	return snap, nil
}

// Last returns the most recent snapshot without touching the store.
func (s *MarketService) Last() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// PremiumAlert reports whether the bonus premium has crossed the
// configured threshold. A persistently large premium means the floor is
// outrunning organic trading and deserves operator attention.
func (s *MarketService) PremiumAlert(snap *Snapshot) bool {
	if snap == nil || snap.PremiumPct == nil || s.premiumThreshold.IsZero() {
		return false
	}
	return snap.PremiumPct.GreaterThanOrEqual(s.premiumThreshold)
}

// premiumPct computes 100 * (effective - organic) / organic.
func premiumPct(organic, effective decimal.Decimal) *decimal.Decimal {
	if organic.IsZero() {
		return nil
	}
	pct := effective.Sub(organic).Div(organic).Mul(decimal.NewFromInt(100))
	return &pct
}
