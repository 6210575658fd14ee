package domain

import (
	"fmt"

	"github.com/holiman/uint256"

	"everdex/pkg/quant"
	"everdex/pkg/safe"
)

// CurveID is the primary key of the singleton curve row.
const CurveID uint = 1

// Curve is the canonical bonding-curve record. There is exactly one row;
// every buy, sell, process and boost operation mutates it inside a single
// store transaction.
type Curve struct {
	ID uint `gorm:"primaryKey" json:"-"`

	QuoteReserve uint64 `json:"quote_reserve"` // X: quote units backing the pool
	BaseReserve  uint64 `json:"base_reserve"`  // Y: base tokens still in reserve
	K            []byte `json:"-"`             // X*Y, 32-byte big-endian (exceeds uint64)

	CumulativeBonus uint64 `json:"cumulative_bonus"` // never decreases
	CurrentPrice    uint64 `json:"current_price"`    // last effective price

	LastBoostAt       int64 `json:"last_boost_at"`
	BoostAppliedToday bool  `json:"boost_applied_today"`

	TotalVolume       uint64 `json:"total_volume"`       // cumulative quote volume
	CirculatingSupply uint64 `json:"circulating_supply"` // base minted out of reserve

	BuyQueueHead  uint64 `json:"buy_queue_head"`
	BuyQueueTail  uint64 `json:"buy_queue_tail"`
	SellQueueHead uint64 `json:"sell_queue_head"`
	SellQueueTail uint64 `json:"sell_queue_tail"`
}

// NewCurve creates the initial curve record with the seeded reserves.
func NewCurve(now int64) *Curve {
	c := &Curve{
		ID:           CurveID,
		QuoteReserve: quant.InitialQuoteReserve,
		BaseReserve:  quant.InitialBaseReserve,
		LastBoostAt:  now,
	}
	c.RecomputeInvariant()
	// Organic price of the seeded pool; BaseReserve is nonzero here.
	c.CurrentPrice, _ = safe.MulDiv(c.QuoteReserve, quant.PriceScale, c.BaseReserve)
	return c
}

// Invariant returns K as a wide integer.
func (c *Curve) Invariant() *uint256.Int {
	k := new(uint256.Int)
	if len(c.K) > 0 {
		k.SetBytes(c.K)
	}
	return k
}

// SetInvariant stores K.
func (c *Curve) SetInvariant(k *uint256.Int) {
	c.K = k.Bytes()
}

// RecomputeInvariant derives K from the current reserves. Must be called
// after every reserve mutation.
func (c *Curve) RecomputeInvariant() {
	c.SetInvariant(safe.MulWide(c.QuoteReserve, c.BaseReserve))
}

// VerifyInvariant checks K == QuoteReserve * BaseReserve.
func (c *Curve) VerifyInvariant() error {
	want := safe.MulWide(c.QuoteReserve, c.BaseReserve)
	if c.Invariant().Cmp(want) != 0 {
		return fmt.Errorf("%w: k=%s, x*y=%s", ErrCurveCorrupted, c.Invariant(), want)
	}
	return nil
}

// OutstandingBuys reports whether unprocessed buy orders exist.
func (c *Curve) OutstandingBuys() bool {
	return c.BuyQueueHead < c.BuyQueueTail
}

// OutstandingSells reports whether unprocessed sell orders exist.
func (c *Curve) OutstandingSells() bool {
	return c.SellQueueHead < c.SellQueueTail
}
