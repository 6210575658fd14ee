package domain

import (
	"errors"
	"testing"

	"everdex/pkg/quant"
)

func TestNewCurve(t *testing.T) {
	c := NewCurve(12345)

	if c.ID != CurveID {
		t.Errorf("expected singleton id %d, got %d", CurveID, c.ID)
	}
	if c.QuoteReserve != quant.InitialQuoteReserve || c.BaseReserve != quant.InitialBaseReserve {
		t.Error("seed reserves wrong")
	}
	if c.LastBoostAt != 12345 {
		t.Errorf("expected LastBoostAt 12345, got %d", c.LastBoostAt)
	}
	if err := c.VerifyInvariant(); err != nil {
		t.Errorf("fresh curve invariant invalid: %v", err)
	}
	// 1e11 * 1e15 = 1e26 does not fit in 64 bits; K must round-trip wide.
	if c.Invariant().IsUint64() {
		t.Error("seed invariant should exceed 64 bits")
	}
}

func TestVerifyInvariant_DetectsCorruption(t *testing.T) {
	c := NewCurve(0)
	c.QuoteReserve += 1 // reserves mutated without recompute

	err := c.VerifyInvariant()
	if !errors.Is(err, ErrCurveCorrupted) {
		t.Errorf("expected ErrCurveCorrupted, got %v", err)
	}

	c.RecomputeInvariant()
	if err := c.VerifyInvariant(); err != nil {
		t.Errorf("recomputed invariant should verify: %v", err)
	}
}

func TestQueueCursors(t *testing.T) {
	c := NewCurve(0)
	if c.OutstandingBuys() || c.OutstandingSells() {
		t.Error("fresh curve has no outstanding orders")
	}

	c.BuyQueueTail = 3
	c.BuyQueueHead = 2
	if !c.OutstandingBuys() {
		t.Error("head < tail means outstanding buys")
	}
	c.BuyQueueHead = 3
	if c.OutstandingBuys() {
		t.Error("head == tail means drained")
	}
}

func TestSellOrderFill(t *testing.T) {
	o := &SellOrder{Seq: 1, Seller: "bob", TotalBase: 100, RemainingBase: 100, LockedPrice: 5}
	if !o.IsOpen() {
		t.Fatal("fresh order should be open")
	}

	o.Fill(40)
	if o.RemainingBase != 60 || o.Processed {
		t.Errorf("partial fill wrong: remaining=%d processed=%v", o.RemainingBase, o.Processed)
	}
	if !o.IsOpen() {
		t.Error("partially filled order stays open")
	}

	o.Fill(60)
	if o.RemainingBase != 0 || !o.Processed {
		t.Errorf("final fill wrong: remaining=%d processed=%v", o.RemainingBase, o.Processed)
	}
	if o.IsOpen() {
		t.Error("exhausted order is closed")
	}
}
