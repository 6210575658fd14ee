package engine

import (
	"errors"
	"testing"

	"everdex/internal/domain"
)

func TestEmergencyRefund_BeforeTimeout(t *testing.T) {
	ex, store, clock := setupExchange(t)
	fund(t, store, "alice", domain.AssetQuote, 100_000_000)

	ev, err := ex.QueueBuy("alice", 10_000_000)
	if err != nil {
		t.Fatalf("QueueBuy failed: %v", err)
	}

	clock.Advance(3599)
	if _, err := ex.EmergencyRefund("alice", ev.QueuePosition); !errors.Is(err, domain.ErrRefundNotReady) {
		t.Fatalf("expected ErrRefundNotReady, got %v", err)
	}

	// The failed claim must leave the order live and the escrow intact.
	err = store.Atomic(func(tx domain.Tx) error {
		o, err := tx.BuyOrder(ev.QueuePosition)
		if err != nil {
			return err
		}
		if o.Processed {
			t.Error("rejected refund must not mark the order processed")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("order lookup failed: %v", err)
	}
	if got := balance(t, store, domain.AccountCustody, domain.AssetQuote); got != 10_000_000 {
		t.Errorf("escrow should be untouched, got %d", got)
	}
}

func TestEmergencyRefund_AfterTimeout(t *testing.T) {
	ex, store, clock := setupExchange(t)
	fund(t, store, "alice", domain.AssetQuote, 100_000_000)

	ev, err := ex.QueueBuy("alice", 10_000_000)
	if err != nil {
		t.Fatalf("QueueBuy failed: %v", err)
	}

	clock.Advance(3600)
	refund, err := ex.EmergencyRefund("alice", ev.QueuePosition)
	if err != nil {
		t.Fatalf("EmergencyRefund failed: %v", err)
	}
	if refund.QuoteAmount != 10_000_000 {
		t.Errorf("expected refund of 10000000, got %d", refund.QuoteAmount)
	}
	if refund.TimeElapsed < 3600 {
		t.Errorf("expected elapsed >= 3600, got %d", refund.TimeElapsed)
	}

	if got := balance(t, store, "alice", domain.AssetQuote); got != 100_000_000 {
		t.Errorf("buyer should be made whole, got %d", got)
	}
	if got := balance(t, store, domain.AccountCustody, domain.AssetQuote); got != 0 {
		t.Errorf("escrow should be released, got %d", got)
	}

	// Head advances past the refunded order so the queue is not stuck.
	c, _ := ex.Snapshot()
	if c.OutstandingBuys() {
		t.Error("refunded head order should release the cursor")
	}

	// Replays are rejected.
	if _, err := ex.EmergencyRefund("alice", ev.QueuePosition); !errors.Is(err, domain.ErrOrderProcessed) {
		t.Errorf("expected ErrOrderProcessed on replay, got %v", err)
	}
}

func TestEmergencyRefund_WrongCaller(t *testing.T) {
	ex, store, clock := setupExchange(t)
	fund(t, store, "alice", domain.AssetQuote, 100_000_000)

	ev, err := ex.QueueBuy("alice", 10_000_000)
	if err != nil {
		t.Fatalf("QueueBuy failed: %v", err)
	}

	clock.Advance(7200)
	if _, err := ex.EmergencyRefund("mallory", ev.QueuePosition); !errors.Is(err, domain.ErrInvalidBuyer) {
		t.Errorf("expected ErrInvalidBuyer, got %v", err)
	}
}

func TestEmergencyRefund_UnknownOrder(t *testing.T) {
	ex, _, _ := setupExchange(t)
	if _, err := ex.EmergencyRefund("alice", 99); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Errorf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestBumpTails(t *testing.T) {
	ex, _, _ := setupExchange(t)

	ev, err := ex.BumpBuyTail()
	if err != nil {
		t.Fatalf("BumpBuyTail failed: %v", err)
	}
	if ev.Queue != "buy" || ev.Cursor != "tail" || ev.From != 0 || ev.To != 1 {
		t.Errorf("unexpected skip event: %+v", ev)
	}

	ev, err = ex.BumpSellTail()
	if err != nil {
		t.Fatalf("BumpSellTail failed: %v", err)
	}
	if ev.Queue != "sell" || ev.To != 1 {
		t.Errorf("unexpected skip event: %+v", ev)
	}

	c, _ := ex.Snapshot()
	if c.BuyQueueTail != 1 || c.SellQueueTail != 1 {
		t.Errorf("expected tails at 1, got buy=%d sell=%d", c.BuyQueueTail, c.SellQueueTail)
	}
}

func TestSkipOrphanedBuyOrders(t *testing.T) {
	ex, store, _ := setupExchange(t)
	fund(t, store, "alice", domain.AssetQuote, 100_000_000)

	// Slots 0 and 1 are allocated but hold no order records.
	if _, err := ex.BumpBuyTail(); err != nil {
		t.Fatalf("BumpBuyTail failed: %v", err)
	}
	if _, err := ex.BumpBuyTail(); err != nil {
		t.Fatalf("BumpBuyTail failed: %v", err)
	}
	// Slot 2 holds a live order.
	if _, err := ex.QueueBuy("alice", 10_000_000); err != nil {
		t.Fatalf("QueueBuy failed: %v", err)
	}

	// Asking for more than exists stops at the live order.
	ev, err := ex.SkipOrphanedBuyOrders(10)
	if err != nil {
		t.Fatalf("SkipOrphanedBuyOrders failed: %v", err)
	}
	if ev.Skipped != 2 {
		t.Errorf("expected 2 skipped, got %d", ev.Skipped)
	}
	if ev.From != 0 || ev.To != 2 {
		t.Errorf("expected head 0 -> 2, got %d -> %d", ev.From, ev.To)
	}

	c, _ := ex.Snapshot()
	if c.BuyQueueHead != 2 {
		t.Errorf("expected head at 2, got %d", c.BuyQueueHead)
	}
	// The live order must still be processable.
	if _, err := ex.ProcessBuyQueue(); err != nil {
		t.Fatalf("live order should survive the skip: %v", err)
	}
}

func TestSkipOrphanedBuyOrders_Validation(t *testing.T) {
	ex, store, _ := setupExchange(t)
	fund(t, store, "alice", domain.AssetQuote, 100_000_000)

	if _, err := ex.SkipOrphanedBuyOrders(0); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Errorf("zero count: expected ErrInvalidAmount, got %v", err)
	}

	// Head points at a live order: nothing skippable.
	if _, err := ex.QueueBuy("alice", 10_000_000); err != nil {
		t.Fatalf("QueueBuy failed: %v", err)
	}
	if _, err := ex.SkipOrphanedBuyOrders(1); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Errorf("live head: expected ErrOrderNotFound, got %v", err)
	}
}
