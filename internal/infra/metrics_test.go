package infra

import (
	"testing"

	"everdex/internal/event"
)

func TestMetrics_RecordEvent(t *testing.T) {
	m := &Metrics{}

	m.RecordEvent(&event.AtomicBuyEvent{QuoteAmount: 500})
	m.RecordEvent(&event.BuyQueueEvent{})
	m.RecordEvent(&event.SellQueueEvent{})
	m.RecordEvent(&event.BuyProcessedEvent{QueueQuote: 100, ReserveQuote: 200})
	m.RecordEvent(&event.SellProcessedEvent{})
	m.RecordEvent(&event.DailyBoostEvent{})
	m.RecordEvent(&event.EmergencyRefundEvent{})
	m.RecordEvent(&event.QueueSkipEvent{Skipped: 3})

	snap := m.Snapshot()
	if snap.AtomicBuys != 1 {
		t.Errorf("expected 1 atomic buy, got %d", snap.AtomicBuys)
	}
	if snap.QueuedBuys != 1 || snap.QueuedSells != 1 {
		t.Errorf("expected 1/1 queued, got %d/%d", snap.QueuedBuys, snap.QueuedSells)
	}
	if snap.BuysProcessed != 1 || snap.SellsProcessed != 1 {
		t.Errorf("expected 1/1 processed, got %d/%d", snap.BuysProcessed, snap.SellsProcessed)
	}
	if snap.BoostsApplied != 1 || snap.RefundsIssued != 1 {
		t.Errorf("expected 1/1 boost/refund, got %d/%d", snap.BoostsApplied, snap.RefundsIssued)
	}
	if snap.SlotsSkipped != 3 {
		t.Errorf("expected 3 slots skipped, got %d", snap.SlotsSkipped)
	}
	// Atomic buy and the reserve-settled split both count as reserve volume.
	if snap.ReserveVolume != 700 {
		t.Errorf("expected reserve volume 700, got %d", snap.ReserveVolume)
	}
	if snap.QueueVolume != 100 {
		t.Errorf("expected queue volume 100, got %d", snap.QueueVolume)
	}
}

func TestMetrics_SubscriberGauge(t *testing.T) {
	m := &Metrics{}
	m.IncrementSubscribers()
	m.IncrementSubscribers()
	m.DecrementSubscribers()

	if got := m.Snapshot().ActiveSubscribers; got != 1 {
		t.Errorf("expected 1 subscriber, got %d", got)
	}
}

func TestMetrics_Reset(t *testing.T) {
	m := &Metrics{}
	m.RecordError()
	m.RecordError()
	if got := m.Snapshot().ErrorsTotal; got != 2 {
		t.Fatalf("expected 2 errors, got %d", got)
	}

	m.Reset()
	if got := m.Snapshot().ErrorsTotal; got != 0 {
		t.Errorf("expected reset to clear errors, got %d", got)
	}
}
