package infra

import (
	"sync/atomic"
	"time"

	"everdex/internal/event"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	atomicBuys     atomic.Uint64
	queuedBuys     atomic.Uint64
	queuedSells    atomic.Uint64
	buysProcessed  atomic.Uint64
	sellsProcessed atomic.Uint64
	boostsApplied  atomic.Uint64
	refundsIssued  atomic.Uint64
	slotsSkipped   atomic.Uint64
	errorsTotal    atomic.Uint64

	// Volume split by settlement path (quote smallest units)
	queueVolume   atomic.Uint64
	reserveVolume atomic.Uint64

	// Gauges
	activeSubscribers atomic.Int32
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordEvent updates the counters for one journaled engine event.
func (m *Metrics) RecordEvent(ev event.Event) {
	switch e := ev.(type) {
	case *event.AtomicBuyEvent:
		m.atomicBuys.Add(1)
		m.reserveVolume.Add(e.QuoteAmount)
	case *event.BuyQueueEvent:
		m.queuedBuys.Add(1)
	case *event.SellQueueEvent:
		m.queuedSells.Add(1)
	case *event.BuyProcessedEvent:
		m.buysProcessed.Add(1)
		m.queueVolume.Add(e.QueueQuote)
		m.reserveVolume.Add(e.ReserveQuote)
	case *event.SellProcessedEvent:
		m.sellsProcessed.Add(1)
	case *event.DailyBoostEvent:
		m.boostsApplied.Add(1)
	case *event.EmergencyRefundEvent:
		m.refundsIssued.Add(1)
	case *event.QueueSkipEvent:
		m.slotsSkipped.Add(e.Skipped)
	}
}

// RecordError records a rejected operation.
func (m *Metrics) RecordError() {
	m.errorsTotal.Add(1)
}

// IncrementSubscribers increments active feed subscribers by 1.
func (m *Metrics) IncrementSubscribers() {
	m.activeSubscribers.Add(1)
}

// DecrementSubscribers decrements active feed subscribers by 1.
func (m *Metrics) DecrementSubscribers() {
	m.activeSubscribers.Add(-1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	AtomicBuys        uint64
	QueuedBuys        uint64
	QueuedSells       uint64
	BuysProcessed     uint64
	SellsProcessed    uint64
	BoostsApplied     uint64
	RefundsIssued     uint64
	SlotsSkipped      uint64
	ErrorsTotal       uint64
	QueueVolume       uint64
	ReserveVolume     uint64
	ActiveSubscribers int32
	Timestamp         time.Time
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		AtomicBuys:        m.atomicBuys.Load(),
		QueuedBuys:        m.queuedBuys.Load(),
		QueuedSells:       m.queuedSells.Load(),
		BuysProcessed:     m.buysProcessed.Load(),
		SellsProcessed:    m.sellsProcessed.Load(),
		BoostsApplied:     m.boostsApplied.Load(),
		RefundsIssued:     m.refundsIssued.Load(),
		SlotsSkipped:      m.slotsSkipped.Load(),
		ErrorsTotal:       m.errorsTotal.Load(),
		QueueVolume:       m.queueVolume.Load(),
		ReserveVolume:     m.reserveVolume.Load(),
		ActiveSubscribers: m.activeSubscribers.Load(),
		Timestamp:         time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.atomicBuys.Store(0)
	m.queuedBuys.Store(0)
	m.queuedSells.Store(0)
	m.buysProcessed.Store(0)
	m.sellsProcessed.Store(0)
	m.boostsApplied.Store(0)
	m.refundsIssued.Store(0)
	m.slotsSkipped.Store(0)
	m.errorsTotal.Store(0)
	m.queueVolume.Store(0)
	m.reserveVolume.Store(0)
	m.activeSubscribers.Store(0)
}
