package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"everdex/internal/domain"
	"everdex/internal/event"
)

// OpType identifies an engine operation submitted to the Sequencer.
type OpType int

const (
	OpAtomicBuy OpType = iota + 1
	OpQueueBuy
	OpQueueSell
	OpProcessBuyQueue
	OpProcessSellQueue
	OpApplyDailyBoost
	OpEmergencyRefund
	OpBumpBuyTail
	OpBumpSellTail
	OpSkipOrphanedBuys
)

// String returns the operation name for logs.
func (t OpType) String() string {
	switch t {
	case OpAtomicBuy:
		return "ATOMIC_BUY"
	case OpQueueBuy:
		return "QUEUE_BUY"
	case OpQueueSell:
		return "QUEUE_SELL"
	case OpProcessBuyQueue:
		return "PROCESS_BUY_QUEUE"
	case OpProcessSellQueue:
		return "PROCESS_SELL_QUEUE"
	case OpApplyDailyBoost:
		return "APPLY_DAILY_BOOST"
	case OpEmergencyRefund:
		return "EMERGENCY_REFUND"
	case OpBumpBuyTail:
		return "BUMP_BUY_TAIL"
	case OpBumpSellTail:
		return "BUMP_SELL_TAIL"
	case OpSkipOrphanedBuys:
		return "SKIP_ORPHANED_BUYS"
	default:
		return "UNKNOWN"
	}
}

// Request is one operation to apply. Account/Amount/Seq/Count carry the
// arguments relevant to the op type; the rest are ignored.
type Request struct {
	Type    OpType
	Account string
	Amount  uint64
	Seq     uint64
	Count   uint64

	reply chan Result
}

// Result delivers the emitted event (may be nil for no-op maintenance
// calls) or the typed failure.
type Result struct {
	Event event.Event
	Err   error
}

// ErrSequencerClosed is returned when a request is submitted after shutdown.
var ErrSequencerClosed = errors.New("sequencer closed")

// Sequencer is the single-threaded host of the engine. Every mutation of
// the curve flows through its inbox, which is what guarantees at most one
// in-flight state transition at a time.
type Sequencer struct {
	inbox chan *Request
	ex    *Exchange
	done  chan struct{}
}

// NewSequencer creates a sequencer over the exchange.
func NewSequencer(inboxSize int, ex *Exchange) *Sequencer {
	return &Sequencer{
		inbox: make(chan *Request, inboxSize),
		ex:    ex,
		done:  make(chan struct{}),
	}
}

// Submit sends a request and waits for its result.
func (s *Sequencer) Submit(ctx context.Context, req Request) Result {
	req.reply = make(chan Result, 1)
	select {
	case <-ctx.Done():
		return Result{Err: ctx.Err()}
	case <-s.done:
		return Result{Err: ErrSequencerClosed}
	case s.inbox <- &req:
	}
	select {
	case <-ctx.Done():
		return Result{Err: ctx.Err()}
	case <-s.done:
		// Shutdown may race an accepted request; the loop will not
		// dispatch it anymore.
		select {
		case res := <-req.reply:
			return res
		default:
			return Result{Err: ErrSequencerClosed}
		}
	case res := <-req.reply:
		return res
	}
}

// Run starts the main loop. This MUST be run in a single goroutine.
func (s *Sequencer) Run(ctx context.Context) {
	slog.Info("Sequencer started (Single-Thread Hotpath)")

	defer func() {
		if r := recover(); r != nil {
			slog.Error("CRITICAL_PANIC_DETECTED", slog.Any("panic", r))
			s.DumpState("panic_dump.json")
			// Corrupted engine state must not keep serving; halt after dump.
			panic(fmt.Sprintf("HALTED: %v", r))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Sequencer stopping...")
			close(s.done)
			return
		case req := <-s.inbox:
			req.reply <- s.dispatch(req)
		}
	}
}

func (s *Sequencer) dispatch(req *Request) Result {
	var (
		ev  event.Event
		err error
	)
	switch req.Type {
	case OpAtomicBuy:
		ev, err = nilable(s.ex.AtomicBuy(req.Account, req.Amount))
	case OpQueueBuy:
		ev, err = nilable(s.ex.QueueBuy(req.Account, req.Amount))
	case OpQueueSell:
		ev, err = nilable(s.ex.QueueSell(req.Account, req.Amount))
	case OpProcessBuyQueue:
		ev, err = nilable(s.ex.ProcessBuyQueue())
	case OpProcessSellQueue:
		ev, err = nilable(s.ex.ProcessSellQueue())
	case OpApplyDailyBoost:
		ev, err = nilable(s.ex.ApplyDailyBoost())
	case OpEmergencyRefund:
		ev, err = nilable(s.ex.EmergencyRefund(req.Account, req.Seq))
	case OpBumpBuyTail:
		ev, err = nilable(s.ex.BumpBuyTail())
	case OpBumpSellTail:
		ev, err = nilable(s.ex.BumpSellTail())
	case OpSkipOrphanedBuys:
		ev, err = nilable(s.ex.SkipOrphanedBuyOrders(req.Count))
	default:
		err = fmt.Errorf("unknown op type %d", req.Type)
	}

	if err != nil {
		if domain.IsRetriable(err) {
			slog.Warn("Operation failed, caller may retry",
				slog.String("op", req.Type.String()),
				slog.Any("error", err))
		} else {
			slog.Warn("Operation rejected",
				slog.String("op", req.Type.String()),
				slog.Any("error", err))
		}
	}
	return Result{Event: ev, Err: err}
}

// nilable collapses a typed nil event pointer into a nil interface.
func nilable[E event.Event](ev E, err error) (event.Event, error) {
	var zero E
	if any(ev) == any(zero) {
		return nil, err
	}
	return ev, err
}

// DumpState writes the curve snapshot to a file (for post-mortem).
func (s *Sequencer) DumpState(filename string) {
	slog.Info("Dumping engine state...", slog.String("file", filename))

	curve, err := s.ex.Snapshot()
	if err != nil {
		slog.Error("Failed to load curve for dump", slog.Any("error", err))
		return
	}

	b, err := json.MarshalIndent(curve, "", "  ")
	if err != nil {
		slog.Error("Failed to marshal state", slog.Any("error", err))
		return
	}

	if err := os.WriteFile(filename, b, 0644); err != nil {
		slog.Error("Failed to write state dump", slog.Any("error", err))
	}
}
