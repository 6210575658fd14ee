// Package keeper runs the maintenance side of the engine: draining the
// order queues and keeping the daily price floor current. Nothing here
// mutates state directly; decisions are submitted through the sequencer
// like any other operation.
package keeper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"everdex/internal/domain"
	"everdex/internal/engine"
	"everdex/internal/infra"
	"everdex/pkg/quant"
)

// Action is a maintenance decision made by a Policy.
type Action int

const (
	ActionProcessBuyQueue Action = iota + 1
	ActionProcessSellQueue
	ActionApplyDailyBoost
)

// String returns the string representation of Action
func (a Action) String() string {
	switch a {
	case ActionProcessBuyQueue:
		return "PROCESS_BUY_QUEUE"
	case ActionProcessSellQueue:
		return "PROCESS_SELL_QUEUE"
	case ActionApplyDailyBoost:
		return "APPLY_DAILY_BOOST"
	default:
		return "UNKNOWN"
	}
}

// Policy decides which maintenance operations to run against a curve
// snapshot. It is called synchronously by the Worker on every tick.
type Policy interface {
	Decide(c *domain.Curve, now int64) []Action
}

// DrainPolicy is the default policy: apply the boost once a day has
// elapsed, and drain one queue entry per tick, buys before sells (a
// resting sell is settled as a side effect of buy processing anyway).
type DrainPolicy struct{}

// Decide implements Policy.
func (DrainPolicy) Decide(c *domain.Curve, now int64) []Action {
	var actions []Action
	if now-c.LastBoostAt >= quant.SecondsPerDay {
		actions = append(actions, ActionApplyDailyBoost)
	}
	if c.OutstandingBuys() {
		actions = append(actions, ActionProcessBuyQueue)
	} else if c.OutstandingSells() {
		actions = append(actions, ActionProcessSellQueue)
	}
	return actions
}

// Worker periodically runs the policy and submits its actions.
type Worker struct {
	store    domain.Store
	seq      *engine.Sequencer
	clock    domain.Clock
	policy   Policy
	interval time.Duration
}

// NewWorker creates a maintenance worker.
func NewWorker(store domain.Store, seq *engine.Sequencer, clock domain.Clock, policy Policy, interval time.Duration) *Worker {
	return &Worker{
		store:    store,
		seq:      seq,
		clock:    clock,
		policy:   policy,
		interval: interval,
	}
}

// Run ticks until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	slog.Info("Keeper started", slog.Duration("interval", w.interval))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Keeper stopping...")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	c, err := w.store.LoadCurve()
	if err != nil {
		slog.Error("Keeper failed to load curve", slog.Any("error", err))
		infra.GlobalMetrics.RecordError()
		return
	}

	for _, action := range w.policy.Decide(c, w.clock.Now()) {
		res := w.seq.Submit(ctx, engine.Request{Type: opFor(action)})
		if res.Err != nil {
			// An emptied queue between snapshot and submit is expected.
			if errors.Is(res.Err, domain.ErrQueueEmpty) {
				continue
			}
			slog.Warn("Keeper action failed",
				slog.String("action", action.String()),
				slog.Any("error", res.Err))
			infra.GlobalMetrics.RecordError()
		}
	}
}

func opFor(a Action) engine.OpType {
	switch a {
	case ActionProcessBuyQueue:
		return engine.OpProcessBuyQueue
	case ActionProcessSellQueue:
		return engine.OpProcessSellQueue
	default:
		return engine.OpApplyDailyBoost
	}
}
