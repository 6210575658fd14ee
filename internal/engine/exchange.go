package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"everdex/internal/domain"
	"everdex/internal/event"
	"everdex/pkg/quant"
	"everdex/pkg/safe"
)

// Limits bounds single transactions to contain blast radius.
type Limits struct {
	MinQuote      uint64 // smallest accepted quote amount
	MaxQuote      uint64 // per-transaction quote cap
	MinBase       uint64 // smallest accepted base amount
	MaxBase       uint64 // per-transaction base cap
	RefundTimeout int64  // seconds before a stuck buy becomes refundable
}

// DefaultLimits returns the production bounds.
func DefaultLimits() Limits {
	return Limits{
		MinQuote:      1_000_000,          // 1 quote unit
		MaxQuote:      10_000_000_000,     // 10,000 quote units
		MinBase:       1_000_000_000,      // 1 base token
		MaxBase:       10_000_000_000_000, // 10,000 base tokens
		RefundTimeout: 3_600,
	}
}

// Exchange is the matching engine. All public operations are sequential
// state transitions over the store; callers must serialize them (the
// Sequencer provides that guarantee in production). Each operation either
// commits fully or leaves every record untouched.
type Exchange struct {
	store   domain.Store
	clock   domain.Clock
	limits  Limits
	nextSeq uint64

	// Boundary: fanout for journaled events (websocket hub, metrics).
	onEvent func(event.Event)
}

// NewExchange creates an engine over the given store and clock.
func NewExchange(store domain.Store, clock domain.Clock, limits Limits, onEvent func(event.Event)) *Exchange {
	return &Exchange{
		store:   store,
		clock:   clock,
		limits:  limits,
		nextSeq: 1,
		onEvent: onEvent,
	}
}

// Snapshot returns a read-only copy of the curve.
func (e *Exchange) Snapshot() (*domain.Curve, error) {
	return e.store.LoadCurve()
}

// Initialize creates the curve singleton and seeds the reserve account
// with the distributable base supply. Fails if already initialized.
func (e *Exchange) Initialize() error {
	now := e.clock.Now()
	err := e.store.Atomic(func(tx domain.Tx) error {
		c := domain.NewCurve(now)
		if err := tx.CreateCurve(c); err != nil {
			return err
		}
		return tx.Deposit(domain.AccountReserve, domain.AssetBase, c.BaseReserve)
	})
	if err != nil {
		return err
	}
	slog.Info("Curve initialized",
		slog.Uint64("quote_reserve", quant.InitialQuoteReserve),
		slog.Uint64("base_reserve", quant.InitialBaseReserve))
	return nil
}

// AtomicBuy settles a buy directly against the reserves in one step. This
// path never touches the queue.
func (e *Exchange) AtomicBuy(buyer string, quoteAmount uint64) (*event.AtomicBuyEvent, error) {
	if err := e.validateQuote(quoteAmount); err != nil {
		return nil, err
	}

	var (
		ev      *event.AtomicBuyEvent
		boostEv event.Event
	)
	err := e.store.Atomic(func(tx domain.Tx) error {
		c, err := tx.Curve()
		if err != nil {
			return err
		}
		now := e.clock.Now()

		boostEv, err = e.boost(tx, c, now)
		if err != nil {
			return err
		}

		tokens, err := QuoteToBase(c, quoteAmount)
		if err != nil {
			return err
		}
		if tokens == 0 {
			return fmt.Errorf("%w: buy yields no tokens", domain.ErrInvalidAmount)
		}
		avail, err := tx.Balance(domain.AccountReserve, domain.AssetBase)
		if err != nil {
			return err
		}
		if avail < tokens {
			return domain.ErrInsufficientLiquidity
		}

		if err := tx.Transfer(buyer, domain.AccountTreasury, domain.AssetQuote, quoteAmount); err != nil {
			return ledgerErr("buy payment", err)
		}
		if err := tx.Transfer(domain.AccountReserve, buyer, domain.AssetBase, tokens); err != nil {
			return ledgerErr("buy distribution", err)
		}

		if err := e.applyReserveBuy(c, quoteAmount, tokens); err != nil {
			return err
		}
		price, err := EffectivePrice(c)
		if err != nil {
			return err
		}
		c.CurrentPrice = price
		if err := tx.SaveCurve(c); err != nil {
			return err
		}

		ev = &event.AtomicBuyEvent{
			BaseEvent:    e.stamp(now),
			Buyer:        buyer,
			QuoteAmount:  quoteAmount,
			BaseReceived: tokens,
			NewPrice:     price,
		}
		return e.journal(tx, boostEv, ev)
	})
	if err != nil {
		return nil, err
	}
	e.publish(boostEv, ev)
	return ev, nil
}

// QueueBuy escrows a buy into the FIFO queue for later processing. The
// estimated token amount is advisory; settlement re-derives everything
// from the state at processing time.
func (e *Exchange) QueueBuy(buyer string, quoteAmount uint64) (*event.BuyQueueEvent, error) {
	if err := e.validateQuote(quoteAmount); err != nil {
		return nil, err
	}

	var (
		ev      *event.BuyQueueEvent
		boostEv event.Event
	)
	err := e.store.Atomic(func(tx domain.Tx) error {
		c, err := tx.Curve()
		if err != nil {
			return err
		}
		now := e.clock.Now()

		boostEv, err = e.boost(tx, c, now)
		if err != nil {
			return err
		}

		expected, err := QuoteToBase(c, quoteAmount)
		if err != nil {
			return err
		}

		order := &domain.BuyOrder{
			Seq:          c.BuyQueueTail,
			Buyer:        buyer,
			QuoteAmount:  quoteAmount,
			ExpectedBase: expected,
			CreatedAt:    now,
		}
		if err := tx.CreateBuyOrder(order); err != nil {
			return err
		}
		c.BuyQueueTail, err = safe.Add(c.BuyQueueTail, 1)
		if err != nil {
			return domain.ErrMathOverflow
		}

		if err := tx.Transfer(buyer, domain.AccountCustody, domain.AssetQuote, quoteAmount); err != nil {
			return ledgerErr("buy escrow", err)
		}
		if err := tx.SaveCurve(c); err != nil {
			return err
		}

		ev = &event.BuyQueueEvent{
			BaseEvent:     e.stamp(now),
			Buyer:         buyer,
			QuoteAmount:   quoteAmount,
			EstimatedBase: expected,
			QueuePosition: order.Seq,
		}
		return e.journal(tx, boostEv, ev)
	})
	if err != nil {
		return nil, err
	}
	e.publish(boostEv, ev)
	return ev, nil
}

// QueueSell escrows base tokens into the FIFO sell queue. The effective
// price at insertion is locked for all later settlement of this order;
// the seller bears curve drift while queued.
func (e *Exchange) QueueSell(seller string, baseAmount uint64) (*event.SellQueueEvent, error) {
	if err := e.validateBase(baseAmount); err != nil {
		return nil, err
	}

	var (
		ev      *event.SellQueueEvent
		boostEv event.Event
	)
	err := e.store.Atomic(func(tx domain.Tx) error {
		c, err := tx.Curve()
		if err != nil {
			return err
		}
		now := e.clock.Now()

		boostEv, err = e.boost(tx, c, now)
		if err != nil {
			return err
		}

		locked, err := EffectivePrice(c)
		if err != nil {
			return err
		}
		if locked == 0 {
			return domain.ErrPriceCalculation
		}
		// No point queueing against an empty pool.
		if c.QuoteReserve == 0 || c.BaseReserve == 0 {
			return domain.ErrInsufficientLiquidity
		}

		order := &domain.SellOrder{
			Seq:           c.SellQueueTail,
			Seller:        seller,
			TotalBase:     baseAmount,
			RemainingBase: baseAmount,
			LockedPrice:   locked,
			CreatedAt:     now,
		}
		if err := tx.CreateSellOrder(order); err != nil {
			return err
		}
		c.SellQueueTail, err = safe.Add(c.SellQueueTail, 1)
		if err != nil {
			return domain.ErrMathOverflow
		}

		if err := tx.Transfer(seller, domain.AccountCustody, domain.AssetBase, baseAmount); err != nil {
			return ledgerErr("sell escrow", err)
		}
		if err := tx.SaveCurve(c); err != nil {
			return err
		}

		ev = &event.SellQueueEvent{
			BaseEvent:     e.stamp(now),
			Seller:        seller,
			BaseAmount:    baseAmount,
			LockedPrice:   locked,
			QueuePosition: order.Seq,
		}
		return e.journal(tx, boostEv, ev)
	})
	if err != nil {
		return nil, err
	}
	e.publish(boostEv, ev)
	return ev, nil
}

// ProcessBuyQueue drains the oldest buy order: first against the oldest
// open sell order at its locked price (full or partial fill), then any
// remainder against the reserves like an atomic buy. Queue-matched volume
// earns the appreciation bonus; the reserve-settled portion does not.
func (e *Exchange) ProcessBuyQueue() (*event.BuyProcessedEvent, error) {
	var (
		ev      *event.BuyProcessedEvent
		sellEvs []event.Event
	)
	err := e.store.Atomic(func(tx domain.Tx) error {
		c, err := tx.Curve()
		if err != nil {
			return err
		}
		if !c.OutstandingBuys() {
			return domain.ErrQueueEmpty
		}
		order, err := tx.BuyOrder(c.BuyQueueHead)
		if err != nil {
			return err
		}
		if order.Processed {
			return domain.ErrOrderProcessed
		}
		now := e.clock.Now()

		remaining := order.QuoteAmount
		var queueQuote, reserveQuote, baseTokens, pendingBonus uint64

		// Phase 1: match against the oldest open sell order.
		if c.OutstandingSells() {
			sell, err := tx.SellOrder(c.SellQueueHead)
			if err != nil && !errors.Is(err, domain.ErrOrderNotFound) {
				return err
			}
			if err == nil && sell.IsOpen() {
				quoteForSell, err := quant.BaseToQuote(sell.RemainingBase, sell.LockedPrice)
				if err != nil {
					return fmt.Errorf("%w: sell valuation", domain.ErrMathOverflow)
				}

				if quoteForSell <= remaining {
					// Full fill of the resting sell.
					filled := sell.RemainingBase
					if err := tx.Transfer(domain.AccountCustody, sell.Seller, domain.AssetQuote, quoteForSell); err != nil {
						return ledgerErr("seller payout", err)
					}
					if err := tx.Transfer(domain.AccountCustody, order.Buyer, domain.AssetBase, filled); err != nil {
						return ledgerErr("buyer delivery", err)
					}
					remaining -= quoteForSell
					queueQuote = quoteForSell
					baseTokens += filled
					pendingBonus += AppreciationBonus(quoteForSell, sell.LockedPrice)

					sell.Fill(filled)
					if err := tx.SaveSellOrder(sell); err != nil {
						return err
					}
					c.SellQueueHead, err = safe.Add(c.SellQueueHead, 1)
					if err != nil {
						return domain.ErrMathOverflow
					}
					sellEvs = append(sellEvs, &event.SellProcessedEvent{
						BaseEvent:      e.stamp(now),
						Seller:         sell.Seller,
						BaseAmount:     filled,
						QuoteAmount:    quoteForSell,
						LockedPrice:    sell.LockedPrice,
						ProcessingType: event.ProcessingQueueMatch,
					})
				} else {
					// Partial fill: the buy is exhausted, the sell stays queued.
					baseForPartial, err := quant.QuoteToBase(remaining, sell.LockedPrice)
					if err != nil {
						return fmt.Errorf("%w: partial fill", domain.ErrMathOverflow)
					}
					if baseForPartial > sell.RemainingBase {
						baseForPartial = sell.RemainingBase
					}
					if err := tx.Transfer(domain.AccountCustody, sell.Seller, domain.AssetQuote, remaining); err != nil {
						return ledgerErr("seller payout", err)
					}
					if err := tx.Transfer(domain.AccountCustody, order.Buyer, domain.AssetBase, baseForPartial); err != nil {
						return ledgerErr("buyer delivery", err)
					}
					queueQuote = remaining
					baseTokens += baseForPartial
					pendingBonus += AppreciationBonus(remaining, sell.LockedPrice)

					sell.Fill(baseForPartial)
					if err := tx.SaveSellOrder(sell); err != nil {
						return err
					}
					if sell.Processed {
						// Rounding consumed the whole order; release the cursor.
						c.SellQueueHead, err = safe.Add(c.SellQueueHead, 1)
						if err != nil {
							return domain.ErrMathOverflow
						}
					}
					sellEvs = append(sellEvs, &event.SellProcessedEvent{
						BaseEvent:      e.stamp(now),
						Seller:         sell.Seller,
						BaseAmount:     baseForPartial,
						QuoteAmount:    remaining,
						LockedPrice:    sell.LockedPrice,
						ProcessingType: event.ProcessingQueueMatch,
					})
					remaining = 0
				}
			}
		}

		// Phase 2: settle the remainder against the reserves.
		if remaining > 0 {
			tokens, err := QuoteToBase(c, remaining)
			if err != nil {
				return err
			}
			avail, err := tx.Balance(domain.AccountReserve, domain.AssetBase)
			if err != nil {
				return err
			}
			// Defensive clamp: never move more than the reserve holds; a
			// zero transfer is a no-op, not a failure.
			if tokens > avail {
				tokens = avail
			}
			if err := tx.Transfer(domain.AccountCustody, domain.AccountTreasury, domain.AssetQuote, remaining); err != nil {
				return ledgerErr("reserve payment", err)
			}
			if tokens > 0 {
				if err := tx.Transfer(domain.AccountReserve, order.Buyer, domain.AssetBase, tokens); err != nil {
					return ledgerErr("buyer delivery", err)
				}
			}
			if err := e.applyReserveBuy(c, remaining, tokens); err != nil {
				return err
			}
			reserveQuote = remaining
			baseTokens += tokens
		}

		c.CumulativeBonus, err = safe.Add(c.CumulativeBonus, pendingBonus)
		if err != nil {
			return domain.ErrMathOverflow
		}
		// The reserve-settled slice is booked by applyReserveBuy; the
		// queue-matched slice still counts toward traded volume.
		c.TotalVolume, err = safe.Add(c.TotalVolume, queueQuote)
		if err != nil {
			return domain.ErrMathOverflow
		}
		order.Processed = true
		if err := tx.SaveBuyOrder(order); err != nil {
			return err
		}
		c.BuyQueueHead, err = safe.Add(c.BuyQueueHead, 1)
		if err != nil {
			return domain.ErrMathOverflow
		}
		if err := tx.SaveCurve(c); err != nil {
			return err
		}

		ev = &event.BuyProcessedEvent{
			BaseEvent:    e.stamp(now),
			Buyer:        order.Buyer,
			QuoteAmount:  order.QuoteAmount,
			BaseTokens:   baseTokens,
			QueueQuote:   queueQuote,
			ReserveQuote: reserveQuote,
		}
		evs := append(append([]event.Event{}, sellEvs...), ev)
		return e.journal(tx, evs...)
	})
	if err != nil {
		return nil, err
	}
	e.publish(append(sellEvs, ev)...)
	return ev, nil
}

// ProcessSellQueue settles the oldest sell order against the reserves at
// its locked price, but only when no buy orders are outstanding: an
// outstanding buy is expected to consume this sell via ProcessBuyQueue,
// so the call is a deliberate no-op then (nil event, nil error).
func (e *Exchange) ProcessSellQueue() (*event.SellProcessedEvent, error) {
	var ev *event.SellProcessedEvent
	err := e.store.Atomic(func(tx domain.Tx) error {
		c, err := tx.Curve()
		if err != nil {
			return err
		}
		if !c.OutstandingSells() {
			return domain.ErrQueueEmpty
		}
		sell, err := tx.SellOrder(c.SellQueueHead)
		if err != nil {
			return err
		}
		if !sell.IsOpen() {
			return domain.ErrOrderProcessed
		}
		if c.OutstandingBuys() {
			// Left for ProcessBuyQueue to match.
			return nil
		}
		now := e.clock.Now()

		// Maximum base the quote reserve can absorb at the locked price.
		maxBase, err := quant.QuoteToBase(c.QuoteReserve, sell.LockedPrice)
		if err != nil {
			return fmt.Errorf("%w: absorption limit", domain.ErrMathOverflow)
		}
		fill := sell.RemainingBase
		if maxBase < fill {
			fill = maxBase
		}
		if fill == 0 {
			// Reserve cannot absorb anything right now.
			return nil
		}
		quoteOut, err := quant.BaseToQuote(fill, sell.LockedPrice)
		if err != nil {
			return fmt.Errorf("%w: sell valuation", domain.ErrMathOverflow)
		}

		if err := tx.Transfer(domain.AccountTreasury, sell.Seller, domain.AssetQuote, quoteOut); err != nil {
			return ledgerErr("seller payout", err)
		}
		if err := tx.Transfer(domain.AccountCustody, domain.AccountSink, domain.AssetBase, fill); err != nil {
			return ledgerErr("base retirement", err)
		}

		c.QuoteReserve, err = safe.Sub(c.QuoteReserve, quoteOut)
		if err != nil {
			return domain.ErrMathOverflow
		}
		c.BaseReserve, err = safe.Add(c.BaseReserve, fill)
		if err != nil {
			return domain.ErrMathOverflow
		}
		c.RecomputeInvariant()

		sell.Fill(fill)
		if err := tx.SaveSellOrder(sell); err != nil {
			return err
		}
		if sell.Processed {
			c.SellQueueHead, err = safe.Add(c.SellQueueHead, 1)
			if err != nil {
				return domain.ErrMathOverflow
			}
		}
		if err := tx.SaveCurve(c); err != nil {
			return err
		}

		ev = &event.SellProcessedEvent{
			BaseEvent:      e.stamp(now),
			Seller:         sell.Seller,
			BaseAmount:     fill,
			QuoteAmount:    quoteOut,
			LockedPrice:    sell.LockedPrice,
			ProcessingType: event.ProcessingReserveSettled,
		}
		return e.journal(tx, ev)
	})
	if err != nil {
		return nil, err
	}
	if ev != nil {
		e.publish(ev)
	}
	return ev, nil
}

// ApplyDailyBoost exposes the price floor for out-of-band invocation.
// Idempotent within the same day: the second call returns (nil, nil).
func (e *Exchange) ApplyDailyBoost() (*event.DailyBoostEvent, error) {
	var ev *event.DailyBoostEvent
	err := e.store.Atomic(func(tx domain.Tx) error {
		c, err := tx.Curve()
		if err != nil {
			return err
		}
		now := e.clock.Now()
		res, err := ApplyDailyBoost(c, now)
		if err != nil {
			return err
		}
		if res == nil {
			return nil
		}
		if err := tx.SaveCurve(c); err != nil {
			return err
		}
		ev = e.boostEvent(res, now)
		return e.journal(tx, ev)
	})
	if err != nil {
		return nil, err
	}
	if ev != nil {
		e.publish(ev)
	}
	return ev, nil
}

// ======================================================================================
// Internal helpers
// ======================================================================================

// ledgerErr classifies a failed balance movement. Insufficient funds is
// a terminal rejection; anything else came from the store itself and a
// retry of the whole operation can succeed.
func ledgerErr(op string, err error) error {
	return &domain.LedgerError{
		Op:        op,
		Err:       err,
		Retriable: !errors.Is(err, domain.ErrInsufficientFunds),
	}
}

// applyReserveBuy books a reserve-settled buy portion into the curve:
// quote in, base out, invariant recomputed, volume and supply advanced.
func (e *Exchange) applyReserveBuy(c *domain.Curve, quoteIn, baseOut uint64) error {
	var err error
	c.QuoteReserve, err = safe.Add(c.QuoteReserve, quoteIn)
	if err != nil {
		return domain.ErrMathOverflow
	}
	c.BaseReserve, err = safe.Sub(c.BaseReserve, baseOut)
	if err != nil {
		return domain.ErrPriceCalculation
	}
	c.RecomputeInvariant()
	c.CirculatingSupply, err = safe.Add(c.CirculatingSupply, baseOut)
	if err != nil {
		return domain.ErrMathOverflow
	}
	c.TotalVolume, err = safe.Add(c.TotalVolume, quoteIn)
	if err != nil {
		return domain.ErrMathOverflow
	}
	return nil
}

// boost applies the daily floor inside a mutating operation and journals
// the resulting event, if any.
func (e *Exchange) boost(tx domain.Tx, c *domain.Curve, now int64) (event.Event, error) {
	res, err := ApplyDailyBoost(c, now)
	if err != nil || res == nil {
		return nil, err
	}
	return e.boostEvent(res, now), nil
}

func (e *Exchange) boostEvent(res *BoostResult, now int64) *event.DailyBoostEvent {
	return &event.DailyBoostEvent{
		BaseEvent:    e.stamp(now),
		OrganicPrice: res.OrganicPrice,
		MinimumPrice: res.MinimumPrice,
		FinalPrice:   res.FinalPrice,
		DaysPassed:   res.DaysPassed,
		BoostAmount:  res.BoostAmount,
	}
}

func (e *Exchange) validateQuote(amount uint64) error {
	if amount == 0 || amount < e.limits.MinQuote {
		return domain.ErrInvalidAmount
	}
	if amount > e.limits.MaxQuote {
		return domain.ErrAmountTooLarge
	}
	return nil
}

func (e *Exchange) validateBase(amount uint64) error {
	if amount == 0 || amount < e.limits.MinBase {
		return domain.ErrInvalidAmount
	}
	if amount > e.limits.MaxBase {
		return domain.ErrAmountTooLarge
	}
	return nil
}

func (e *Exchange) stamp(now int64) event.BaseEvent {
	ev := event.BaseEvent{Seq: e.nextSeq, Ts: now}
	e.nextSeq++
	return ev
}

// journal persists events inside the operation's transaction (WAL-first:
// nothing is published until the journal write commits).
func (e *Exchange) journal(tx domain.Tx, evs ...event.Event) error {
	for _, ev := range evs {
		if ev == nil {
			continue
		}
		payload, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		if err := tx.AppendEvent(ev.GetSeq(), ev.GetType(), ev.GetTs(), payload); err != nil {
			return err
		}
	}
	return nil
}

func (e *Exchange) publish(evs ...event.Event) {
	if e.onEvent == nil {
		return
	}
	for _, ev := range evs {
		if ev != nil {
			e.onEvent(ev)
		}
	}
}
