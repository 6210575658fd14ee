package engine

import (
	"errors"

	"everdex/internal/domain"
	"everdex/internal/event"
	"everdex/pkg/safe"
)

// EmergencyRefund releases the escrowed quote of a stuck, unprocessed buy
// order back to its buyer. Only the order's own buyer may claim it, and
// only after the configured timeout has elapsed; this is the sole way to
// recover escrow without a trade.
func (e *Exchange) EmergencyRefund(caller string, seq uint64) (*event.EmergencyRefundEvent, error) {
	var ev *event.EmergencyRefundEvent
	err := e.store.Atomic(func(tx domain.Tx) error {
		c, err := tx.Curve()
		if err != nil {
			return err
		}
		order, err := tx.BuyOrder(seq)
		if err != nil {
			return err
		}
		if order.Processed {
			return domain.ErrOrderProcessed
		}
		if order.Buyer != caller {
			return domain.ErrInvalidBuyer
		}
		now := e.clock.Now()
		elapsed := now - order.CreatedAt
		if elapsed < e.limits.RefundTimeout {
			return domain.ErrRefundNotReady
		}

		if err := tx.Transfer(domain.AccountCustody, order.Buyer, domain.AssetQuote, order.QuoteAmount); err != nil {
			return ledgerErr("refund", err)
		}
		order.Processed = true
		if err := tx.SaveBuyOrder(order); err != nil {
			return err
		}

		// Release the cursor past any processed head orders so the queue
		// does not stay blocked on the refunded slot.
		if err := e.advanceBuyHead(tx, c); err != nil {
			return err
		}
		if err := tx.SaveCurve(c); err != nil {
			return err
		}

		ev = &event.EmergencyRefundEvent{
			BaseEvent:   e.stamp(now),
			Buyer:       order.Buyer,
			QuoteAmount: order.QuoteAmount,
			TimeElapsed: elapsed,
		}
		return e.journal(tx, ev)
	})
	if err != nil {
		return nil, err
	}
	e.publish(ev)
	return ev, nil
}

// BumpBuyTail advances the buy tail past an occupied slot that can never
// be enqueued into. Audited via a QueueSkipEvent.
func (e *Exchange) BumpBuyTail() (*event.QueueSkipEvent, error) {
	return e.bumpTail("buy")
}

// BumpSellTail advances the sell tail past an occupied slot.
func (e *Exchange) BumpSellTail() (*event.QueueSkipEvent, error) {
	return e.bumpTail("sell")
}

func (e *Exchange) bumpTail(queue string) (*event.QueueSkipEvent, error) {
	var ev *event.QueueSkipEvent
	err := e.store.Atomic(func(tx domain.Tx) error {
		c, err := tx.Curve()
		if err != nil {
			return err
		}
		var from uint64
		switch queue {
		case "buy":
			from = c.BuyQueueTail
			c.BuyQueueTail, err = safe.Add(c.BuyQueueTail, 1)
		default:
			from = c.SellQueueTail
			c.SellQueueTail, err = safe.Add(c.SellQueueTail, 1)
		}
		if err != nil {
			return domain.ErrMathOverflow
		}
		if err := tx.SaveCurve(c); err != nil {
			return err
		}
		ev = &event.QueueSkipEvent{
			BaseEvent: e.stamp(e.clock.Now()),
			Queue:     queue,
			Cursor:    "tail",
			From:      from,
			To:        from + 1,
			Skipped:   1,
		}
		return e.journal(tx, ev)
	})
	if err != nil {
		return nil, err
	}
	e.publish(ev)
	return ev, nil
}

// SkipOrphanedBuyOrders advances the buy head past up to count slots that
// hold no live order: missing records (allocation residue) or already
// processed ones. It stops at the first live order, so escrowed funds can
// never be skipped over.
func (e *Exchange) SkipOrphanedBuyOrders(count uint64) (*event.QueueSkipEvent, error) {
	if count == 0 {
		return nil, domain.ErrInvalidAmount
	}

	var ev *event.QueueSkipEvent
	err := e.store.Atomic(func(tx domain.Tx) error {
		c, err := tx.Curve()
		if err != nil {
			return err
		}
		from := c.BuyQueueHead

		var skipped uint64
		for skipped < count && c.BuyQueueHead < c.BuyQueueTail {
			order, err := tx.BuyOrder(c.BuyQueueHead)
			if err != nil && !errors.Is(err, domain.ErrOrderNotFound) {
				return err
			}
			if err == nil && !order.Processed {
				break // live order, never skip escrow
			}
			c.BuyQueueHead, err = safe.Add(c.BuyQueueHead, 1)
			if err != nil {
				return domain.ErrMathOverflow
			}
			skipped++
		}
		if skipped == 0 {
			return domain.ErrOrderNotFound
		}
		if err := tx.SaveCurve(c); err != nil {
			return err
		}

		ev = &event.QueueSkipEvent{
			BaseEvent: e.stamp(e.clock.Now()),
			Queue:     "buy",
			Cursor:    "head",
			From:      from,
			To:        c.BuyQueueHead,
			Skipped:   skipped,
		}
		return e.journal(tx, ev)
	})
	if err != nil {
		return nil, err
	}
	e.publish(ev)
	return ev, nil
}

// advanceBuyHead moves the head past consecutive processed orders.
func (e *Exchange) advanceBuyHead(tx domain.Tx, c *domain.Curve) error {
	for c.BuyQueueHead < c.BuyQueueTail {
		order, err := tx.BuyOrder(c.BuyQueueHead)
		if err != nil {
			if errors.Is(err, domain.ErrOrderNotFound) {
				return nil // orphaned slot, left for SkipOrphanedBuyOrders
			}
			return err
		}
		if !order.Processed {
			return nil
		}
		c.BuyQueueHead, err = safe.Add(c.BuyQueueHead, 1)
		if err != nil {
			return domain.ErrMathOverflow
		}
	}
	return nil
}
