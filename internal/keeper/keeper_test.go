package keeper

import (
	"testing"

	"everdex/internal/domain"
	"everdex/pkg/quant"
)

func TestDrainPolicy_Idle(t *testing.T) {
	c := domain.NewCurve(0)
	actions := DrainPolicy{}.Decide(c, 100)
	if len(actions) != 0 {
		t.Errorf("idle curve should produce no actions, got %v", actions)
	}
}

func TestDrainPolicy_BoostAfterDay(t *testing.T) {
	c := domain.NewCurve(0)
	actions := DrainPolicy{}.Decide(c, quant.SecondsPerDay)
	if len(actions) != 1 || actions[0] != ActionApplyDailyBoost {
		t.Errorf("expected boost only, got %v", actions)
	}
}

func TestDrainPolicy_BuysBeforeSells(t *testing.T) {
	c := domain.NewCurve(0)
	c.BuyQueueTail = 2
	c.SellQueueTail = 1

	actions := DrainPolicy{}.Decide(c, 100)
	if len(actions) != 1 || actions[0] != ActionProcessBuyQueue {
		t.Errorf("outstanding buys take priority, got %v", actions)
	}

	// Sells are drained only once the buy queue is empty.
	c.BuyQueueHead = 2
	actions = DrainPolicy{}.Decide(c, 100)
	if len(actions) != 1 || actions[0] != ActionProcessSellQueue {
		t.Errorf("expected sell processing, got %v", actions)
	}
}

func TestDrainPolicy_BoostAndDrainTogether(t *testing.T) {
	c := domain.NewCurve(0)
	c.BuyQueueTail = 1

	actions := DrainPolicy{}.Decide(c, quant.SecondsPerDay+10)
	if len(actions) != 2 {
		t.Fatalf("expected 2 actions, got %v", actions)
	}
	if actions[0] != ActionApplyDailyBoost || actions[1] != ActionProcessBuyQueue {
		t.Errorf("expected boost then drain, got %v", actions)
	}
}

func TestActionString(t *testing.T) {
	if ActionProcessBuyQueue.String() != "PROCESS_BUY_QUEUE" {
		t.Errorf("unexpected name: %s", ActionProcessBuyQueue)
	}
	if Action(99).String() != "UNKNOWN" {
		t.Errorf("unexpected name for unknown action")
	}
}
