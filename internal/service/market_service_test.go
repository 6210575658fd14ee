package service

import (
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"everdex/internal/domain"
	"everdex/internal/infra/storage"
)

func setupService(t *testing.T, threshold string) (*MarketService, *storage.Storage) {
	t.Helper()
	store, err := storage.NewStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	err = store.Atomic(func(tx domain.Tx) error {
		return tx.CreateCurve(domain.NewCurve(1000))
	})
	if err != nil {
		t.Fatalf("CreateCurve failed: %v", err)
	}
	return NewMarketService(store, decimal.RequireFromString(threshold)), store
}

func TestSnapshot(t *testing.T) {
	svc, _ := setupService(t, "5.0")

	snap, err := svc.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	// Seeded pool: 100,000 quote / 1,000,000 tokens = 0.1 per token.
	if !snap.OrganicPrice.Equal(decimal.RequireFromString("0.1")) {
		t.Errorf("expected organic 0.1, got %s", snap.OrganicPrice)
	}
	if !snap.EffectivePrice.Equal(snap.OrganicPrice) {
		t.Errorf("no bonus yet: effective %s should equal organic %s",
			snap.EffectivePrice, snap.OrganicPrice)
	}
	if !snap.QuoteReserve.Equal(decimal.NewFromInt(100_000)) {
		t.Errorf("expected 100000 quote, got %s", snap.QuoteReserve)
	}
	if !snap.BaseReserve.Equal(decimal.NewFromInt(1_000_000)) {
		t.Errorf("expected 1000000 tokens, got %s", snap.BaseReserve)
	}
	if snap.BuyQueueDepth != 0 || snap.SellQueueDepth != 0 {
		t.Errorf("expected empty queues, got %d/%d", snap.BuyQueueDepth, snap.SellQueueDepth)
	}
	if snap.PremiumPct == nil || !snap.PremiumPct.IsZero() {
		t.Errorf("expected zero premium, got %v", snap.PremiumPct)
	}
	if snap.Version != EngineVersion {
		t.Errorf("expected version %s, got %s", EngineVersion, snap.Version)
	}

	// Last caches the most recent snapshot.
	if svc.Last() != snap {
		t.Error("Last should return the cached snapshot")
	}
}

func TestSnapshot_PremiumAndAlert(t *testing.T) {
	svc, store := setupService(t, "5.0")

	// Inflate the bonus to 10% of the organic price.
	err := store.Atomic(func(tx domain.Tx) error {
		c, err := tx.Curve()
		if err != nil {
			return err
		}
		c.CumulativeBonus = 10_000 // organic is 100000
		return tx.SaveCurve(c)
	})
	if err != nil {
		t.Fatalf("bonus update failed: %v", err)
	}

	snap, err := svc.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if snap.PremiumPct == nil {
		t.Fatal("expected a premium")
	}
	if !snap.PremiumPct.Equal(decimal.NewFromInt(10)) {
		t.Errorf("expected premium 10%%, got %s", snap.PremiumPct)
	}
	if !svc.PremiumAlert(snap) {
		t.Error("10%% premium should trip a 5%% threshold")
	}
}

func TestPremiumAlert_Disabled(t *testing.T) {
	svc, _ := setupService(t, "0")

	snap, err := svc.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if svc.PremiumAlert(snap) {
		t.Error("zero threshold disables alerts")
	}
	if svc.PremiumAlert(nil) {
		t.Error("nil snapshot must not alert")
	}
}
