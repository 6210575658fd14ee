package app

import (
	"errors"
	"log/slog"

	"everdex/internal/domain"
	"everdex/internal/engine"
	"everdex/internal/infra"
	"everdex/internal/infra/storage"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config  *infra.Config
	Storage *storage.Storage
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization (Config, Logger, DB)
func (b *Bootstrap) Initialize() error {
	slog.Info("🚀 Bootstrapping EverDex...")

	// 1. Load Config
	cfg, err := infra.LoadConfig("configs/config.yaml")
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	// 3. Initialize Storage (DB)
	store, err := storage.NewStorage(cfg.DB.Path)
	if err != nil {
		return err
	}
	b.Storage = store
	slog.Info("✅ Database initialized")

	return nil
}

// EnsureCurve initializes the curve singleton on first boot.
func (b *Bootstrap) EnsureCurve(ex *engine.Exchange) error {
	_, err := b.Storage.LoadCurve()
	if err == nil {
		slog.Info("✅ Curve already initialized")
		return nil
	}
	if !errors.Is(err, domain.ErrCurveNotFound) {
		return err
	}
	if err := ex.Initialize(); err != nil {
		return err
	}
	slog.Info("✅ Curve initialized with seed reserves")
	return nil
}

// Limits builds the engine bounds from configuration.
func (b *Bootstrap) Limits() engine.Limits {
	return engine.Limits{
		MinQuote:      b.Config.Engine.MinTradeQuote,
		MaxQuote:      b.Config.Engine.MaxTradeQuote,
		MinBase:       b.Config.Engine.MinTradeBase,
		MaxBase:       b.Config.Engine.MaxTradeBase,
		RefundTimeout: b.Config.Engine.RefundTimeoutSec,
	}
}
