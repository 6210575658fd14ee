package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"everdex/internal/app"
	"everdex/internal/engine"
	"everdex/internal/event"
	"everdex/internal/infra"
	"everdex/internal/infra/ws"
	"everdex/internal/keeper"
	"everdex/internal/service"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	// 1. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	cfg := bootstrap.Config

	// 2. Pprof Server (for performance profiling)
	go func() {
		addr := cfg.Server.PprofAddr
		if addr == "" {
			addr = "localhost:6060" // Localhost only for security
		}
		slog.Info("🕵️ Pprof server started", slog.String("addr", addr))
		if err := http.ListenAndServe(addr, nil); err != nil {
			slog.Error("Pprof server failed", slog.Any("error", err))
		}
	}()

	// 3. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Event Fanout: journal -> metrics + websocket feed
	event.Warmup()
	hub := ws.NewHub()
	defer hub.Close()
	onEvent := func(ev event.Event) {
		infra.GlobalMetrics.RecordEvent(ev)
		hub.Broadcast(ev)
	}

	// 5. Engine + Sequencer (The Hotpath Loop)
	clock := infra.SystemClock{}
	ex := engine.NewExchange(bootstrap.Storage, clock, bootstrap.Limits(), onEvent)
	if err := bootstrap.EnsureCurve(ex); err != nil {
		slog.Error("❌ Curve initialization failed", slog.Any("error", err))
		os.Exit(1)
	}

	seq := engine.NewSequencer(1024, ex)
	go seq.Run(ctx)
	slog.InfoContext(ctx, "✅ Sequencer (Hotpath) started")

	// 6. Keeper: queue draining + daily boost
	worker := keeper.NewWorker(bootstrap.Storage, seq, clock, keeper.DrainPolicy{},
		time.Duration(cfg.Keeper.IntervalMS)*time.Millisecond)
	go worker.Run(ctx)
	slog.InfoContext(ctx, "✅ Keeper started")

	// 7. Read-only surfaces: websocket feed + curve snapshot
	market := service.NewMarketService(bootstrap.Storage, cfg.Alerts.PremiumThreshold)

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	mux.HandleFunc("/snapshot", func(w http.ResponseWriter, r *http.Request) {
		snap, err := market.Snapshot()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(snap)
	})
	server := &http.Server{Addr: cfg.Server.WSAddr, Handler: mux}
	go func() {
		slog.Info("✅ Feed server started", slog.String("addr", cfg.Server.WSAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Feed server failed", slog.Any("error", err))
		}
	}()

	// 8. Premium watchdog
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				snap, err := market.Snapshot()
				if err != nil {
					continue
				}
				if market.PremiumAlert(snap) {
					slog.Warn("PREMIUM_ALERT: effective price far above organic",
						slog.String("organic", snap.OrganicPrice.String()),
						slog.String("effective", snap.EffectivePrice.String()))
				}
			}
		}
	}()

	slog.InfoContext(ctx, "✨ EverDex engine fully operational. Press Ctrl+C to exit.")

	// Wait for shutdown signal
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	server.Shutdown(shutdownCtx)

	slog.Info("👋 Shutting down gracefully...")
}
