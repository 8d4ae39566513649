package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"iceberg_go/internal/app"
	"iceberg_go/internal/detect"
	"iceberg_go/internal/domain"
	"iceberg_go/internal/engine"
	"iceberg_go/internal/event"
	"iceberg_go/internal/infra/coinbase"
	"iceberg_go/internal/service"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	// 1. Pprof Server (for performance profiling)
	go func() {
		// Localhost only for security
		slog.Info("🕵️ Pprof server started on localhost:6060")
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			slog.Error("Pprof server failed", slog.Any("error", err))
		}
	}()

	// 2. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	cfg := bootstrap.Config

	// 3. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Pre-warm event pools before the feed connects
	event.Warmup()

	// 5. Alert sink: every confirmed iceberg flows through this channel
	detections := make(chan domain.Detection, cfg.Engine.RecordBuffer)
	alerts := service.NewAlertService(detections, bootstrap.Storage)
	go alerts.Run(ctx)

	// 6. Per-product Sequencers (The Hotpath Loops), two policies each
	cleanupInterval := time.Duration(cfg.Engine.CleanupIntervalSec) * time.Second
	instruments := make(map[string]coinbase.Instrument, len(cfg.Feed.Coinbase.Products))
	for _, product := range cfg.Feed.Coinbase.Products {
		inst := cfg.Instruments[product]

		scoring := detect.NewDetector(product, inst.SizeMultiplier, inst.TickSize,
			detect.ScoringPolicy{}, bootstrap.Settings, detections)
		threshold := detect.NewDetector(product, inst.SizeMultiplier, inst.TickSize,
			detect.ThresholdPolicy{}, bootstrap.Settings, detections)

		seq := engine.NewSequencer(product, cfg.Engine.InboxSize, cleanupInterval, scoring, threshold)
		go seq.Run(ctx)

		instruments[product] = coinbase.Instrument{
			TickSize: inst.TickSize,
			Inbox:    seq.Inbox(),
		}
		slog.InfoContext(ctx, "✅ Sequencer (Hotpath) started", slog.String("product", product))
	}

	// 7. Coinbase Gateway (MBO feed)
	worker := coinbase.NewWorker(cfg.Feed.Coinbase.WSURL, instruments)
	if err := worker.Connect(ctx); err != nil {
		slog.Error("Failed to connect Coinbase feed", slog.Any("error", err))
	}
	defer worker.Disconnect()
	slog.InfoContext(ctx, "✅ CoinbaseWorker started", slog.Int("products", len(instruments)))

	slog.InfoContext(ctx, "✨ Iceberg detection system fully operational. Press Ctrl+C to exit.")

	// Wait for shutdown signal
	<-ctx.Done()

	slog.InfoContext(ctx, "👋 Shutting down gracefully...")
}
