package app

import (
	"log/slog"

	"iceberg_go/internal/detect"
	"iceberg_go/internal/infra"
	"iceberg_go/internal/infra/storage"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config   *infra.Config
	Storage  *storage.Storage
	Settings *detect.SettingsStore
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization (config, logger, DB, settings)
func (b *Bootstrap) Initialize() error {
	slog.Info("🚀 Bootstrapping Iceberg Go...")

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
	store, err := storage.NewStorage(cfg.Storage.Path)
	if err != nil {
		return err
	}
	b.Storage = store
	slog.Info("✅ Database initialized")

	// 4. Detection settings: config defaults, then persisted per-key overrides
	b.Settings = detect.NewSettingsStore(cfg.Detection)
	overrides, err := store.LoadSettingsMap()
	if err != nil {
		return err
	}
	if len(overrides) > 0 {
		if err := b.Settings.ApplyOverrides(overrides); err != nil {
			slog.Warn("Some persisted settings could not be applied", slog.Any("error", err))
		}
		slog.Info("✅ Settings overrides applied", slog.Int("count", len(overrides)))
	}

	return nil
}
