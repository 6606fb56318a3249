package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/heartmarshall/mflix-backend/internal/config"
	"github.com/heartmarshall/mflix-backend/internal/store"
)

const closeTimeout = 5 * time.Second

// Run is the entry point shared by the commands. It loads configuration,
// initializes the logger, opens the configured stores and hands them to fn.
// The stores are closed when fn returns.
func Run(ctx context.Context, fn func(ctx context.Context, logger *slog.Logger, stores *store.Stores) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := NewLogger(cfg.Log)

	logger.Info("starting application",
		BuildAttr(),
		slog.String("log_level", cfg.Log.Level),
		slog.String("storage_driver", cfg.Storage.Driver),
		slog.String("session_driver", cfg.Storage.EffectiveSessionDriver()),
	)

	stores, err := OpenStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
		defer cancel()
		if err := stores.Close(closeCtx); err != nil {
			logger.Warn("close stores", slog.String("error", err.Error()))
		}
	}()

	return fn(ctx, logger, stores)
}
