package main

import (
	"context"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pocketbank/internal/bot"
	"pocketbank/internal/config"
	"pocketbank/internal/db"
	"pocketbank/internal/game"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("bot exited", "err", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadBot()
	if err != nil {
		return err
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := db.Bootstrap(ctx, pool); err != nil {
		return err
	}

	gameSvc := game.NewService(pool, logger)
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	demand := bot.New(gameSvc, rnd, logger)

	if cfg.RunOnce {
		purchases, err := demand.RunCycle(ctx)
		logger.Info("cycle finished", "purchases", purchases)
		return err
	}

	logger.Info("bot running", "cycle_every", cfg.CycleEvery.String())
	ticker := time.NewTicker(cfg.CycleEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return nil
		case <-ticker.C:
			purchases, err := demand.RunCycle(ctx)
			if err != nil {
				logger.Error("cycle failed", "purchases", purchases, "err", err)
				continue
			}
			logger.Info("cycle finished", "purchases", purchases)
		}
	}
}
