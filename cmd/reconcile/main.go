package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/frankbauer/media-rest-api/internal/app/apiapp"
	"github.com/frankbauer/media-rest-api/internal/config"
	"github.com/frankbauer/media-rest-api/internal/infra/logger"
)

// reconcile runs one pass over the media orphan ledger. Entries that fail stay
// in the ledger for the next run.
func main() {
	cfgPath := os.Getenv("APP_CONFIG")
	if cfgPath == "" {
		cfgPath = "configs/config.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		panic(err)
	}
	// schema changes belong to the api process
	cfg.Postgres.Migrate = false

	log, err := logger.New(cfg.Log.Level, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := apiapp.RunReconcileOnce(ctx, cfg, log)
	if err != nil {
		log.Fatal("reconcile failed", zap.Error(err))
	}
	fields := []zap.Field{
		zap.Int("scanned", report.Scanned),
		zap.Int("resolved", report.Resolved),
		zap.Int("failed", report.Failed),
	}
	if report.Failed > 0 {
		log.Warn("reconcile finished with unresolved entries", fields...)
		return
	}
	log.Info("reconcile finished", fields...)
}
