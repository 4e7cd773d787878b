package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/leozw/ws-billing-resolver/internal/clock"
	"github.com/leozw/ws-billing-resolver/internal/config"
	"github.com/leozw/ws-billing-resolver/internal/logger"
	"github.com/leozw/ws-billing-resolver/internal/lookup"
	"github.com/leozw/ws-billing-resolver/internal/metrics"
	"github.com/leozw/ws-billing-resolver/internal/remote"
	"github.com/leozw/ws-billing-resolver/internal/rollout"
	"github.com/leozw/ws-billing-resolver/internal/storage/postgres"
)

// rollout rebuilds the dashboard snapshot once and exits, meant to run as a cron job.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	l, err := logger.New(cfg.Logger.Level)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer l.Sync()

	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		l.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Migrate(l); err != nil {
		l.Fatal("Failed to migrate database", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(cfg.Mimir, reg)
	service := lookup.New(cfg.Services, cfg.Remote, collector, l)

	svc := rollout.NewService(cfg.Rollout, service, db, remote.NewExtractor(), collector, clock.System(), l)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	n, err := svc.Run(ctx)
	if err != nil {
		l.Fatal("Rollout snapshot failed", zap.Error(err))
	}

	if cfg.Mimir.URL != "" {
		if err := metrics.NewShipper(collector, reg, l).Flush(ctx); err != nil {
			l.Warn("Failed to push rollout metrics", zap.Error(err))
		}
	}

	l.Info("Rollout snapshot complete", zap.Int("villages", n))
}
