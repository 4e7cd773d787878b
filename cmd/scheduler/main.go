package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/leozw/ws-billing-resolver/internal/clock"
	"github.com/leozw/ws-billing-resolver/internal/config"
	"github.com/leozw/ws-billing-resolver/internal/logger"
	"github.com/leozw/ws-billing-resolver/internal/lookup"
	"github.com/leozw/ws-billing-resolver/internal/metrics"
	"github.com/leozw/ws-billing-resolver/internal/queue"
	"github.com/leozw/ws-billing-resolver/internal/scheduler"
	"github.com/leozw/ws-billing-resolver/internal/storage/redis"
)

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

	if len(cfg.Scheduler.Tenants) == 0 {
		l.Fatal("No tenants configured for the billing scheduler")
	}

	// Redis
	cache := redis.NewClient(cfg.Redis.URL)
	defer cache.Close()

	ctx, cancel := context.WithCancel(context.Background())

	if err := cache.Ping(ctx); err != nil {
		l.Fatal("Failed to connect to redis", zap.Error(err))
	}

	jobQueue := queue.NewRedisQueue(cache.Client, cfg.Redis.Queue)

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(cfg.Mimir, reg)
	service := lookup.New(cfg.Services, cfg.Remote, collector, l)

	sched := scheduler.NewScheduler(cfg.Scheduler, service, jobQueue, collector, clock.System(), l)

	go sched.Start(ctx)
	go metrics.NewShipper(collector, reg, l).Start(ctx)

	l.Info("Scheduler started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Info("Shutting down scheduler...")
	cancel()
	l.Info("Scheduler stopped")
}
