package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/leozw/ws-billing-resolver/internal/api"
	"github.com/leozw/ws-billing-resolver/internal/api/handlers"
	"github.com/leozw/ws-billing-resolver/internal/api/middleware"
	"github.com/leozw/ws-billing-resolver/internal/config"
	"github.com/leozw/ws-billing-resolver/internal/logger"
	"github.com/leozw/ws-billing-resolver/internal/lookup"
	"github.com/leozw/ws-billing-resolver/internal/metrics"
	"github.com/leozw/ws-billing-resolver/internal/storage/postgres"
	"github.com/leozw/ws-billing-resolver/internal/storage/redis"
	"github.com/leozw/ws-billing-resolver/pkg/keycloak"
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

	// Database
	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		l.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Migrate(l); err != nil {
		l.Fatal("Failed to migrate database", zap.Error(err))
	}

	// Redis
	cache := redis.NewClient(cfg.Redis.URL)
	defer cache.Close()

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(cfg.Mimir, reg)

	service := lookup.New(cfg.Services, cfg.Remote, collector, l)

	var auth middleware.TokenValidator
	if cfg.Keycloak.Enabled {
		auth = keycloak.NewClient(cfg.Keycloak, l)
	}

	handler := handlers.NewHandler(service, db, map[string]handlers.Pinger{
		"database": db,
		"redis":    cache,
	}, l)
	server := api.NewServer(cfg, handler, auth, reg, l)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go metrics.NewShipper(collector, reg, l).Start(ctx)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: server.Router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	l.Info("API server started", zap.String("port", cfg.Server.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Fatal("Server forced to shutdown", zap.Error(err))
	}

	l.Info("Server exited")
}
