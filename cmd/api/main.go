package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/dc-edux/sysedux-fleet/internal/api"
	"github.com/dc-edux/sysedux-fleet/internal/api/handlers"
	"github.com/dc-edux/sysedux-fleet/internal/audit"
	"github.com/dc-edux/sysedux-fleet/internal/billing"
	"github.com/dc-edux/sysedux-fleet/internal/config"
	"github.com/dc-edux/sysedux-fleet/internal/core"
	"github.com/dc-edux/sysedux-fleet/internal/db"
	"github.com/dc-edux/sysedux-fleet/internal/lifecycle"
	"github.com/dc-edux/sysedux-fleet/internal/metrics"
	"github.com/dc-edux/sysedux-fleet/internal/plan"
	"github.com/dc-edux/sysedux-fleet/internal/probe"
	"github.com/dc-edux/sysedux-fleet/internal/scheduler"
	"github.com/dc-edux/sysedux-fleet/internal/storage/redis"
	"github.com/dc-edux/sysedux-fleet/internal/tenant"
	"github.com/dc-edux/sysedux-fleet/internal/usage"
	"github.com/dc-edux/sysedux-fleet/pkg/accounting"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("Failed to create logger:", err)
	}
	defer logger.Sync()

	conn, err := db.NewConnection(cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer conn.Close()

	if err := db.Migrate(conn, cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	repo := db.NewRepository(conn)
	clock := core.SystemClock()

	var cache *redis.Client
	if cfg.Redis.URL != "" {
		cache = redis.NewClient(cfg.Redis.URL)
		defer cache.Close()
	}

	collector := metrics.NewCollector(cfg.Mimir)
	sink := audit.NewDBSink(repo, logger, clock)

	planSvc := plan.NewService(repo, logger, clock)
	tenantSvc := tenant.NewService(repo, logger, clock)
	lifecycleSvc := lifecycle.NewService(repo, sink, logger, clock)
	billingSvc := billing.NewService(repo, accounting.NewClient(cfg.Accounting), sink, collector, logger, clock)

	prober := probe.NewTCPProber(cfg.Scheduler.ProbeTimeout)
	source := usage.NewPostgresSource(cfg.Usage.DBUser, cfg.Usage.DBPassword, cfg.Usage.Timeout)
	sched := scheduler.NewScheduler(repo, prober, source, collector, logger, &cfg.Scheduler, clock)
	domains := probe.NewDomainChecker(cfg.Scheduler.ProbeTimeout)

	h := handlers.NewHandler(repo, planSvc, tenantSvc, lifecycleSvc, billingSvc, sched, domains, cache, sink, clock, logger)
	router := api.NewRouter(cfg, repo, h, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("API server started", zap.String("port", cfg.Server.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
