package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/dc-edux/sysedux-fleet/internal/config"
	"github.com/dc-edux/sysedux-fleet/internal/core"
	"github.com/dc-edux/sysedux-fleet/internal/db"
	"github.com/dc-edux/sysedux-fleet/internal/metrics"
	"github.com/dc-edux/sysedux-fleet/internal/probe"
	"github.com/dc-edux/sysedux-fleet/internal/scheduler"
	"github.com/dc-edux/sysedux-fleet/internal/usage"
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

	collector := metrics.NewCollector(cfg.Mimir)
	prober := probe.NewTCPProber(cfg.Scheduler.ProbeTimeout)
	source := usage.NewPostgresSource(cfg.Usage.DBUser, cfg.Usage.DBPassword, cfg.Usage.Timeout)
	sched := scheduler.NewScheduler(repo, prober, source, collector, logger, &cfg.Scheduler, clock)

	ctx, cancel := context.WithCancel(context.Background())

	go collector.StartRemoteWrite(ctx)
	go sched.Start(ctx)

	logger.Info("Fleet scheduler started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down scheduler...")
	cancel()
	logger.Info("Scheduler stopped")
}
