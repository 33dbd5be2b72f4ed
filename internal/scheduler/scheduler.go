// Package scheduler owns the fleet-wide periodic batches: the health
// prober and the usage collector. Nothing else in the system
// self-schedules.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dc-edux/sysedux-fleet/internal/config"
	"github.com/dc-edux/sysedux-fleet/internal/core"
	"github.com/dc-edux/sysedux-fleet/internal/db"
	"github.com/dc-edux/sysedux-fleet/internal/metrics"
	"github.com/dc-edux/sysedux-fleet/internal/probe"
	"github.com/dc-edux/sysedux-fleet/internal/usage"
)

// Store is the slice of the repository the batches need. The update
// statements are field-scoped: a health write and a usage write for
// the same tenant cannot drop each other's columns.
type Store interface {
	GetFleetToCheck() ([]*db.Tenant, error)
	GetPlan(code string) (*db.Plan, error)
	UpdateHealthCheck(id string, cpuPercent, memoryMB float64, checkedAt time.Time) error
	UpdateUsageSnapshot(t *db.Tenant, now time.Time) error
}

// Prober is satisfied by probe.TCPProber.
type Prober interface {
	Probe(ctx context.Context, host string, port int) probe.Result
}

type Scheduler struct {
	store   Store
	prober  Prober
	source  usage.Source
	metrics *metrics.Collector
	logger  *zap.Logger
	config  *config.SchedulerConfig
	clock   core.Clock
	limiter *rate.Limiter

	// A tick that fires while the previous batch of the same kind is
	// still running is skipped, not queued.
	healthMu sync.Mutex
	usageMu  sync.Mutex
}

func NewScheduler(store Store, prober Prober, source usage.Source, collector *metrics.Collector, logger *zap.Logger, cfg *config.SchedulerConfig, clock core.Clock) *Scheduler {
	return &Scheduler{
		store:   store,
		prober:  prober,
		source:  source,
		metrics: collector,
		logger:  logger,
		config:  cfg,
		clock:   clock,
		limiter: rate.NewLimiter(rate.Limit(cfg.ProbeRate), cfg.ProbeBurst),
	}
}

// Start runs both tickers until the context ends.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting fleet scheduler",
		zap.Int("worker_count", s.config.WorkerCount),
		zap.Duration("health_interval", s.config.HealthInterval),
		zap.Duration("usage_interval", s.config.UsageInterval),
	)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		s.tick(ctx, s.config.HealthInterval, func() {
			if _, err := s.RunHealthBatch(ctx); err != nil {
				s.logger.Error("Health batch failed", zap.Error(err))
			}
		})
	}()

	go func() {
		defer wg.Done()
		s.tick(ctx, s.config.UsageInterval, func() {
			if err := s.RunUsageBatch(ctx); err != nil {
				s.logger.Error("Usage batch failed", zap.Error(err))
			}
		})
	}()

	wg.Wait()
	s.logger.Info("Fleet scheduler stopped")
}

func (s *Scheduler) tick(ctx context.Context, interval time.Duration, run func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}

func (s *Scheduler) workerCount() int {
	if s.config.WorkerCount > 0 {
		return s.config.WorkerCount
	}
	return 1
}

// fanOut distributes the tenants over the worker pool and waits for
// all of them. No ordering is guaranteed across tenants.
func (s *Scheduler) fanOut(ctx context.Context, tenants []*db.Tenant, work func(ctx context.Context, t *db.Tenant)) {
	jobs := make(chan *db.Tenant)

	var wg sync.WaitGroup
	for i := 0; i < s.workerCount(); i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for t := range jobs {
				work(ctx, t)
			}
		}(i)
	}

	for _, t := range tenants {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return
		case jobs <- t:
		}
	}
	close(jobs)
	wg.Wait()
}
