package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dc-edux/sysedux-fleet/internal/core"
	"github.com/dc-edux/sysedux-fleet/internal/db"
	"github.com/dc-edux/sysedux-fleet/internal/probe"
)

// RunHealthBatch probes every trial or active tenant once. The
// per-tenant success booleans are returned for observability only:
// whatever the probe outcome, the tenant's last-health-check
// timestamp is stamped once the attempt completes, and that
// timestamp alone drives the online flag. A nil map means the tick
// was skipped because the previous batch was still running.
func (s *Scheduler) RunHealthBatch(ctx context.Context) (map[string]bool, error) {
	if !s.healthMu.TryLock() {
		s.metrics.RecordBatchSkipped("health")
		s.logger.Warn("Health batch still running, skipping tick")
		return nil, nil
	}
	defer s.healthMu.Unlock()

	start := time.Now()
	tenants, err := s.store.GetFleetToCheck()
	if err != nil {
		return nil, err
	}

	results := make(map[string]bool, len(tenants))
	var mu sync.Mutex

	s.fanOut(ctx, tenants, func(ctx context.Context, t *db.Tenant) {
		result := s.probeTenant(ctx, t)
		mu.Lock()
		results[t.ID] = result.Success
		mu.Unlock()
	})

	s.metrics.RecordBatch("health", len(tenants), time.Since(start).Seconds())
	s.logger.Info("Health batch completed",
		zap.Int("tenants", len(tenants)),
		zap.Duration("duration", time.Since(start)),
	)
	return results, nil
}

// RefreshTenant runs a one-off probe and usage collection for a
// single tenant, outside the batch cadence. Both writes behave
// exactly as a batch pass would. Tenants the batches would not visit
// are rejected rather than stamped.
func (s *Scheduler) RefreshTenant(ctx context.Context, t *db.Tenant) (probe.Result, error) {
	if !t.Probeable() {
		return probe.Result{}, &core.ValidationError{
			Field:  "status",
			Reason: fmt.Sprintf("tenant %s is %s, only trial and active tenants are checked", t.Code, t.Status),
		}
	}
	result := s.probeTenant(ctx, t)
	s.collectTenant(ctx, t)
	return result, nil
}

func (s *Scheduler) probeTenant(ctx context.Context, t *db.Tenant) probe.Result {
	if err := s.limiter.Wait(ctx); err != nil {
		return probe.Result{Address: t.ServerAddress, Err: err}
	}

	result := s.prober.Probe(ctx, t.ServerAddress, t.InstancePort)
	s.metrics.RecordProbe(t, result)

	if result.Err != nil {
		s.logger.Warn("Tenant probe failed",
			zap.String("tenant_id", t.ID),
			zap.String("tenant_code", t.Code),
			zap.String("address", result.Address),
			zap.Error(result.Err),
		)
	}

	// The timestamp write happens after the dial returns, success or
	// not. CPU and memory figures stay whatever the instance last
	// reported; a bare TCP probe learns nothing about them.
	checkedAt := s.clock.Now()
	if err := s.store.UpdateHealthCheck(t.ID, t.CPUUsagePercent, t.MemoryUsageMB, checkedAt); err != nil {
		s.logger.Error("Failed to record health check",
			zap.String("tenant_id", t.ID),
			zap.Error(err),
		)
	}

	return result
}
