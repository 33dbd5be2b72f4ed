package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dc-edux/sysedux-fleet/internal/db"
	"github.com/dc-edux/sysedux-fleet/internal/usage"
)

// RunUsageBatch refreshes the usage snapshot of every trial or active
// tenant. A failed fetch zeroes that tenant's snapshot rather than
// leaving it stale, and never aborts the batch.
func (s *Scheduler) RunUsageBatch(ctx context.Context) error {
	if !s.usageMu.TryLock() {
		s.metrics.RecordBatchSkipped("usage")
		s.logger.Warn("Usage batch still running, skipping tick")
		return nil
	}
	defer s.usageMu.Unlock()

	start := time.Now()
	tenants, err := s.store.GetFleetToCheck()
	if err != nil {
		return err
	}

	s.fanOut(ctx, tenants, s.collectTenant)

	s.metrics.RecordBatch("usage", len(tenants), time.Since(start).Seconds())
	s.logger.Info("Usage batch completed",
		zap.Int("tenants", len(tenants)),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

func (s *Scheduler) collectTenant(ctx context.Context, t *db.Tenant) {
	snap, fetchErr := s.source.Fetch(ctx, t)
	if fetchErr != nil {
		s.logger.Warn("Usage fetch failed",
			zap.String("tenant_id", t.ID),
			zap.String("tenant_code", t.Code),
			zap.Error(fetchErr),
		)
		s.metrics.RecordUsageFetchFailure(t)
		snap = usage.Snapshot{}
	}

	t.CurrentUsers = snap.Users
	t.CurrentStorageGB = snap.StorageGB
	t.CurrentStudents = snap.Students

	plan, planErr := s.store.GetPlan(t.PlanCode)
	if planErr != nil {
		s.logger.Error("Failed to load plan for usage percentages",
			zap.String("tenant_id", t.ID),
			zap.String("plan_code", t.PlanCode),
			zap.Error(planErr),
		)
		plan = &db.Plan{}
	}
	t.RecomputeUsagePercents(plan)

	if err := s.store.UpdateUsageSnapshot(t, s.clock.Now()); err != nil {
		s.logger.Error("Failed to write usage snapshot",
			zap.String("tenant_id", t.ID),
			zap.Error(err),
		)
		return
	}

	if fetchErr == nil {
		s.metrics.RecordUsage(t, snap)
	}
}
