package scheduler

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dc-edux/sysedux-fleet/internal/config"
	"github.com/dc-edux/sysedux-fleet/internal/core"
	"github.com/dc-edux/sysedux-fleet/internal/db"
	"github.com/dc-edux/sysedux-fleet/internal/metrics"
	"github.com/dc-edux/sysedux-fleet/internal/probe"
	"github.com/dc-edux/sysedux-fleet/internal/usage"
)

// promauto registers against the default registry, so the collector
// is created once for the whole test binary.
var testCollector = metrics.NewCollector(config.MimirConfig{BatchSize: 100, FlushInterval: time.Minute})

type fakeStore struct {
	mu      sync.Mutex
	fleet   []*db.Tenant
	plans   map[string]*db.Plan
	health  map[string]time.Time
	usage   map[string]*db.Tenant
	usageAt map[string]time.Time
}

func newStore(fleet ...*db.Tenant) *fakeStore {
	return &fakeStore{
		fleet: fleet,
		plans: map[string]*db.Plan{
			"basic": {Code: "basic", MaxUsers: 10, MaxStorageGB: 5},
		},
		health:  make(map[string]time.Time),
		usage:   make(map[string]*db.Tenant),
		usageAt: make(map[string]time.Time),
	}
}

func (f *fakeStore) GetFleetToCheck() ([]*db.Tenant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*db.Tenant, 0, len(f.fleet))
	for _, t := range f.fleet {
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeStore) GetPlan(code string) (*db.Plan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.plans[code]
	if !ok {
		return nil, core.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) UpdateHealthCheck(id string, cpu, mem float64, checkedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.health[id] = checkedAt
	return nil
}

func (f *fakeStore) UpdateUsageSnapshot(t *db.Tenant, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *t
	f.usage[t.ID] = &cp
	f.usageAt[t.ID] = now
	return nil
}

type fakeSource struct {
	snapshots map[string]usage.Snapshot
	failures  map[string]error
}

func (s *fakeSource) Fetch(_ context.Context, t *db.Tenant) (usage.Snapshot, error) {
	if err, ok := s.failures[t.ID]; ok {
		return usage.Snapshot{}, err
	}
	return s.snapshots[t.ID], nil
}

var batchNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newScheduler(store Store, source usage.Source) *Scheduler {
	cfg := &config.SchedulerConfig{
		WorkerCount:  4,
		ProbeTimeout: 2 * time.Second,
		ProbeRate:    1000,
		ProbeBurst:   100,
	}
	prober := probe.NewTCPProber(cfg.ProbeTimeout)
	return NewScheduler(store, prober, source, testCollector, zap.NewNop(), cfg, core.FixedClock{T: batchNow})
}

func listen(t *testing.T) (string, int, func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()
	addr := ln.Addr().(*net.TCPAddr)
	return "127.0.0.1", addr.Port, func() { ln.Close() }
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func TestRunHealthBatch(t *testing.T) {
	host, okPort, stop := listen(t)
	defer stop()

	reachable := &db.Tenant{ID: "up", Code: "CL00001", Status: db.StatusActive, ServerAddress: host, InstancePort: okPort, PlanCode: "basic"}
	refused := &db.Tenant{ID: "down", Code: "CL00002", Status: db.StatusTrial, ServerAddress: host, InstancePort: freePort(t), PlanCode: "basic"}

	store := newStore(reachable, refused)
	sched := newScheduler(store, &fakeSource{})

	results, err := sched.RunHealthBatch(context.Background())
	require.NoError(t, err)

	assert.True(t, results["up"])
	assert.False(t, results["down"], "refused connection reports failure")

	// The timestamp is stamped for both, pass and fail alike.
	assert.Equal(t, batchNow, store.health["up"])
	assert.Equal(t, batchNow, store.health["down"])
}

func TestRunHealthBatchSkipsWhenRunning(t *testing.T) {
	store := newStore()
	sched := newScheduler(store, &fakeSource{})

	sched.healthMu.Lock()
	defer sched.healthMu.Unlock()

	results, err := sched.RunHealthBatch(context.Background())
	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestRunUsageBatch(t *testing.T) {
	a := &db.Tenant{ID: "a", Code: "CL00001", Status: db.StatusActive, PlanCode: "basic"}
	b := &db.Tenant{ID: "b", Code: "CL00002", Status: db.StatusActive, PlanCode: "basic"}
	store := newStore(a, b)

	source := &fakeSource{
		snapshots: map[string]usage.Snapshot{
			"b": {Users: 5, StorageGB: 2.5, Students: 120},
		},
		failures: map[string]error{
			"a": &core.TransientFetchError{TenantCode: "CL00001", Err: errors.New("connection refused")},
		},
	}
	sched := newScheduler(store, source)

	err := sched.RunUsageBatch(context.Background())
	require.NoError(t, err, "one tenant failing must not abort the batch")

	gotA := store.usage["a"]
	require.NotNil(t, gotA)
	assert.Zero(t, gotA.CurrentUsers)
	assert.Zero(t, gotA.CurrentStorageGB)
	assert.Zero(t, gotA.UsersUsagePercent)

	gotB := store.usage["b"]
	require.NotNil(t, gotB)
	assert.Equal(t, 5, gotB.CurrentUsers)
	assert.Equal(t, 2.5, gotB.CurrentStorageGB)
	assert.Equal(t, 120, gotB.CurrentStudents)
	assert.Equal(t, 50.0, gotB.UsersUsagePercent)
	assert.Equal(t, 50.0, gotB.StorageUsagePercent)

	// The snapshot write carries the scheduler's clock, not wall time.
	assert.Equal(t, batchNow, store.usageAt["a"])
	assert.Equal(t, batchNow, store.usageAt["b"])
}

func TestRefreshTenantRejectsInactive(t *testing.T) {
	for _, status := range []db.TenantStatus{db.StatusDraft, db.StatusSuspended, db.StatusCancelled} {
		tn := &db.Tenant{ID: "t1", Code: "CL00001", Status: status, PlanCode: "basic"}
		store := newStore(tn)
		sched := newScheduler(store, &fakeSource{})

		_, err := sched.RefreshTenant(context.Background(), tn)

		var invalid *core.ValidationError
		require.ErrorAs(t, err, &invalid, "status %s", status)
		assert.Empty(t, store.health, "no health stamp for %s tenants", status)
		assert.Empty(t, store.usage)
	}
}

func TestRunUsageBatchUnknownPlan(t *testing.T) {
	tn := &db.Tenant{ID: "a", Code: "CL00001", Status: db.StatusActive, PlanCode: "gone"}
	store := newStore(tn)

	source := &fakeSource{snapshots: map[string]usage.Snapshot{
		"a": {Users: 3, StorageGB: 1},
	}}
	sched := newScheduler(store, source)

	require.NoError(t, sched.RunUsageBatch(context.Background()))

	got := store.usage["a"]
	require.NotNil(t, got)
	assert.Equal(t, 3, got.CurrentUsers)
	assert.Zero(t, got.UsersUsagePercent, "missing plan limits read as zero")
}
