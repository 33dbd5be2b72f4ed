package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dc-edux/sysedux-fleet/internal/config"
	"github.com/dc-edux/sysedux-fleet/internal/db"
	"github.com/dc-edux/sysedux-fleet/internal/probe"
	"github.com/dc-edux/sysedux-fleet/internal/usage"
)

type Collector struct {
	config *config.MimirConfig

	probeDuration *prometheus.HistogramVec
	probeUp       *prometheus.GaugeVec
	probesTotal   *prometheus.CounterVec

	usageUsers          *prometheus.GaugeVec
	usageStorageGB      *prometheus.GaugeVec
	usageStudents       *prometheus.GaugeVec
	usersUsagePercent   *prometheus.GaugeVec
	storageUsagePercent *prometheus.GaugeVec
	usageFetchFailures  *prometheus.CounterVec

	batchDuration *prometheus.HistogramVec
	batchSize     *prometheus.GaugeVec
	batchSkipped  *prometheus.CounterVec

	invoicesCreated *prometheus.CounterVec
}

func NewCollector(cfg config.MimirConfig) *Collector {
	return &Collector{
		config: &cfg,

		probeDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fleet_probe_duration_seconds",
				Help:    "Duration of tenant TCP probes in seconds",
				Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"tenant_id", "tenant_code", "address"},
		),

		probeUp: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fleet_probe_up",
				Help: "Whether the last probe of the tenant connected (1) or not (0)",
			},
			[]string{"tenant_id", "tenant_code", "address"},
		),

		probesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fleet_probes_total",
				Help: "Total number of tenant probes performed",
			},
			[]string{"tenant_id", "tenant_code", "result"},
		),

		usageUsers: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fleet_tenant_users",
				Help: "Current user count reported by the tenant instance",
			},
			[]string{"tenant_id", "tenant_code"},
		),

		usageStorageGB: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fleet_tenant_storage_gb",
				Help: "Current storage consumption of the tenant instance in GB",
			},
			[]string{"tenant_id", "tenant_code"},
		),

		usageStudents: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fleet_tenant_students",
				Help: "Current student count reported by the tenant instance",
			},
			[]string{"tenant_id", "tenant_code"},
		),

		usersUsagePercent: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fleet_tenant_users_usage_percent",
				Help: "User consumption against the plan limit, may exceed 100",
			},
			[]string{"tenant_id", "tenant_code", "plan_code"},
		),

		storageUsagePercent: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fleet_tenant_storage_usage_percent",
				Help: "Storage consumption against the plan limit, may exceed 100",
			},
			[]string{"tenant_id", "tenant_code", "plan_code"},
		),

		usageFetchFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fleet_usage_fetch_failures_total",
				Help: "Total number of failed usage fetches",
			},
			[]string{"tenant_id", "tenant_code"},
		),

		batchDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fleet_batch_duration_seconds",
				Help:    "Duration of one fleet-wide batch",
				Buckets: []float64{.1, .5, 1, 5, 15, 30, 60, 120},
			},
			[]string{"batch"},
		),

		batchSize: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fleet_batch_tenants",
				Help: "Number of tenants visited by the last batch",
			},
			[]string{"batch"},
		),

		batchSkipped: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fleet_batch_skipped_total",
				Help: "Ticks skipped because the previous batch was still running",
			},
			[]string{"batch"},
		),

		invoicesCreated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fleet_invoices_created_total",
				Help: "Total number of invoices created through the billing orchestrator",
			},
			[]string{"tenant_id", "tenant_code", "plan_code"},
		),
	}
}

func (c *Collector) RecordProbe(t *db.Tenant, result probe.Result) {
	c.probeDuration.WithLabelValues(t.ID, t.Code, result.Address).
		Observe(float64(result.LatencyMs) / 1000)

	up := 0.0
	outcome := "failure"
	if result.Success {
		up = 1.0
		outcome = "success"
	}
	c.probeUp.WithLabelValues(t.ID, t.Code, result.Address).Set(up)
	c.probesTotal.WithLabelValues(t.ID, t.Code, outcome).Inc()
}

func (c *Collector) RecordUsage(t *db.Tenant, snap usage.Snapshot) {
	c.usageUsers.WithLabelValues(t.ID, t.Code).Set(float64(snap.Users))
	c.usageStorageGB.WithLabelValues(t.ID, t.Code).Set(snap.StorageGB)
	c.usageStudents.WithLabelValues(t.ID, t.Code).Set(float64(snap.Students))
	c.usersUsagePercent.WithLabelValues(t.ID, t.Code, t.PlanCode).Set(t.UsersUsagePercent)
	c.storageUsagePercent.WithLabelValues(t.ID, t.Code, t.PlanCode).Set(t.StorageUsagePercent)
}

func (c *Collector) RecordUsageFetchFailure(t *db.Tenant) {
	c.usageFetchFailures.WithLabelValues(t.ID, t.Code).Inc()
}

func (c *Collector) RecordBatch(batch string, tenants int, seconds float64) {
	c.batchDuration.WithLabelValues(batch).Observe(seconds)
	c.batchSize.WithLabelValues(batch).Set(float64(tenants))
}

func (c *Collector) RecordBatchSkipped(batch string) {
	c.batchSkipped.WithLabelValues(batch).Inc()
}

func (c *Collector) RecordInvoiceCreated(t *db.Tenant) {
	c.invoicesCreated.WithLabelValues(t.ID, t.Code, t.PlanCode).Inc()
}
