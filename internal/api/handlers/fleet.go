package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// FleetOverview is the dashboard summary: composition by status plus
// reachability and quota pressure across the probed portion of the
// fleet.
type FleetOverview struct {
	Total       int            `json:"total"`
	ByStatus    map[string]int `json:"by_status"`
	Online      int            `json:"online"`
	Offline     int            `json:"offline"`
	OverQuota   int            `json:"over_quota"`
	GeneratedAt time.Time      `json:"generated_at"`
}

func (h *Handler) GetFleetOverview(c *gin.Context) {
	ctx := c.Request.Context()

	if h.cache != nil {
		var cached FleetOverview
		if err := h.cache.GetCachedFleetOverview(ctx, &cached); err == nil {
			c.JSON(http.StatusOK, cached)
			return
		}
	}

	overview, err := h.buildFleetOverview()
	if err != nil {
		h.respondError(c, err)
		return
	}

	if h.cache != nil {
		if err := h.cache.CacheFleetOverview(ctx, overview); err != nil {
			h.logger.Warn("Failed to cache fleet overview", zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, overview)
}

func (h *Handler) buildFleetOverview() (*FleetOverview, error) {
	counts, err := h.repo.CountTenantsByStatus()
	if err != nil {
		return nil, err
	}

	overview := &FleetOverview{
		ByStatus:    make(map[string]int, len(counts)),
		GeneratedAt: h.clock.Now(),
	}
	for status, n := range counts {
		overview.ByStatus[string(status)] = n
		overview.Total += n
	}

	fleet, err := h.repo.GetFleetToCheck()
	if err != nil {
		return nil, err
	}
	now := h.clock.Now()
	for _, t := range fleet {
		if t.Online(now) {
			overview.Online++
		} else {
			overview.Offline++
		}
		if t.UsersUsagePercent >= 100 || t.StorageUsagePercent >= 100 {
			overview.OverQuota++
		}
	}
	return overview, nil
}

// RunHealthBatch triggers an immediate probe pass outside the regular
// cadence. Returns 409 when one is already running.
func (h *Handler) RunHealthBatch(c *gin.Context) {
	results, err := h.sched.RunHealthBatch(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	if results == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Health batch already running"})
		return
	}

	reachable := 0
	for _, ok := range results {
		if ok {
			reachable++
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"checked":   len(results),
		"reachable": reachable,
	})
}

// RunUsageBatch triggers an immediate usage collection pass.
func (h *Handler) RunUsageBatch(c *gin.Context) {
	if err := h.sched.RunUsageBatch(c.Request.Context()); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Usage collection completed"})
}

// RefreshTenant runs a one-off probe and usage collection for one
// tenant, without waiting for the next batch.
func (h *Handler) RefreshTenant(c *gin.Context) {
	t, err := h.tenants.Get(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	result, err := h.sched.RefreshTenant(c.Request.Context(), t)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.audit.Record(c.Request.Context(), t.ID, "Health and usage refreshed on demand.")

	fresh, err := h.tenants.Get(t.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tenant":     h.tenantView(fresh),
		"reachable":  result.Success,
		"latency_ms": result.LatencyMs,
	})
}
