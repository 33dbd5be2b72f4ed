package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dc-edux/sysedux-fleet/internal/db"
	"github.com/dc-edux/sysedux-fleet/internal/tenant"
)

type tenantResponse struct {
	*db.Tenant
	Online bool `json:"online"`
}

func (h *Handler) tenantView(t *db.Tenant) tenantResponse {
	return tenantResponse{Tenant: t, Online: t.Online(h.clock.Now())}
}

func (h *Handler) CreateTenant(c *gin.Context) {
	var spec tenant.Spec
	if err := c.ShouldBindJSON(&spec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	t, err := h.tenants.Create(spec)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.tenantView(t))
}

func (h *Handler) ListTenants(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	tenants, total, err := h.tenants.List(limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}

	views := make([]tenantResponse, 0, len(tenants))
	for _, t := range tenants {
		views = append(views, h.tenantView(t))
	}

	c.JSON(http.StatusOK, gin.H{
		"tenants": views,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

func (h *Handler) GetTenant(c *gin.Context) {
	t, err := h.tenants.Get(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	invoiceCount, err := h.tenants.InvoiceCount(t.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tenant":        h.tenantView(t),
		"invoice_count": invoiceCount,
	})
}

// GetTenantByCode resolves a tenant by its fleet code. Support staff
// work with codes, not UUIDs.
func (h *Handler) GetTenantByCode(c *gin.Context) {
	t, err := h.tenants.GetByCode(c.Param("code"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	invoiceCount, err := h.tenants.InvoiceCount(t.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tenant":        h.tenantView(t),
		"invoice_count": invoiceCount,
	})
}

func (h *Handler) UpdateTenant(c *gin.Context) {
	var spec tenant.Spec
	if err := c.ShouldBindJSON(&spec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	t, err := h.tenants.Update(c.Param("id"), spec)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.tenantView(t))
}

// GetTenantAuditTrail returns the newest audit events for one tenant.
func (h *Handler) GetTenantAuditTrail(c *gin.Context) {
	t, err := h.tenants.Get(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	events, err := h.repo.ListAuditEvents(t.ID, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}
