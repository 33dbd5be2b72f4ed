package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetTenantDomainDiagnostics resolves the tenant's full domain and
// pulls its WHOIS registration data. Nothing here is persisted; it is
// an on-demand report for support work.
func (h *Handler) GetTenantDomainDiagnostics(c *gin.Context) {
	t, err := h.tenants.Get(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	if t.FullDomain == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Tenant has no domain configured"})
		return
	}

	diag, err := h.domains.Check(t.FullDomain)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, diag)
}
