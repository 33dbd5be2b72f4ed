package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CreateInvoice bills one subscription cycle for the tenant.
func (h *Handler) CreateInvoice(c *gin.Context) {
	inv, err := h.billing.CreateInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, inv)
}

// GetTenantBilling returns the mirrored invoices together with the
// tenant's derived aggregates, recomputed so payments synced since the
// last write are reflected.
func (h *Handler) GetTenantBilling(c *gin.Context) {
	summary, err := h.billing.GetSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"invoices":       summary.Invoices,
		"invoice_count":  len(summary.Invoices),
		"total_invoiced": summary.TotalInvoiced,
		"total_paid":     summary.TotalPaid,
		"balance_due":    summary.BalanceDue,
	})
}

// SyncInvoice pulls the invoice's current state and amounts from the
// accounting system and refreshes the tenant's aggregates.
func (h *Handler) SyncInvoice(c *gin.Context) {
	inv, err := h.billing.SyncInvoice(c.Request.Context(), c.Param("invoice_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}
