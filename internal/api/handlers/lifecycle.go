package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *Handler) StartTrial(c *gin.Context) {
	t, err := h.lifecycle.StartTrial(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.invalidateOverview(c)
	c.JSON(http.StatusOK, h.tenantView(t))
}

func (h *Handler) ActivateTenant(c *gin.Context) {
	t, err := h.lifecycle.Activate(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.invalidateOverview(c)
	c.JSON(http.StatusOK, h.tenantView(t))
}

func (h *Handler) SuspendTenant(c *gin.Context) {
	t, err := h.lifecycle.Suspend(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.invalidateOverview(c)
	c.JSON(http.StatusOK, h.tenantView(t))
}

func (h *Handler) CancelTenant(c *gin.Context) {
	t, err := h.lifecycle.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.invalidateOverview(c)
	c.JSON(http.StatusOK, h.tenantView(t))
}

// invalidateOverview drops the cached fleet overview after a status
// change. Best effort, the cache expires on its own anyway.
func (h *Handler) invalidateOverview(c *gin.Context) {
	if h.cache == nil {
		return
	}
	if err := h.cache.InvalidateFleetOverview(c.Request.Context()); err != nil {
		h.logger.Warn("Failed to invalidate fleet overview cache", zap.Error(err))
	}
}
