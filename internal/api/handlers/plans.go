package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dc-edux/sysedux-fleet/internal/plan"
)

type createPlanRequest struct {
	Code string `json:"code" binding:"required"`
	plan.Spec
}

func (h *Handler) CreatePlan(c *gin.Context) {
	var req createPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.plans.Create(req.Code, req.Spec)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) ListPlans(c *gin.Context) {
	includeArchived := c.Query("include_archived") == "true"

	plans, err := h.plans.List(includeArchived)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plans": plans})
}

func (h *Handler) GetPlan(c *gin.Context) {
	p, err := h.plans.Get(c.Param("code"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	tenantCount, err := h.repo.CountTenantsByPlan(p.Code)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"plan":         p,
		"display_name": p.DisplayName(),
		"tenant_count": tenantCount,
	})
}

func (h *Handler) UpdatePlan(c *gin.Context) {
	var spec plan.Spec
	if err := c.ShouldBindJSON(&spec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.plans.Update(c.Param("code"), spec)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) ArchivePlan(c *gin.Context) {
	if err := h.plans.Archive(c.Param("code")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Plan archived"})
}
