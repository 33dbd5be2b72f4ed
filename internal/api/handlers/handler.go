package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dc-edux/sysedux-fleet/internal/audit"
	"github.com/dc-edux/sysedux-fleet/internal/billing"
	"github.com/dc-edux/sysedux-fleet/internal/core"
	"github.com/dc-edux/sysedux-fleet/internal/db"
	"github.com/dc-edux/sysedux-fleet/internal/lifecycle"
	"github.com/dc-edux/sysedux-fleet/internal/plan"
	"github.com/dc-edux/sysedux-fleet/internal/probe"
	"github.com/dc-edux/sysedux-fleet/internal/scheduler"
	"github.com/dc-edux/sysedux-fleet/internal/storage/redis"
	"github.com/dc-edux/sysedux-fleet/internal/tenant"
)

type Handler struct {
	repo      *db.Repository
	plans     *plan.Service
	tenants   *tenant.Service
	lifecycle *lifecycle.Service
	billing   *billing.Service
	sched     *scheduler.Scheduler
	domains   *probe.DomainChecker
	cache     *redis.Client
	audit     audit.Sink
	clock     core.Clock
	logger    *zap.Logger
}

func NewHandler(
	repo *db.Repository,
	plans *plan.Service,
	tenants *tenant.Service,
	lc *lifecycle.Service,
	billing *billing.Service,
	sched *scheduler.Scheduler,
	domains *probe.DomainChecker,
	cache *redis.Client,
	sink audit.Sink,
	clock core.Clock,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		repo:      repo,
		plans:     plans,
		tenants:   tenants,
		lifecycle: lc,
		billing:   billing,
		sched:     sched,
		domains:   domains,
		cache:     cache,
		audit:     sink,
		clock:     clock,
		logger:    logger,
	}
}

// respondError maps service errors onto HTTP statuses. Unknown errors
// are logged and masked as a plain 500.
func (h *Handler) respondError(c *gin.Context, err error) {
	var (
		validationErr *core.ValidationError
		conflictErr   *core.ConflictError
		depErr        *core.DependencyError
	)

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
	case errors.As(err, &conflictErr):
		c.JSON(http.StatusConflict, gin.H{"error": conflictErr.Error()})
	case errors.Is(err, lifecycle.ErrTerminal):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, core.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.As(err, &depErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": depErr.Error()})
	default:
		h.logger.Error("Request failed",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
