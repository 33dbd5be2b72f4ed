package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/dc-edux/sysedux-fleet/internal/api/handlers"
	"github.com/dc-edux/sysedux-fleet/internal/api/middleware"
	"github.com/dc-edux/sysedux-fleet/internal/config"
	"github.com/dc-edux/sysedux-fleet/internal/db"
)

// NewRouter wires the management API: operator auth, the plan
// catalog, tenant administration, lifecycle actions, billing and the
// fleet dashboard endpoints.
func NewRouter(cfg *config.Config, repo *db.Repository, h *handlers.Handler, logger *zap.Logger) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()

	router.Use(middleware.Logger(logger))
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())

	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authHandler := handlers.NewAuthHandler(repo, &cfg.Auth)
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.RefreshToken)
	}

	api := router.Group("/api/v1")
	api.Use(middleware.AuthRequired(cfg.Auth.JWTSecret))

	{
		api.GET("/plans", h.ListPlans)
		api.POST("/plans", h.CreatePlan)
		api.GET("/plans/:code", h.GetPlan)
		api.PUT("/plans/:code", h.UpdatePlan)
		api.POST("/plans/:code/archive", h.ArchivePlan)
	}

	{
		api.GET("/tenants", h.ListTenants)
		api.POST("/tenants", h.CreateTenant)
		api.GET("/tenants/:id", h.GetTenant)
		api.GET("/tenants/by-code/:code", h.GetTenantByCode)
		api.PUT("/tenants/:id", h.UpdateTenant)
		api.GET("/tenants/:id/audit", h.GetTenantAuditTrail)
		api.GET("/tenants/:id/domain", h.GetTenantDomainDiagnostics)
		api.POST("/tenants/:id/refresh", h.RefreshTenant)

		api.POST("/tenants/:id/start-trial", h.StartTrial)
		api.POST("/tenants/:id/activate", h.ActivateTenant)
		api.POST("/tenants/:id/suspend", h.SuspendTenant)
		api.POST("/tenants/:id/cancel", h.CancelTenant)

		api.POST("/tenants/:id/invoices", h.CreateInvoice)
		api.GET("/tenants/:id/billing", h.GetTenantBilling)
	}

	{
		api.POST("/invoices/:invoice_id/sync", h.SyncInvoice)
	}

	{
		api.GET("/fleet/overview", h.GetFleetOverview)
		api.POST("/fleet/health-check", h.RunHealthBatch)
		api.POST("/fleet/usage-collection", h.RunUsageBatch)
	}

	return router
}
