package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/hrms-approval-api/api/swagger"
	"github.com/noah-isme/hrms-approval-api/internal/handler"
	"github.com/noah-isme/hrms-approval-api/internal/middleware"
	"github.com/noah-isme/hrms-approval-api/internal/models"
	"github.com/noah-isme/hrms-approval-api/internal/repository"
	"github.com/noah-isme/hrms-approval-api/internal/service"
	"github.com/noah-isme/hrms-approval-api/pkg/cache"
	"github.com/noah-isme/hrms-approval-api/pkg/config"
	"github.com/noah-isme/hrms-approval-api/pkg/database"
	"github.com/noah-isme/hrms-approval-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/hrms-approval-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/hrms-approval-api/pkg/middleware/requestid"
)

// @title HRMS Approval API
// @version 1.0.0
// @description Multi-level approval workflow engine
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Approvals.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, summary cache disabled", "error", err)
		} else {
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Approvals.SummaryCacheTTL, logr, true)
			defer cacheRepo.Close() //nolint:errcheck
		}
	}

	userRepo := repository.NewUserRepository(db)
	policyRepo := repository.NewPolicyRepository(db)
	stepRepo := repository.NewStepRepository(db)
	delegationRepo := repository.NewDelegationRepository(db)

	authSvc := service.NewAuthService(userRepo, validator.New(), logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "hrms-approval-api",
	})
	authorizer := service.NewAuthorizer(userRepo, delegationRepo)
	policySvc := service.NewPolicyService(policyRepo, userRepo, logr)
	approvalSvc := service.NewApprovalService(stepRepo, authorizer, userRepo, cacheSvc, metricsSvc, logr)
	querySvc := service.NewChainQueryService(stepRepo, userRepo, delegationRepo, cacheSvc, cfg.Approvals.SummaryCacheTTL, logr)
	delegationSvc := service.NewDelegationService(delegationRepo, userRepo, userRepo, logr)
	exportSvc := service.NewExportService(stepRepo, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	approvalHandler := handler.NewApprovalHandler(approvalSvc, querySvc, policySvc, authorizer, exportSvc, approvalSvc)
	policyHandler := handler.NewPolicyHandler(policySvc)
	delegationHandler := handler.NewDelegationHandler(delegationSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group("/api/v1")

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)

		authed := auth.Group("")
		authed.Use(middleware.JWT(authSvc))
		authed.POST("/logout", authHandler.Logout)
		authed.POST("/change-password", authHandler.ChangePassword)
		authed.GET("/me", authHandler.Me)
	}

	approvals := api.Group("/approvals")
	approvals.Use(middleware.JWT(authSvc))
	{
		approvals.POST("/chains", approvalHandler.InitializeChain)
		approvals.GET("/chains/:module/:entityId", approvalHandler.GetChainSteps)
		approvals.GET("/chains/:module/:entityId/summary", approvalHandler.GetChainSummary)
		approvals.GET("/chains/:module/:entityId/current", approvalHandler.GetCurrentStep)
		approvals.GET("/chains/:module/:entityId/exists", approvalHandler.ChainExists)
		if cfg.Approvals.ExportEnabled {
			approvals.GET("/chains/:module/:entityId/export", approvalHandler.ExportChain)
		}
		approvals.POST("/steps/:id/decision", approvalHandler.DecideStep)
		approvals.GET("/steps/:id/authorization", approvalHandler.CheckAuthorization)
		approvals.GET("/pending", approvalHandler.PendingApprovals)

		admin := approvals.Group("")
		admin.Use(middleware.RequireAdmin())
		admin.Use(middleware.Audit(userRepo, models.AuditActionAdminRequest, "approval_chain"))
		admin.POST("/chains/:module/:entityId/bypass", approvalHandler.BypassChain)
		admin.DELETE("/chains/:module/:entityId", approvalHandler.DeleteChain)
	}

	policies := api.Group("/approval-policies")
	policies.Use(middleware.JWT(authSvc))
	{
		policies.POST("/resolve", policyHandler.Resolve)

		admin := policies.Group("")
		admin.Use(middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin))
		admin.Use(middleware.Audit(userRepo, models.AuditActionAdminRequest, "approval_policy"))
		admin.GET("", policyHandler.List)
		admin.GET("/:id", policyHandler.Get)
		admin.POST("", policyHandler.Create)
		admin.PUT("/:id", policyHandler.Update)
		admin.DELETE("/:id", policyHandler.Delete)
	}

	delegations := api.Group("/delegations")
	delegations.Use(middleware.JWT(authSvc))
	{
		delegations.GET("", delegationHandler.List)
		delegations.POST("", delegationHandler.Create)
		delegations.DELETE("/:id", delegationHandler.Revoke)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
