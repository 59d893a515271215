package main

import (
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-block-scheduler/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-block-scheduler/internal/middleware"
	"github.com/noah-isme/sma-block-scheduler/internal/models"
	"github.com/noah-isme/sma-block-scheduler/internal/service"
	"github.com/noah-isme/sma-block-scheduler/pkg/config"
	"github.com/noah-isme/sma-block-scheduler/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-block-scheduler/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-block-scheduler/pkg/middleware/requestid"
)

type routerDeps struct {
	metrics   *service.MetricsService
	auth      internalmiddleware.TokenVerifier
	runs      *handler.ScheduleRunHandler
	catalog   *handler.CatalogHandler
	telemetry *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(deps.metrics, "/metrics", "/health", "/ready"))

	r.GET("/health", deps.telemetry.Health)
	r.GET("/ready", deps.telemetry.Ready)
	r.GET("/metrics", deps.telemetry.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	prefix := "/" + strings.Trim(cfg.APIPrefix, "/")
	if prefix == "/" {
		prefix = "/api/v1"
	}
	api := r.Group(prefix)
	api.GET("/metrics/summary", deps.telemetry.Snapshot)
	api.GET("/downloads/:token", deps.runs.Download)
	api.POST("/catalog/validate", deps.catalog.Validate)

	writers := internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleScheduler)
	runs := api.Group("/schedule-runs")
	runs.Use(internalmiddleware.OptionalJWT(deps.auth))
	runs.GET("", deps.runs.List)
	runs.GET("/:id", deps.runs.Get)
	runs.GET("/:id/assignment", deps.runs.Assignment)
	runs.GET("/:id/students", deps.runs.Students)
	runs.GET("/:id/students/:studentId", deps.runs.Student)
	runs.GET("/:id/lecturers", deps.runs.Lecturers)
	runs.GET("/:id/statistics", deps.runs.Statistics)
	runs.GET("/:id/warnings", deps.runs.Warnings)
	runs.POST("/:id/exports", deps.runs.Export)
	runs.POST("", internalmiddleware.JWT(deps.auth), writers, deps.runs.Create)
	runs.DELETE("/:id", internalmiddleware.JWT(deps.auth), writers, deps.runs.Delete)

	return r
}
