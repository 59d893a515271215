package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-block-scheduler/api/swagger"
	"github.com/noah-isme/sma-block-scheduler/internal/handler"
	"github.com/noah-isme/sma-block-scheduler/internal/repository"
	"github.com/noah-isme/sma-block-scheduler/internal/scheduler"
	"github.com/noah-isme/sma-block-scheduler/internal/service"
	"github.com/noah-isme/sma-block-scheduler/migrations"
	"github.com/noah-isme/sma-block-scheduler/pkg/cache"
	"github.com/noah-isme/sma-block-scheduler/pkg/config"
	"github.com/noah-isme/sma-block-scheduler/pkg/database"
	"github.com/noah-isme/sma-block-scheduler/pkg/jobs"
	"github.com/noah-isme/sma-block-scheduler/pkg/logger"
	"github.com/noah-isme/sma-block-scheduler/pkg/storage"
)

// @title Block Scheduler API
// @version 1.0.0
// @description Assigns course sections to blocks, rooms and lecturers and enrols students.
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	if _, err := database.Migrate(ctx, db, migrations.Files, logr); err != nil {
		logr.Fatal("failed to apply migrations", zap.Error(err))
	}

	metricsSvc := service.NewMetricsService()

	checks := map[string]handler.Pinger{"postgres": db}
	var cacheRepo service.CacheRepository
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, run views will not be cached", zap.Error(err))
		} else {
			defer redisClient.Close() //nolint:errcheck
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
			checks["redis"] = redisPinger(redisClient)
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, cacheRepo != nil)

	exportStorage, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare export storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exportSvc := service.NewExportService(exportStorage, signer, service.ExportConfig{
		APIPrefix:       cfg.APIPrefix,
		Retention:       cfg.Exports.Retention,
		CleanupInterval: cfg.Exports.CleanupInterval,
	}, logr)

	runCfg := service.ScheduleRunConfig{
		Defaults:   scheduler.OptionsFromConfig(cfg.Scheduler),
		RandomSeed: cfg.Scheduler.RandomSeed,
		RunTimeout: cfg.Scheduler.RunTimeout,
	}
	runRepo := repository.NewScheduleRunRepository(db, metricsSvc)
	executor := service.NewRunExecutor(runRepo, metricsSvc, logr, runCfg)
	worker := service.NewScheduleRunWorker(runRepo, executor, logr)
	queue := jobs.NewQueue("schedule_runs", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Worker.Workers,
		BufferSize: cfg.Worker.BufferSize,
		MaxRetries: cfg.Worker.MaxRetries,
		RetryDelay: cfg.Worker.RetryDelay,
		OnDead:     worker.OnDead,
		Logger:     logr,
	})
	queue.Start(ctx)

	validate := validator.New()
	runSvc := service.NewScheduleRunService(runRepo, executor, queue, exportSvc, cacheSvc, validate, logr, runCfg)
	catalogSvc := service.NewCatalogService(runCfg.Defaults, logr)
	authSvc := service.NewAuthService(logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		Issuer:            cfg.JWT.Issuer,
	})

	router := newRouter(cfg, logr, routerDeps{
		metrics:   metricsSvc,
		auth:      authSvc,
		runs:      handler.NewScheduleRunHandler(runSvc, exportSvc),
		catalog:   handler.NewCatalogHandler(catalogSvc),
		telemetry: handler.NewMetricsHandler(metricsSvc, checks),
	})

	go func() {
		if recovered := runSvc.RecoverPending(ctx); recovered > 0 {
			logr.Info("re-enqueued pending schedule runs", zap.Int("count", recovered))
		}
	}()
	go exportSvc.StartCleanup(ctx)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server shutdown failed", zap.Error(err))
	}
	queue.Stop()
}

func redisPinger(client *redis.Client) handler.PingFunc {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
