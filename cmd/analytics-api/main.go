package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/narin-dev/lms-analytics-api/api/swagger"
	"github.com/narin-dev/lms-analytics-api/internal/handler"
	"github.com/narin-dev/lms-analytics-api/internal/middleware"
	"github.com/narin-dev/lms-analytics-api/internal/models"
	"github.com/narin-dev/lms-analytics-api/internal/repository"
	"github.com/narin-dev/lms-analytics-api/internal/service"
	"github.com/narin-dev/lms-analytics-api/pkg/config"
	"github.com/narin-dev/lms-analytics-api/pkg/docstore"
	"github.com/narin-dev/lms-analytics-api/pkg/logger"
	corsmiddleware "github.com/narin-dev/lms-analytics-api/pkg/middleware/cors"
	reqidmiddleware "github.com/narin-dev/lms-analytics-api/pkg/middleware/requestid"
)

// @title LMS Analytics API
// @version 0.1.0
// @description Admin learning statistics derived from the platform document store
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

	store, err := docstore.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("document store unavailable", "error", err)
	}
	defer store.Close() //nolint:errcheck

	metrics := service.NewMetricsService()

	// Redis is optional: without it every request recomputes the report.
	var cacheSvc *service.CacheService
	redisClient, err := repository.NewRedisClient(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		cacheSvc = service.NewCacheService(nil, metrics, cfg.Analytics.CacheTTL, logr, false)
	} else {
		defer redisClient.Close() //nolint:errcheck
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Analytics.CacheTTL, logr, true)
	}

	statsSvc := service.NewLearningStatsService(service.LearningStatsParams{
		Enrollments: repository.NewEnrollmentRepository(store),
		Courses:     repository.NewCourseRepository(store),
		Progress:    repository.NewProgressRepository(store),
		Activity:    repository.NewActivityRepository(store),
		Cache:       cacheSvc,
		Metrics:     metrics,
		Logger:      logr,
		Config:      cfg.Analytics,
	})
	authSvc := service.NewAuthService(cfg.JWT)
	exportSvc := service.NewExportService()

	warmer := service.NewReportWarmer(statsSvc, cfg.Analytics, logr)
	warmer.Start(context.Background())
	defer warmer.Stop()

	statsHandler := handler.NewLearningStatsHandler(statsSvc, exportSvc)
	metricsHandler := handler.NewMetricsHandler(metrics, store)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	admin := r.Group(cfg.APIPrefix + "/admin")
	admin.Use(middleware.JWT(authSvc))
	admin.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin))
	admin.GET("/learning-stats", statsHandler.Report)
	admin.POST("/learning-stats/refresh", statsHandler.Refresh)
	admin.GET("/learning-stats/export", statsHandler.Export)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Sugar().Infow("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Sugar().Errorw("shutdown failed", "error", err)
	}
}
