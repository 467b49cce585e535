package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/shift-rota-api/api/swagger"
	"github.com/noah-isme/shift-rota-api/internal/handler"
	internalmiddleware "github.com/noah-isme/shift-rota-api/internal/middleware"
	"github.com/noah-isme/shift-rota-api/internal/repository"
	"github.com/noah-isme/shift-rota-api/internal/service"
	"github.com/noah-isme/shift-rota-api/pkg/cache"
	"github.com/noah-isme/shift-rota-api/pkg/config"
	"github.com/noah-isme/shift-rota-api/pkg/database"
	"github.com/noah-isme/shift-rota-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/shift-rota-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/shift-rota-api/pkg/middleware/requestid"
)

// @title Shift Rota API
// @version 1.0.0
// @description Historical shift scheduling: subjects, slots, availability snapshots and a chain of generated schedules.
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db, logr); err != nil {
			logr.Fatal("failed to migrate database", zap.Error(err))
		}
	}

	metrics := service.NewMetricsService()
	validate := validator.New()

	cacheRepo := repository.NewCacheRepository(nil, logr)
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
			cfg.Cache.Enabled = false
		} else {
			cacheRepo = repository.NewCacheRepository(client, logr)
		}
	}
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled)

	subjectRepo := repository.NewSubjectRepository(db)
	slotRepo := repository.NewSlotRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	paramsRepo := repository.NewParametersRepository(db)

	subjectSvc := service.NewSubjectService(subjectRepo, validate, logr)
	slotSvc := service.NewSlotService(slotRepo, validate, logr)
	paramsSvc := service.NewParametersService(db, paramsRepo, scheduleRepo, availabilityRepo, validate, logr)
	availabilitySvc := service.NewAvailabilityService(db, availabilityRepo, subjectRepo, slotRepo, paramsRepo, cacheSvc, validate, logr)
	scheduleSvc := service.NewScheduleService(db, scheduleRepo, paramsRepo, cacheSvc, metrics, cfg.Scheduler, cfg.Export, validate, logr)

	var warmer *service.ScheduleCacheWarmer
	if cfg.Cache.Enabled {
		warmer = service.NewScheduleCacheWarmer(scheduleSvc, cfg.Cache.WarmWorkers, logr)
		warmer.Start(ctx)
		defer warmer.Stop()
	}
	generatorSvc := service.NewScheduleGeneratorService(db, scheduleRepo, paramsRepo, availabilitySvc, warmer, metrics, cfg.Scheduler, validate, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	metricsHandler := handler.NewMetricsHandler(metrics, db)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.Handlers{
		Subjects:     handler.NewSubjectHandler(subjectSvc),
		Slots:        handler.NewSlotHandler(slotSvc),
		Parameters:   handler.NewParametersHandler(paramsSvc),
		Availability: handler.NewAvailabilityHandler(availabilitySvc),
		Schedules:    handler.NewScheduleHandler(scheduleSvc),
		Generator:    handler.NewScheduleGeneratorHandler(generatorSvc),
	}.Register(r.Group(cfg.APIPrefix))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Error("server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}
