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
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/smart-allotment-api/api/swagger"
	"github.com/noah-isme/smart-allotment-api/internal/handler"
	"github.com/noah-isme/smart-allotment-api/internal/middleware"
	"github.com/noah-isme/smart-allotment-api/internal/models"
	"github.com/noah-isme/smart-allotment-api/internal/repository"
	"github.com/noah-isme/smart-allotment-api/internal/service"
	"github.com/noah-isme/smart-allotment-api/pkg/cache"
	"github.com/noah-isme/smart-allotment-api/pkg/config"
	"github.com/noah-isme/smart-allotment-api/pkg/database"
	"github.com/noah-isme/smart-allotment-api/pkg/jobs"
	"github.com/noah-isme/smart-allotment-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/smart-allotment-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/smart-allotment-api/pkg/middleware/requestid"
	"github.com/noah-isme/smart-allotment-api/pkg/storage"
)

// @title Smart Allotment API
// @version 1.0.0
// @description Room allotment engine and booking ledger
// @BasePath /api/v1
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

	loc, err := time.LoadLocation(cfg.Allotment.Timezone)
	if err != nil {
		logr.Fatal("invalid allotment timezone", zap.String("timezone", cfg.Allotment.Timezone), zap.Error(err))
	}

	metricsSvc := service.NewMetricsService()
	validate := validator.New()
	checks := map[string]handler.ReadinessCheck{}

	var db *sqlx.DB
	ledgerParams := service.LedgerServiceParams{Metrics: metricsSvc, Validator: validate, Logger: logr, Location: loc}
	if cfg.Ledger.PersistenceEnabled {
		db, err = database.NewPostgres(cfg.Database)
		if err != nil {
			logr.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer db.Close() //nolint:errcheck
		checks["postgres"] = db.PingContext

		rooms, err := repository.NewRoomRepository(db).EnsureCatalog(ctx, models.DefaultCatalog())
		if err != nil {
			logr.Fatal("failed to load room catalog", zap.Error(err))
		}
		ledgerParams.Rooms = rooms
		ledgerParams.Bookings = repository.NewBookingRepository(db)
		ledgerParams.Advisories = repository.NewAdvisoryRequestRepository(db)
	}

	var redisClient *redis.Client
	if cfg.Allotment.CacheEnabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, allotment cache disabled", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close() //nolint:errcheck
		}
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	if redisClient != nil {
		checks["redis"] = cacheRepo.Ping
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Allotment.CacheTTL, logr, redisClient != nil)

	ledgerSvc := service.NewLedgerService(ledgerParams)
	if err := ledgerSvc.Load(ctx); err != nil {
		logr.Fatal("failed to load ledger", zap.Error(err))
	}
	if cfg.Ledger.SeedFile != "" {
		seeder := service.NewTimetableSeeder(ledgerSvc, loc, logr)
		if _, err := seeder.SeedFile(ctx, cfg.Ledger.SeedFile, cfg.Ledger.SeedFrom, cfg.Ledger.SeedWeeks); err != nil {
			logr.Fatal("failed to seed timetable", zap.Error(err))
		}
	}

	allotmentSvc := service.NewAllotmentService(service.AllotmentServiceParams{
		Cache:     cacheSvc,
		Metrics:   metricsSvc,
		Validator: validate,
		Logger:    logr,
		Config: service.AllotmentServiceConfig{
			DefaultWeights:    cfg.Allotment.DefaultWeights,
			DefaultMinGap:     cfg.Allotment.DefaultMinGap,
			GenderScopedTypes: cfg.Allotment.GenderScopedTypes,
			Location:          loc,
			CacheTTL:          cfg.Allotment.CacheTTL,
			MaxRequests:       cfg.Allotment.MaxRequestsPerCall,
		},
	})
	tokenSvc := service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer, Expiry: cfg.JWT.Expiration})

	var exportHandler *handler.ExportHandler
	if cfg.Exports.Enabled {
		exportHandler = setupExports(ctx, cfg, ledgerSvc, metricsSvc, validate, logr)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	metricsHandler := handler.NewMetricsHandler(metricsSvc, checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta(), middleware.OptionalJWT(tokenSvc))
	registerRoutes(api, routeDeps{
		allotment: handler.NewAllotmentHandler(allotmentSvc),
		ledger:    handler.NewLedgerHandler(ledgerSvc),
		exports:   exportHandler,
		metrics:   metricsHandler,
		tokens:    tokenSvc,
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logr.Error("graceful shutdown failed", zap.Error(err))
		}
	}()

	logr.Sugar().Infow("server starting", "addr", server.Addr, "env", cfg.Env, "rooms", len(ledgerSvc.Rooms()), "bookings", ledgerSvc.Len())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
	logr.Info("server stopped")
}

type routeDeps struct {
	allotment *handler.AllotmentHandler
	ledger    *handler.LedgerHandler
	exports   *handler.ExportHandler
	metrics   *handler.MetricsHandler
	tokens    middleware.TokenValidator
}

func registerRoutes(api *gin.RouterGroup, deps routeDeps) {
	api.POST("/run-allotment", deps.allotment.Run)
	api.DELETE("/run-allotment/cache", middleware.JWT(deps.tokens), middleware.RequireRoles(models.RoleAdmin), deps.allotment.PurgeCache)

	api.POST("/bookings", deps.ledger.BookSlot)
	api.DELETE("/bookings", deps.ledger.Clear)
	api.DELETE("/bookings/:id", deps.ledger.CancelSlot)
	api.POST("/requests", deps.ledger.SubmitRequest)
	api.GET("/requests", deps.ledger.Requests)
	api.GET("/schedule", deps.ledger.Schedule)
	api.GET("/rooms/vacant", deps.ledger.VacantRooms)

	api.GET("/metrics/summary", middleware.JWT(deps.tokens), middleware.RequireRoles(models.RoleAdmin), deps.metrics.Summary)

	if deps.exports != nil {
		api.POST("/schedule/exports", deps.exports.Create)
		api.GET("/schedule/exports/:id", deps.exports.Status)
		api.GET("/export/:token", deps.exports.Download)
	}
}

func setupExports(ctx context.Context, cfg *config.Config, ledger *service.LedgerService, metrics *service.MetricsService, validate *validator.Validate, logr *zap.Logger) *handler.ExportHandler {
	files, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare export storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exporter := service.NewExportService(ledger, files, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Exports.SignedURLTTL,
	}, logr)

	jobsSvc := service.NewExportJobService(service.ExportJobServiceParams{
		Exporter:  exporter,
		Metrics:   metrics,
		Validator: validate,
		Logger:    logr,
		Config: service.ExportJobServiceConfig{
			ResultTTL:       cfg.Exports.SignedURLTTL,
			CleanupInterval: cfg.Exports.CleanupInterval,
		},
	})
	queue := jobs.NewQueue("schedule-exports", jobsSvc.Handle, jobs.QueueConfig{
		Workers:     cfg.Exports.WorkerConcurrency,
		MaxRetries:  cfg.Exports.WorkerRetries,
		RetryDelay:  2 * time.Second,
		Logger:      logr,
		OnExhausted: jobsSvc.MarkExhausted,
	})
	jobsSvc.UseQueue(queue)
	queue.Start(ctx)
	jobsSvc.StartCleanup(ctx)
	go func() {
		<-ctx.Done()
		queue.Stop()
	}()
	return handler.NewExportHandler(jobsSvc)
}
