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
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/class-points-api/api/swagger"
	"github.com/noah-isme/class-points-api/internal/handler"
	internalmiddleware "github.com/noah-isme/class-points-api/internal/middleware"
	"github.com/noah-isme/class-points-api/internal/repository"
	"github.com/noah-isme/class-points-api/internal/service"
	"github.com/noah-isme/class-points-api/pkg/cache"
	"github.com/noah-isme/class-points-api/pkg/config"
	"github.com/noah-isme/class-points-api/pkg/database"
	"github.com/noah-isme/class-points-api/pkg/jobs"
	"github.com/noah-isme/class-points-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/class-points-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/class-points-api/pkg/middleware/requestid"
	"github.com/noah-isme/class-points-api/pkg/storage"
)

// @title Class Points API
// @version 1.0.0
// @description Weekly class points leaderboard.
// @BasePath /api/v1
// @schemes http

type submissionStore interface {
	service.SubmissionReader
	service.SubmissionWriter
}

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	metricsSvc := service.NewMetricsService()

	var db *sqlx.DB
	if cfg.Store.Backend == config.StoreBackendPostgres || cfg.Exports.Enabled {
		db, err = database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			logr.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer db.Close()
	}

	var store submissionStore
	switch cfg.Store.Backend {
	case config.StoreBackendDynamoDB:
		ddb, err := database.NewDynamoDB(ctx, cfg.DynamoDB)
		if err != nil {
			logr.Fatal("failed to configure dynamodb", zap.Error(err))
		}
		store = repository.NewDynamoSubmissionRepository(ddb, cfg.DynamoDB.SubmissionsTable, cfg.DynamoDB.UsersTable, cfg.DynamoDB.ClassIndex)
	default:
		store = repository.NewSubmissionRepository(db)
	}
	logr.Info("submission store ready", zap.String("backend", cfg.Store.Backend))

	var cacheRepo service.CacheRepository
	if cfg.Redis.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, leaderboard cache disabled", zap.Error(err))
		} else {
			repo := repository.NewCacheRepository(client, logr)
			defer repo.Close() //nolint:errcheck
			cacheRepo = repo
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Leaderboard.CacheTTL, logr, cacheRepo != nil)

	catalog, err := service.LoadOutcomeCatalog(cfg.Leaderboard.CatalogFile)
	if err != nil {
		logr.Fatal("failed to load outcome catalog", zap.String("path", cfg.Leaderboard.CatalogFile), zap.Error(err))
	}

	leaderboardSvc := service.NewLeaderboardService(store, catalog, cacheSvc, metricsSvc, logr, service.LeaderboardConfig{
		WeekDays:     cfg.Leaderboard.WeekDays,
		ClassBonus:   cfg.Leaderboard.ClassBonus,
		Workers:      cfg.Leaderboard.Workers,
		ClassTimeout: cfg.Leaderboard.ClassTimeout,
		CacheTTL:     cfg.Leaderboard.CacheTTL,
	})
	validate := validator.New()
	activitySvc := service.NewActivityService(store, catalog, leaderboardSvc, validate, logr)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))
	r.Use(internalmiddleware.WithResponseMeta())

	metricsHandler := handler.NewMetricsHandler(metricsSvc)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if db != nil {
			if err := db.PingContext(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.GET("/metrics/summary", metricsHandler.Summary)

	leaderboardHandler := handler.NewLeaderboardHandler(leaderboardSvc, cfg.Leaderboard.Classes)
	api.GET("/outcomes", leaderboardHandler.Outcomes)
	board := api.Group("/leaderboard")
	board.GET("", leaderboardHandler.Leaderboard)
	board.GET("/classes/:id", leaderboardHandler.ClassSummary)
	board.GET("/classes/:id/days", leaderboardHandler.ClassDays)
	board.GET("/classes/:id/top", leaderboardHandler.TopPerformers)

	activityHandler := handler.NewActivityHandler(activitySvc)
	api.POST("/events", activityHandler.RecordEvent)
	api.POST("/submissions", activityHandler.RecordSubmission)

	var exportQueue *jobs.Queue
	if cfg.Exports.Enabled {
		exportQueue = setupExports(ctx, cfg, db, leaderboardSvc, metricsSvc, validate, logr, api, board)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
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
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
	if exportQueue != nil {
		exportQueue.Stop()
	}
}

func setupExports(
	ctx context.Context,
	cfg *config.Config,
	db *sqlx.DB,
	leaderboard *service.LeaderboardService,
	metrics *service.MetricsService,
	validate *validator.Validate,
	logr *zap.Logger,
	api *gin.RouterGroup,
	board *gin.RouterGroup,
) *jobs.Queue {
	files, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare export storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exporter := service.NewExportService(leaderboard, files, signer, service.ExportConfig{
		APIPrefix:      cfg.APIPrefix,
		ResultTTL:      cfg.Exports.SignedURLTTL,
		DefaultClasses: cfg.Leaderboard.Classes,
	}, logr, nil, nil)

	jobRepo := repository.NewExportJobRepository(db)
	worker := service.NewExportWorker(jobRepo, exporter, metrics, logr)
	queue := jobs.NewQueue("leaderboard-exports", worker.Handle, jobs.QueueConfig{
		Workers:     cfg.Exports.WorkerConcurrency,
		BufferSize:  64,
		MaxRetries:  cfg.Exports.WorkerRetries,
		RetryDelay:  2 * time.Second,
		Logger:      logr,
		OnExhausted: worker.MarkExhausted,
	})
	queue.Start(ctx)

	jobSvc := service.NewExportJobService(jobRepo, queue, exporter, validate, logr, service.ExportJobConfig{
		ResultTTL:       cfg.Exports.SignedURLTTL,
		CleanupInterval: cfg.Exports.CleanupInterval,
	})
	jobSvc.RecoverPendingJobs(ctx)
	jobSvc.StartCleanup(ctx)

	exportHandler := handler.NewExportHandler(jobSvc)
	board.POST("/exports", exportHandler.CreateExport)
	board.GET("/exports/:id", exportHandler.ExportStatus)
	api.GET("/exports/:token", exportHandler.Download)

	logr.Info("leaderboard exports enabled", zap.String("dir", cfg.Exports.StorageDir))
	return queue
}
