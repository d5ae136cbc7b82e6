package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/rentguard/backend/internal/analysis"
	"github.com/rentguard/backend/internal/api/handlers"
	"github.com/rentguard/backend/internal/cache/redis"
	"github.com/rentguard/backend/internal/extract"
	"github.com/rentguard/backend/internal/metrics"
	"github.com/rentguard/backend/internal/middleware/ratelimit"
	"github.com/rentguard/backend/internal/middleware/security"
	"github.com/rentguard/backend/internal/middleware/validation"
	"github.com/rentguard/backend/internal/pipeline"
	"github.com/rentguard/backend/internal/storage/minio"
	"github.com/rentguard/backend/internal/storage/sqlite"
	"github.com/rentguard/backend/pkg/config"
	appLogger "github.com/rentguard/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting RentGuard360 analysis API server")

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	err = sqliteClient.InitSchema()
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	blobClient, err := minio.NewClient(cfg.Minio)
	if err != nil {
		appLogger.Fatal("Failed to create object store client", zap.Error(err))
	}

	err = blobClient.EnsureBucket(context.Background())
	if err != nil {
		appLogger.Fatal("Failed to ensure bucket", zap.Error(err))
	}

	redisClient, err := redis.NewClient(
		cfg.Redis.Host,
		cfg.Redis.Port,
		cfg.Redis.Password,
		cfg.Redis.DB,
		time.Duration(cfg.Redis.ReportTTL)*time.Second,
	)
	if err != nil {
		appLogger.Fatal("Failed to create Redis client", zap.Error(err))
	}
	defer redisClient.Close()

	extractor := extract.NewExtractor(blobClient, cfg.OCR)
	analyzer := analysis.NewAnalyzer(cfg.LLM)
	orchestrator := pipeline.NewOrchestrator(extractor, analyzer, sqliteClient, redisClient)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-User-ID",
		AllowMethods: "GET, POST, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{}))
	app.Use(validation.Middleware(validation.Config{
		Logger: appLogger.GetLogger(),
	}))

	apiLimiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: 120,
		Logger:               appLogger.GetLogger(),
	})
	defer apiLimiter.Stop()

	consultLimiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: 20,
		Logger:               appLogger.GetLogger(),
	})
	defer consultLimiter.Stop()

	analysisHandler := handlers.NewAnalysisHandler(orchestrator, sqliteClient, redisClient)
	consultHandler := handlers.NewConsultHandler(analyzer, redisClient)
	uploadHandler := handlers.NewUploadHandler(blobClient)

	api := app.Group("/api/v1", apiLimiter.Middleware())

	api.Post("/analyses", analysisHandler.StartAnalysis)
	api.Get("/analyses/:documentId", analysisHandler.GetReport)
	api.Get("/documents", analysisHandler.ListDocuments)
	api.Get("/uploads/url", uploadHandler.CreateUploadURL)
	api.Post("/clauses/explain", consultLimiter.Middleware(), consultHandler.ExplainClause)

	app.Get("/metrics", metrics.MetricsHandler())

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
