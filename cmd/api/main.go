package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"alfredoptarigan/cv-formatter/internal/config"
	"alfredoptarigan/cv-formatter/internal/handlers"
	"alfredoptarigan/cv-formatter/internal/repositories"
	"alfredoptarigan/cv-formatter/internal/services"
)

func main() {
	if err := run(); err != nil {
		// the global logger is already restored here
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	undo, err := config.InitLogger(cfg.Server.Env)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer undo()

	log := zap.S().Named("main")
	if !cfg.DotEnvLoaded {
		log.Info("No .env file found. Using environment and default values.")
	}
	log.Info("✅ Config loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := config.InitDatabase(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	cvRepo := repositories.NewCVRepository(db)
	log.Info("✅ Repositories initialized successfully")

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := services.NewMetrics(registry)

	// Storage
	var storage services.StorageService
	switch cfg.Storage.Backend {
	case "minio":
		storage, err = services.NewMinIOStorage(services.MinIOOptions{
			Endpoint:  cfg.Storage.MinIO.Endpoint,
			AccessKey: cfg.Storage.MinIO.AccessKey,
			SecretKey: cfg.Storage.MinIO.SecretKey,
			Bucket:    cfg.Storage.MinIO.Bucket,
			UseSSL:    cfg.Storage.MinIO.UseSSL,
		})
		if err != nil {
			return err
		}
	case "local":
		storage = services.NewLocalStorage(cfg.Storage.UploadPath)
	default:
		return fmt.Errorf("unsupported storage backend %q", cfg.Storage.Backend)
	}
	if err := storage.EnsureReady(ctx); err != nil {
		return fmt.Errorf("failed to prepare storage: %w", err)
	}
	log.Infow("✅ Storage initialized successfully", "backend", cfg.Storage.Backend)

	// Model adapters
	adapters, err := services.BuildAdapters(ctx, services.BackendConfig{
		OpenAIAPIKey:    cfg.LLM.OpenAIAPIKey,
		OpenAIModel:     cfg.LLM.OpenAIModel,
		AnthropicAPIKey: cfg.LLM.AnthropicAPIKey,
		AnthropicModel:  cfg.LLM.AnthropicModel,
		GeminiAPIKey:    cfg.LLM.GeminiAPIKey,
		GeminiModel:     cfg.LLM.GeminiModel,
	}, services.AdapterOptions{
		CallTimeout:       cfg.LLM.CallTimeout,
		RetryMaxAttempts:  cfg.Worker.RetryMaxAttempts,
		RetryInitialDelay: cfg.Worker.RetryInitialDelay,
		Temperature:       cfg.LLM.Temperature,
	}, metrics)
	if err != nil {
		return fmt.Errorf("failed to initialize model adapters: %w", err)
	}
	log.Info("✅ Model adapters initialized")

	// Talent index
	index, err := services.BuildTalentIndex(ctx, services.TalentIndexConfig{
		QdrantURL:      cfg.Qdrant.URL,
		QdrantAPIKey:   cfg.Qdrant.APIKey,
		Collection:     cfg.Qdrant.Collection,
		GeminiAPIKey:   cfg.LLM.GeminiAPIKey,
		EmbeddingModel: cfg.LLM.EmbeddingModel,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize talent index: %w", err)
	}
	if index.Enabled() {
		log.Info("✅ Qdrant talent index initialized")
	} else {
		log.Warn("⚠️  Talent search disabled: QDRANT_URL or GEMINI_API_KEY not set")
	}

	// Initialize worker
	worker := services.NewWorker(cvRepo, services.WorkerOptions{
		Concurrency:    cfg.Worker.Concurrency,
		QueueSize:      cfg.Worker.QueueSize,
		ReaperInterval: cfg.Worker.ReaperInterval,
		StaleAfter:     cfg.Worker.StaleAfter,
	}, metrics)
	// Jobs outlive the signal context until Stop runs after the server drains.
	worker.Start(context.Background())
	log.Infow("✅ Worker started successfully", "concurrency", cfg.Worker.Concurrency)

	processor := services.NewProcessor(cvRepo, adapters, worker, index, metrics, services.ProcessorOptions{
		JobTimeout: cfg.Worker.JobTimeout,
	})
	schemas, err := services.NewSchemaValidator()
	if err != nil {
		return err
	}

	// Initialize Handlers
	h := handlers.Handlers{
		Files:   handlers.NewFileHandler(cvRepo, storage, services.NewTextExtractor(), schemas, index, cfg.Storage.MaxFileSize),
		Process: handlers.NewProcessHandler(processor, validator.New()),
		Status:  handlers.NewStatusHandler(services.NewStatusService(cvRepo)),
		Search:  handlers.NewSearchHandler(index),
	}
	if cfg.Auth.JWTSecret == "" {
		log.Warn("⚠️  JWT_SECRET not set, every API request will be rejected")
	}
	auth := handlers.NewAuthenticator(cfg.Auth.JWTSecret)
	log.Info("✅ Handlers initialized")

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "CV Formatter API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		BodyLimit:    int(cfg.Storage.MaxFileSize) + 1024*1024,
		ErrorHandler: handlers.ErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	handlers.RegisterRoutes(app, auth, h)

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		log.Info("🛑 Shutting down server...")
		if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
			log.Errorf("❌ Server forced to shutdown: %v", err)
		}
	}()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Infof("🚀 Server starting on %s", addr)

	listenErr := app.Listen(addr)

	// Cancelled in-flight jobs still record a failed outcome before Stop returns.
	worker.Stop()
	log.Info("✅ Worker stopped")

	if listenErr != nil {
		return fmt.Errorf("failed to start server: %w", listenErr)
	}
	return nil
}
