package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/videobuds/backend/internal/agent"
	"github.com/videobuds/backend/internal/auth"
	"github.com/videobuds/backend/internal/cache"
	"github.com/videobuds/backend/internal/config"
	"github.com/videobuds/backend/internal/database"
	"github.com/videobuds/backend/internal/generation"
	"github.com/videobuds/backend/internal/handlers"
	"github.com/videobuds/backend/internal/logger"
	"github.com/videobuds/backend/internal/metrics"
	"github.com/videobuds/backend/internal/middleware"
	"github.com/videobuds/backend/internal/providers"
	"github.com/videobuds/backend/internal/queue"
	"github.com/videobuds/backend/internal/recipes"
	"github.com/videobuds/backend/internal/storage"
	"github.com/videobuds/backend/internal/telemetry"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	cfg := config.Load()

	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	logger.Log.Info("=== VideoBuds server starting ===",
		zap.String("environment", cfg.Environment))

	// Initialize database
	if err := database.Initialize(); err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer database.Close()

	// Run migrations
	if err := database.Migrate(); err != nil {
		logger.Log.Fatal("Failed to run migrations", zap.Error(err))
	}

	metrics.Initialize()

	// Distributed tracing is opt-in via OTEL_EXPORTER_OTLP_ENDPOINT
	tracerProvider, err := telemetry.Init(cfg, 1.0)
	if err != nil {
		logger.Log.Warn("Failed to initialize tracing, continuing without it", zap.Error(err))
	}

	// Redis backs rate limiting across instances; the limiter falls back
	// to in-memory buckets when Redis is absent.
	if cfg.RedisHost != "" {
		if _, err := cache.NewRedisClient(cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword); err != nil {
			logger.Log.Warn("Redis unavailable, rate limiting falls back to in-memory", zap.Error(err))
		}
	}

	// Asset storage: S3 when a bucket is configured, local disk otherwise
	var store storage.Storage
	if cfg.AWSBucket != "" {
		s3Store, err := storage.NewS3Storage(cfg.AWSRegion, cfg.AWSBucket, cfg.CDNBaseURL)
		if err != nil {
			logger.Log.Fatal("Failed to initialize S3 storage", zap.Error(err))
		}
		if err := s3Store.CheckBucketAccess(context.Background()); err != nil {
			logger.Log.Warn("S3 bucket access failed, uploads will error", zap.Error(err))
		}
		store = s3Store
	} else {
		localStore, err := storage.NewLocalStorage(cfg.UploadDir, "/static")
		if err != nil {
			logger.Log.Fatal("Failed to initialize local storage", zap.Error(err))
		}
		store = localStore
	}

	// Provider registry holds a client per configured API key
	registry, err := providers.NewRegistry(context.Background(), cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize provider registry", zap.Error(err))
	}

	// The agent needs Gemini; without a Google key the AI endpoints
	// answer 503 and the rest of the API works normally.
	var agentService *agent.Service
	if cfg.GoogleAPIKey != "" {
		genaiClient, err := genai.NewClient(context.Background(), &genai.ClientConfig{
			APIKey: cfg.GoogleAPIKey,
		})
		if err != nil {
			logger.Log.Fatal("Failed to initialize Gemini client", zap.Error(err))
		}
		agentService = agent.NewService(genaiClient)
	} else {
		logger.Log.Warn("GOOGLE_API_KEY not set, AI agent endpoints disabled")
	}

	dispatcher := generation.NewDispatcher(registry, store)

	// Background queue for campaign batches and async single generations
	generationQueue := queue.NewGenerationQueue(dispatcher)
	generationQueue.Start()
	defer generationQueue.Stop()

	// Recipes: sync the built-in catalog to the database, then start the runner
	recipeRegistry := recipes.DefaultRegistry()
	if err := recipeRegistry.SyncCatalog(); err != nil {
		logger.Log.Warn("Failed to sync recipe catalog", zap.Error(err))
	}
	recipeRunner := recipes.NewRunner(recipeRegistry, recipes.Deps{
		Agent:      agentService,
		Dispatcher: dispatcher,
		Store:      store,
	}, cfg)

	// Initialize auth service
	if cfg.JWTSecret == "" {
		logger.Log.Fatal("JWT_SECRET environment variable is required")
	}
	authService := auth.NewService([]byte(cfg.JWTSecret))

	// Initialize handlers
	h := handlers.NewHandlers(authService, dispatcher, cfg)
	h.SetAgent(agentService)
	h.SetQueue(generationQueue)
	h.SetRecipes(recipeRegistry, recipeRunner)
	h.SetStorage(store)

	// Setup Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.GinLoggerMiddleware())
	r.Use(gin.Recovery())
	r.Use(middleware.MetricsMiddleware())
	if tracerProvider != nil {
		r.Use(middleware.TracingMiddleware(telemetry.ServiceName))
	}
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// CORS middleware
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"} // Configure properly for production
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	r.Use(cors.New(corsConfig))

	// Health and observability endpoints
	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Serve uploaded assets directly when storing on local disk
	if cfg.AWSBucket == "" {
		r.Static("/static", cfg.UploadDir)
	}

	authRequired := authService.Middleware()

	// API routes
	api := r.Group("/api/v1")
	{
		// Authentication routes (public)
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", middleware.RateLimitSmartAuth(), h.Register)
			authGroup.POST("/login", middleware.RateLimitSmartAuth(), h.Login)
			authGroup.GET("/me", authRequired, h.Me)
		}

		// Brand routes
		brands := api.Group("/brands")
		{
			brands.Use(authRequired)
			brands.POST("", h.CreateBrand)
			brands.GET("", h.GetBrands)
			brands.GET("/:id", h.GetBrand)
			brands.PUT("/:id", h.UpdateBrand)
			brands.DELETE("/:id", h.DeleteBrand)
			brands.GET("/:id/questionnaire", h.GetQuestionnaire)
			brands.PUT("/:id/questionnaire", h.PutQuestionnaire)
			brands.POST("/:id/analyze", h.AnalyzeBrand)
			brands.POST("/:id/logo", middleware.RateLimitSmartUpload(), h.UploadLogo)
			brands.POST("/:id/references", middleware.RateLimitSmartUpload(), h.UploadReferenceImage)
			brands.GET("/:id/references", h.GetReferenceImages)
			brands.DELETE("/:id/references/:refID", h.DeleteReferenceImage)
		}

		// Persona routes
		personas := api.Group("/personas")
		{
			personas.Use(authRequired)
			personas.POST("", h.CreatePersona)
			personas.GET("", h.GetPersonas)
			personas.GET("/:id", h.GetPersona)
			personas.PUT("/:id", h.UpdatePersona)
			personas.DELETE("/:id", h.DeletePersona)
		}

		// Campaign routes
		campaigns := api.Group("/campaigns")
		{
			campaigns.Use(authRequired)
			campaigns.POST("", h.CreateCampaign)
			campaigns.GET("", h.GetCampaigns)
			campaigns.GET("/:id", h.GetCampaign)
			campaigns.PUT("/:id", h.UpdateCampaign)
			campaigns.DELETE("/:id", h.DeleteCampaign)
			campaigns.POST("/:id/generate", middleware.RateLimitSmartGenerate(), h.GenerateCampaign)
			campaigns.GET("/:id/generation-status", h.GenerationStatus)
			campaigns.POST("/:id/approve", h.ApproveCampaign)
			campaigns.GET("/:id/export/preview", h.ExportPreview)
			campaigns.GET("/:id/export/csv", h.ExportCSV)
			campaigns.GET("/:id/export/bundle", h.ExportBundle)
		}

		// Background job polling
		api.GET("/jobs/:id", authRequired, h.GetJob)

		// Post routes
		posts := api.Group("/posts")
		{
			posts.Use(authRequired)
			posts.GET("/:id", h.GetPost)
			posts.PUT("/:id", h.UpdatePost)
			posts.POST("/:id/approve", h.ApprovePost)
			posts.POST("/:id/reject", h.RejectPost)
			posts.POST("/:id/regenerate", middleware.RateLimitSmartGenerate(), h.RegeneratePost)
		}

		// Single-shot generation routes
		generate := api.Group("/generate")
		{
			generate.Use(authRequired)
			generate.Use(middleware.RateLimitSmartGenerate())
			generate.POST("/image", h.GenerateImage)
			generate.POST("/video", h.GenerateVideo)
			generate.POST("/speech", h.GenerateSpeech)
		}

		// Generation history
		generations := api.Group("/generations")
		{
			generations.Use(authRequired)
			generations.GET("", h.GetGenerations)
			generations.GET("/:id", h.GetGeneration)
		}

		// Recipe routes
		recipeGroup := api.Group("/recipes")
		{
			recipeGroup.Use(authRequired)
			recipeGroup.GET("", h.GetRecipes)
			recipeGroup.GET("/:slug/fields", h.GetRecipeFields)
			recipeGroup.POST("/:slug/run", middleware.RateLimitSmartGenerate(), h.StartRecipeRun)
		}

		// Recipe run routes
		runs := api.Group("/recipe-runs")
		{
			runs.Use(authRequired)
			runs.GET("", h.GetRecipeHistory)
			runs.GET("/:id", h.GetRecipeRun)
			runs.POST("/:id/approve", h.ApproveRecipeRun)
			runs.POST("/:id/cancel", h.CancelRecipeRun)
		}

		// Script writer routes
		scripts := api.Group("/scripts")
		{
			scripts.Use(authRequired)
			scripts.GET("/types", h.GetScriptTypes)
			scripts.POST("/write", middleware.RateLimitSmartGenerate(), h.WriteScripts)
			scripts.POST("/rewrite", middleware.RateLimitSmartGenerate(), h.RewriteScript)
		}

		// Catalog and dashboard
		api.GET("/models", authRequired, h.GetModels)
		api.GET("/dashboard", authRequired, h.GetDashboard)

		// Admin routes
		admin := api.Group("/admin")
		{
			admin.Use(authRequired, middleware.RequireAdmin())
			admin.GET("/stats", h.GetAdminStats)
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info("VideoBuds backend listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	if tracerProvider != nil {
		if err := tracerProvider.Shutdown(ctx); err != nil {
			logger.Log.Warn("Tracer shutdown failed", zap.Error(err))
		}
	}

	logger.Log.Info("Server exited")
}
