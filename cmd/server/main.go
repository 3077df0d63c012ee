package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/prlens/prlens/internal/githubapi"
	"github.com/prlens/prlens/internal/handlers"
	"github.com/prlens/prlens/internal/repositories"
	"github.com/prlens/prlens/internal/services"
	"github.com/prlens/prlens/internal/workers"
	"github.com/prlens/prlens/pkg/config"
	"github.com/prlens/prlens/pkg/database"
	"github.com/prlens/prlens/pkg/logger"
)

func main() {
	logger.Init()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	gin.SetMode(cfg.Server.Mode)

	// Initialize database
	db, err := database.New(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := database.RunMigrations(db, "./migrations"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize repositories
	repoRepo := repositories.NewRepositoryRepository(db)
	pullRequestRepo := repositories.NewPullRequestRepository(db)
	reviewCommentRepo := repositories.NewReviewCommentRepository(db)
	codeSnippetRepo := repositories.NewCodeSnippetRepository(db)
	commentThreadRepo := repositories.NewCommentThreadRepository(db)
	extractedRuleRepo := repositories.NewExtractedRuleRepository(db)
	ruleStatisticsRepo := repositories.NewRuleStatisticsRepository(db)

	// GitHub client and extraction engine
	githubClient := githubapi.NewClient(cfg.GitHub.Token)
	githubClient.BaseURL = cfg.GitHub.APIBaseURL
	githubClient.RequestDelay = time.Duration(cfg.GitHub.RequestDelayMS) * time.Millisecond

	extractor := services.NewLLMExtractor(cfg.OpenAI.APIKey, cfg.OpenAI.Model)

	// Worker pool
	processor := workers.NewProcessor(
		reviewCommentRepo, codeSnippetRepo, commentThreadRepo,
		extractedRuleRepo, ruleStatisticsRepo,
		extractor, cfg.Processor.Workers,
	)

	// Services
	snippetExtractor := services.NewSnippetExtractor()
	collectorService := services.NewCollectorService(
		githubClient, processor, snippetExtractor,
		repoRepo, pullRequestRepo, reviewCommentRepo,
		codeSnippetRepo, commentThreadRepo, extractedRuleRepo,
	)
	exportService := services.NewExportService(extractedRuleRepo, ruleStatisticsRepo)

	// Start workers
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	processor.StartWorkers(ctx)
	defer processor.StopWorkers()

	// Initialize router
	router := gin.Default()
	setupRoutes(router, collectorService, processor, extractedRuleRepo, exportService)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Infof("Server starting on :%s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Errorf("Server shutdown failed")
	}

	logger.Infof("Server stopped")
}

func setupRoutes(
	router *gin.Engine,
	collectorService *services.CollectorService,
	processor *workers.Processor,
	extractedRuleRepo *repositories.ExtractedRuleRepository,
	exportService *services.ExportService,
) {
	collectionHandler := handlers.NewCollectionHandler(collectorService, processor)
	ruleHandler := handlers.NewRuleHandler(extractedRuleRepo, exportService)
	healthHandler := handlers.NewHealthHandler()

	api := router.Group("/api/v1")
	{
		api.POST("/repositories/:owner/:repo/sync", collectionHandler.SyncRepository)
		api.GET("/status", collectionHandler.Status)
		api.GET("/processing/stats", collectionHandler.ProcessingStats)
		api.POST("/cleanup", collectionHandler.Cleanup)

		api.GET("/rules", ruleHandler.List)
		api.PUT("/rules/:id/validity", ruleHandler.SetValidity)
		api.GET("/rules/export", ruleHandler.Export)
	}

	router.GET("/health", healthHandler.HealthCheck)
}
