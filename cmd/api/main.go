package main

import (
	"fmt"
	"log/slog"
	"os"

	"load-profiler/internal/api/handlers"
	"load-profiler/internal/api/middleware"
	"load-profiler/internal/config"

	"github.com/gin-gonic/gin"
)

func main() {
	// Get configuration from environment
	port := os.Getenv("API_PORT")
	if port == "" {
		port = "8080"
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg := config.Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			log.Error("failed to load config", "path", path, "err", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	// Set up Gin router
	if os.Getenv("API_ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Apply middleware
	router.Use(middleware.CORS())
	router.Use(middleware.Logger(log))
	router.Use(middleware.ErrorHandler())

	// Initialize handlers
	analyzeHandler := handlers.NewAnalyzeHandler(cfg, log)
	capacityHandler := handlers.NewCapacityHandler(cfg, log)
	ingestHandler := handlers.NewIngestHandler(cfg, log)

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API routes
	api := router.Group("/api/v1")
	{
		api.POST("/analyze", analyzeHandler.RunAnalysis)
		api.GET("/report/:format", analyzeHandler.DownloadReport)

		api.POST("/capacity", capacityHandler.RunCapacity)
		api.POST("/ingest", ingestHandler.RunIngest)
	}

	// Start server
	addr := fmt.Sprintf(":%s", port)
	log.Info("starting API server", "addr", addr)
	if err := router.Run(addr); err != nil {
		log.Error("server exited", "err", err)
		os.Exit(1)
	}
}
