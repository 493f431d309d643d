package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Lingikaushikreddy/Thrill-AI-Contract-Invoice-Intelligence-System/config"
	"github.com/Lingikaushikreddy/Thrill-AI-Contract-Invoice-Intelligence-System/handler"
	"github.com/Lingikaushikreddy/Thrill-AI-Contract-Invoice-Intelligence-System/middleware"
	"github.com/Lingikaushikreddy/Thrill-AI-Contract-Invoice-Intelligence-System/pkg/logger"
	"github.com/Lingikaushikreddy/Thrill-AI-Contract-Invoice-Intelligence-System/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	slog.Info("configuration loaded successfully")

	// Initialize artifact storage
	artifacts, err := service.NewMinioArtifactStore(&cfg.Storage)
	if err != nil {
		slog.Error("failed to initialize artifact storage", "error", err)
		os.Exit(1)
	}
	if err := artifacts.EnsureBucket(context.Background()); err != nil {
		slog.Error("failed to ensure storage bucket", "error", err)
		os.Exit(1)
	}

	// Load baseline templates for the risk engine
	baselines, err := service.LoadBaselines(cfg.Engine.BaselinePath)
	if err != nil {
		slog.Error("failed to load baseline templates", "error", err, "path", cfg.Engine.BaselinePath)
		os.Exit(1)
	}
	slog.Info("baseline templates loaded", "templates", len(baselines.Templates))

	// Wire the core
	store := service.NewDocumentStore(&cfg.Store)
	pipeline := service.NewPipeline(store, artifacts, service.NewFieldExtractor(), service.NewRiskEngine(baselines), &cfg.Engine)
	reviews := service.NewReviewService(store)

	pipeline.Start()
	slog.Info("ingestion pipeline started", "workers", cfg.Engine.Workers, "queue_size", cfg.Engine.QueueSize)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(cfg)
	documentHandler := handler.NewDocumentHandler(pipeline, store, artifacts, cfg.Server.MaxUploadMB)
	reviewHandler := handler.NewReviewHandler(reviews, store)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New() // Use New() instead of Default() to avoid default middleware

	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(corsMiddleware())
	router.Use(middleware.RateLimit(5, 20)) // 5 req/s per client, burst 20

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		if err := artifacts.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "degraded",
				"services": gin.H{"storage": "unreachable"},
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"services": gin.H{"storage": "connected"},
		})
	})

	// Public routes
	api := router.Group("/api")
	{
		api.POST("/auth/login", authHandler.Login)
	}

	// Protected routes
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(&cfg.Auth))
	{
		protected.GET("/auth/me", authHandler.GetCurrentUser)

		protected.POST("/documents", middleware.RequireRole("uploader", "reviewer"), documentHandler.Upload)
		protected.GET("/documents", documentHandler.List)
		protected.GET("/documents/:id", documentHandler.Get)
		protected.GET("/documents/:id/status", documentHandler.GetStatus)
		protected.GET("/documents/:id/extraction", documentHandler.GetExtraction)
		protected.GET("/documents/:id/findings", documentHandler.GetFindings)
		protected.GET("/documents/:id/decisions", reviewHandler.Decisions)
		protected.DELETE("/documents/:id", middleware.RequireRole("admin"), documentHandler.Delete)

		protected.POST("/findings/:id/review", middleware.RequireRole("reviewer"), reviewHandler.Submit)
	}

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	// Stop the worker pool before exiting
	pipeline.Stop()

	slog.Info("server exited gracefully")
}

// corsMiddleware handles CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
