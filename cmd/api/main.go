// Package main provides the entry point for the credcore API server
// @title Credcore API
// @version 1.0
// @description Credential lifecycle API server.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Bearer token authentication
// @Security BearerAuth
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"
	"credcore/internal/api/routes"
	"credcore/internal/config"
	"credcore/internal/database"
	"credcore/internal/maintenance"
	"credcore/internal/ratelimit"
	"credcore/internal/repository/postgres"
	"credcore/internal/validation"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// Parse command line flags
	envFile := flag.String("env", ".env", "Path to env file")
	flag.Parse()

	// Load environment file
	if err := godotenv.Load(*envFile); err != nil && *envFile == ".env" {
		log.Printf("Warning: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Load configuration
	cfg := &config.Config{}
	if err := cfg.LoadFromEnv(); err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	// Initialize database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	if err := database.RunMigrations(cfg.Database); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	// Initialize validators
	validation.Initialize()

	// Select the reset rate-limit store. Redis is shared across instances;
	// without it, quotas are per process.
	var limiter ratelimit.Limiter
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		limiter = ratelimit.NewRedisLimiter(client, cfg.Reset.MaxRequests, cfg.Reset.RequestWindow)
		logger.Info("using redis rate limiter", zap.String("addr", cfg.Redis.Addr))
	} else {
		memLimiter := ratelimit.NewMemoryLimiter(cfg.Reset.MaxRequests, cfg.Reset.RequestWindow)
		defer memLimiter.Close()
		limiter = memLimiter
		logger.Info("using in-memory rate limiter")
	}

	// Start the maintenance sweeper
	sweeper := maintenance.NewSweeper(
		cfg,
		postgres.NewUserRepository(db),
		postgres.NewPasswordHistoryRepository(db),
		postgres.NewAuditEventRepository(db),
		postgres.NewRefreshTokenRepository(db),
		postgres.NewLoginAttemptRepository(db),
		logger,
	)
	if err := sweeper.Start(); err != nil {
		logger.Fatal("failed to start maintenance sweeper", zap.Error(err))
	}
	defer sweeper.Stop()

	// Setup routes
	router := routes.SetupRoutes(cfg, db, limiter, logger)

	// Convert port string to int
	port, err := strconv.Atoi(cfg.API.Port)
	if err != nil {
		logger.Fatal("invalid port number", zap.Error(err))
	}

	// Create server with graceful shutdown
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	// Give outstanding requests 5 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exiting")
}
