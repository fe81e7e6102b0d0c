package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"votedesk/internal/adapters/http/middleware"
	"votedesk/internal/adapters/http/routes"
	"votedesk/internal/adapters/persistence/models"
	"votedesk/internal/config"
	"votedesk/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	_ "votedesk/docs" // Swagger docs
)

// @title votedesk API
// @version 1.0
// @description OTP sign-in, identity verification and one-vote-per-voter casting.

// @BasePath /api/v1

func main() {
	// Load configuration (initializes the logger)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	defer logger.Sync()

	// Connect to database
	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer config.CloseDatabase()

	// Auto migrate (creates tables if not exist)
	if err := models.AutoMigrate(db); err != nil {
		logger.Fatal("failed to auto migrate", zap.Error(err))
	}
	logger.Info("database migration completed")

	// Seed demo constituencies and candidates
	if cfg.Seed {
		if err := config.SeedMasterData(context.Background(), db); err != nil {
			logger.Warn("failed to seed master data", zap.Error(err))
		}
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "votedesk API v1.0",
		ErrorHandler: middleware.CustomErrorHandler,
	})

	// Setup middlewares
	middleware.Setup(app, cfg)

	// Setup routes
	runtime, err := routes.Setup(app, db, cfg)
	if err != nil {
		logger.Fatal("failed to set up routes", zap.Error(err))
	}

	// Scheduled jobs: vote-flag reconciliation + housekeeping
	if err := runtime.Cron.Start(); err != nil {
		logger.Fatal("failed to start cron service", zap.Error(err))
	}
	defer runtime.Cron.Stop()
	defer runtime.Registry.CloseAll()

	// Graceful shutdown
	go gracefulShutdown(app)

	// Start server
	logger.Info("server starting", zap.String("port", cfg.Port), zap.String("mode", cfg.AppMode))
	if err := app.Listen(":" + cfg.Port); err != nil {
		logger.Error("failed to start server", zap.Error(err))
	}
}

// gracefulShutdown handles graceful shutdown
func gracefulShutdown(app *fiber.App) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("error during shutdown", zap.Error(err))
	}
	logger.Info("server stopped gracefully")
}
