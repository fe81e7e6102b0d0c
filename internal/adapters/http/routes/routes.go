package routes

import (
	"time"

	"votedesk/internal/adapters/http/handlers"
	"votedesk/internal/adapters/http/middleware"
	"votedesk/internal/adapters/persistence/repositories"
	"votedesk/internal/config"
	"votedesk/internal/core/flow"
	"votedesk/internal/core/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"gorm.io/gorm"
)

// Runtime holds the long-lived components main starts and stops
type Runtime struct {
	Registry *flow.Registry
	Cron     *services.CronService
}

// Setup configures all routes for the application
func Setup(app *fiber.App, db *gorm.DB, cfg *config.Config) (*Runtime, error) {
	// Initialize repositories
	constituencyRepo := repositories.NewConstituencyRepository(db)
	candidateRepo := repositories.NewCandidateRepository(db)
	profileRepo := repositories.NewProfileRepository(db)
	voteRepo := repositories.NewVoteRepository(db)
	identityRepo := repositories.NewIdentityRepository(db)
	refreshTokenRepo := repositories.NewRefreshTokenRepository(db)

	// Identity provider
	sender, err := services.NewOTPSender(cfg.OTP)
	if err != nil {
		return nil, err
	}
	otpService := services.NewOTPService(cfg.OTP)
	provider := services.NewLocalIdentityProvider(otpService, sender, identityRepo, refreshTokenRepo, cfg.JWT)

	// Initialize services
	sessionService, err := services.NewSessionService(profileRepo, constituencyRepo, cfg.OTP, cfg.Session)
	if err != nil {
		return nil, err
	}
	recordService := services.NewRecordService(constituencyRepo, candidateRepo, profileRepo, voteRepo)
	registry := flow.NewRegistry(provider, sessionService, recordService, cfg.OTP.ResendCooldown)
	cronService := services.NewCronService(profileRepo, refreshTokenRepo, otpService, registry, cfg.Session)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg, config.HealthCheck)
	sessionHandler := handlers.NewSessionHandler()
	authHandler := handlers.NewAuthHandler(registry)
	voterHandler := handlers.NewVoterHandler(recordService)
	adminHandler := handlers.NewAdminHandler()

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API v1 group
	apiV1 := app.Group("/api/v1")
	apiV1.Get("/", healthHandler.APIInfo)
	apiV1.Get("/constituencies", middleware.CacheControl(15*time.Second), voterHandler.ListConstituencies)

	sessionRoutes := apiV1.Group("", middleware.NoCacheHeaders(), middleware.Session(registry, cfg))
	sessionRoutes.Get("/session", sessionHandler.Get)
	setupAuthRoutes(sessionRoutes.Group("/auth"), authHandler, cfg)
	setupVoterRoutes(sessionRoutes.Group("/voter", middleware.VoterOnly()), voterHandler)
	setupAdminRoutes(sessionRoutes.Group("/admin"), adminHandler, cfg)

	return &Runtime{Registry: registry, Cron: cronService}, nil
}

// setupAuthRoutes configures OTP sign-in routes
func setupAuthRoutes(router fiber.Router, handler *handlers.AuthHandler, cfg *config.Config) {
	router.Post("/otp/phone", middleware.AuthRateLimiter(cfg), handler.RequestPhoneOTP)
	router.Post("/otp/email", middleware.AuthRateLimiter(cfg), handler.RequestEmailOTP)
	router.Post("/otp/verify", middleware.AuthRateLimiter(cfg), handler.VerifyOTP)
	router.Post("/otp/resend", middleware.AuthRateLimiter(cfg), handler.ResendOTP)
	router.Post("/logout", handler.Logout)
}

// setupVoterRoutes configures voter routes (voter only)
func setupVoterRoutes(router fiber.Router, handler *handlers.VoterHandler) {
	router.Post("/verify-id", handler.VerifyID)
	router.Get("/dashboard", handler.Dashboard)
	router.Post("/vote", handler.CastVote)
}

// setupAdminRoutes configures administrator routes
func setupAdminRoutes(router fiber.Router, handler *handlers.AdminHandler, cfg *config.Config) {
	router.Post("/login", middleware.StrictRateLimiter(cfg), handler.Login)
	router.Post("/logout", handler.Logout)

	protected := router.Group("", middleware.AdminOnly())
	protected.Get("/overview", handler.Overview)
	protected.Get("/constituencies/:id/results", handler.Results)
}
