package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"votedesk/internal/pkg/logger"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Config holds all configuration for the application
type Config struct {
	AppMode   string
	Port      string
	Seed      bool
	Database  DatabaseConfig
	JWT       JWTConfig
	Cookie    CookieConfig
	Log       logger.Configuration
	OTP       OTPConfig
	Session   SessionConfig
	RateLimit RateLimitConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver   string // mysql, postgres or sqlite
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	Path     string // sqlite file (":memory:" allowed)
}

// JWTConfig holds provider session token configuration
type JWTConfig struct {
	Secret           string
	RefreshSecret    string
	AccessTokenMins  int
	RefreshTokenDays int
}

// AccessTTL returns the access token lifetime
func (j JWTConfig) AccessTTL() time.Duration {
	return time.Duration(j.AccessTokenMins) * time.Minute
}

// RefreshTTL returns the refresh token lifetime
func (j JWTConfig) RefreshTTL() time.Duration {
	return time.Duration(j.RefreshTokenDays) * 24 * time.Hour
}

// CookieConfig holds cookie configuration
type CookieConfig struct {
	Secure   bool
	SameSite string
	Domain   string
}

// OTPConfig controls one-time code issuance and delivery
type OTPConfig struct {
	Length         int           `env:"OTP_LENGTH"          envDefault:"6"`
	TTL            time.Duration `env:"OTP_TTL"             envDefault:"5m"`
	MaxAttempts    int           `env:"OTP_MAX_ATTEMPTS"    envDefault:"5"`
	MinInterval    time.Duration `env:"OTP_MIN_INTERVAL"    envDefault:"0s"`
	ResendCooldown time.Duration `env:"OTP_RESEND_COOLDOWN" envDefault:"30s"`
	CountryCode    string        `env:"OTP_COUNTRY_CODE"    envDefault:"+91"`
	Sender         string        `env:"OTP_SENDER"          envDefault:"log"`
	WebhookURL     string        `env:"OTP_WEBHOOK_URL"`
	WebhookToken   string        `env:"OTP_WEBHOOK_TOKEN"`
	WebhookTimeout time.Duration `env:"OTP_WEBHOOK_TIMEOUT" envDefault:"10s"`
}

// SessionConfig controls browser sessions and background jobs
type SessionConfig struct {
	IdleTimeout          time.Duration `env:"SESSION_IDLE_TIMEOUT"   envDefault:"30m"`
	DefaultConstituency  string        `env:"DEFAULT_CONSTITUENCY"`
	ReconcileSchedule    string        `env:"RECONCILE_SCHEDULE"     envDefault:"@every 5m"`
	HousekeepingSchedule string        `env:"HOUSEKEEPING_SCHEDULE"  envDefault:"@every 5m"`
}

// RateLimitConfig holds per-IP request limits per minute
type RateLimitConfig struct {
	General int `env:"RATE_LIMIT_GENERAL" envDefault:"100"`
	Auth    int `env:"RATE_LIMIT_AUTH"    envDefault:"5"`
	Strict  int `env:"RATE_LIMIT_STRICT"  envDefault:"3"`
}

// Global config instance
var AppConfig *Config

// Load reads configuration from .env file and environment variables
func Load() (*Config, error) {
	// Load .env file (ignore error if file doesn't exist in production)
	envFileErr := godotenv.Load()

	// Get APP_MODE (default to "dev") - trim spaces for Windows compatibility
	appMode := strings.TrimSpace(getEnv("APP_MODE", "dev"))
	if appMode != "dev" && appMode != "prod" {
		return nil, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", appMode)
	}

	seed, _ := strconv.ParseBool(getEnv("SEED_DEMO_DATA", strconv.FormatBool(appMode == "dev")))

	config := &Config{
		AppMode:  appMode,
		Port:     getEnv("PORT", "3000"),
		Seed:     seed,
		Database: loadDatabaseConfig(appMode),
		JWT:      loadJWTConfig(appMode),
		Cookie:   loadCookieConfig(appMode),
		Log:      loadLogConfig(appMode),
	}

	if err := env.Parse(&config.OTP); err != nil {
		return nil, fmt.Errorf("invalid OTP configuration: %w", err)
	}
	if err := env.Parse(&config.Session); err != nil {
		return nil, fmt.Errorf("invalid session configuration: %w", err)
	}
	if err := env.Parse(&config.RateLimit); err != nil {
		return nil, fmt.Errorf("invalid rate limit configuration: %w", err)
	}
	if err := config.validate(); err != nil {
		return nil, err
	}

	// Set global config
	AppConfig = config

	if err := logger.Initialize(config.Log); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if envFileErr != nil {
		logger.Warn(".env file not found, using environment variables")
	}
	logger.Info("configuration loaded", zap.String("mode", appMode), zap.String("db_driver", config.Database.Driver))
	return config, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("invalid DB_DRIVER: '%s' (must be mysql, postgres or sqlite)", c.Database.Driver)
	}
	switch c.OTP.Sender {
	case "log":
	case "webhook":
		if c.OTP.WebhookURL == "" {
			return fmt.Errorf("OTP_WEBHOOK_URL is required when OTP_SENDER=webhook")
		}
	default:
		return fmt.Errorf("invalid OTP_SENDER: '%s' (must be log or webhook)", c.OTP.Sender)
	}
	if c.OTP.Length < 4 || c.OTP.Length > 10 {
		return fmt.Errorf("invalid OTP_LENGTH: %d (must be 4-10)", c.OTP.Length)
	}
	if c.RateLimit.General <= 0 || c.RateLimit.Auth <= 0 || c.RateLimit.Strict <= 0 {
		return fmt.Errorf("rate limits must be positive")
	}
	if c.IsProd() && (c.JWT.Secret == defaultJWTSecret || c.JWT.RefreshSecret == defaultRefreshSecret) {
		return fmt.Errorf("PROD_JWT_SECRET and PROD_JWT_REFRESH_SECRET must be set in prod mode")
	}
	return nil
}

// loadDatabaseConfig loads database config based on mode
func loadDatabaseConfig(mode string) DatabaseConfig {
	prefix := modePrefix(mode)

	defaultDriver := "sqlite"
	if mode == "prod" {
		defaultDriver = "mysql"
	}

	return DatabaseConfig{
		Driver:   getEnv(prefix+"DB_DRIVER", defaultDriver),
		Host:     getEnv(prefix+"DB_HOST", "localhost"),
		Port:     getEnv(prefix+"DB_PORT", "3306"),
		User:     getEnv(prefix+"DB_USER", "root"),
		Password: getEnv(prefix+"DB_PASS", ""),
		DBName:   getEnv(prefix+"DB_NAME", "votedesk"),
		Path:     getEnv(prefix+"DB_PATH", "votedesk.db"),
	}
}

const (
	defaultJWTSecret     = "default_secret"
	defaultRefreshSecret = "default_refresh_secret"
)

// loadJWTConfig loads JWT config based on mode
func loadJWTConfig(mode string) JWTConfig {
	prefix := modePrefix(mode)

	accessMins, _ := strconv.Atoi(getEnv("ACCESS_TOKEN_MINUTES", "60"))
	refreshDays, _ := strconv.Atoi(getEnv("REFRESH_TOKEN_DAYS", "7"))
	if accessMins <= 0 {
		accessMins = 60
	}
	if refreshDays <= 0 {
		refreshDays = 7
	}

	return JWTConfig{
		Secret:           getEnv(prefix+"JWT_SECRET", defaultJWTSecret),
		RefreshSecret:    getEnv(prefix+"JWT_REFRESH_SECRET", defaultRefreshSecret),
		AccessTokenMins:  accessMins,
		RefreshTokenDays: refreshDays,
	}
}

// loadCookieConfig loads cookie config based on mode
func loadCookieConfig(mode string) CookieConfig {
	prefix := modePrefix(mode)

	secure, _ := strconv.ParseBool(getEnv(prefix+"COOKIE_SECURE", "false"))

	return CookieConfig{
		Secure:   secure,
		SameSite: getEnv("COOKIE_SAMESITE", "lax"),
		Domain:   getEnv("COOKIE_DOMAIN", ""),
	}
}

// loadLogConfig loads logger config based on mode
func loadLogConfig(mode string) logger.Configuration {
	level := "debug"
	if mode == "prod" {
		level = "info"
	}
	console, _ := strconv.ParseBool(getEnv("LOG_CONSOLE", "true"))

	return logger.Configuration{
		LogFile:   getEnv("LOG_FILE", ""),
		ErrorFile: getEnv("LOG_ERROR_FILE", ""),
		Level:     getEnv("LOG_LEVEL", level),
		Console:   console,
		JSON:      mode == "prod",
	}
}

func modePrefix(mode string) string {
	if mode == "prod" {
		return "PROD_"
	}
	return "DEV_"
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

// IsProd returns true if running in production mode
func (c *Config) IsProd() bool {
	return c.AppMode == "prod"
}

// GetAllowedOrigins returns allowed origins for CORS
func (c *Config) GetAllowedOrigins() string {
	origins := getEnv("ALLOWED_ORIGINS", "")
	if origins == "" {
		if c.IsDev() {
			return "*"
		}
		return "http://localhost:5173"
	}
	return origins
}
