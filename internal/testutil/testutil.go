// Package testutil provides an in-memory SQLite store and fixtures for tests.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"votedesk/internal/adapters/persistence/models"
	"votedesk/internal/config"
	"votedesk/internal/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Constituency and candidate names from the demo seed
const (
	NewDelhi    = "New Delhi"
	MumbaiSouth = "Mumbai South"

	MeeraKapoor   = "Meera Kapoor"
	ArjunMalhotra = "Arjun Malhotra"
	RohanDeshmukh = "Rohan Deshmukh"
)

// Config returns a dev configuration backed by a fresh in-memory database
func Config() *config.Config {
	return &config.Config{
		AppMode: "dev",
		Port:    "0",
		Database: config.DatabaseConfig{
			Driver: "sqlite",
			Path:   fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		},
		JWT: config.JWTConfig{
			Secret:           "test-access-secret",
			RefreshSecret:    "test-refresh-secret",
			AccessTokenMins:  15,
			RefreshTokenDays: 7,
		},
		Cookie: config.CookieConfig{SameSite: "lax"},
		Log:    logger.Configuration{Level: "error"},
		OTP: config.OTPConfig{
			Length:         6,
			TTL:            5 * time.Minute,
			MaxAttempts:    5,
			ResendCooldown: 30 * time.Second,
			CountryCode:    "+91",
			Sender:         "log",
			WebhookTimeout: 5 * time.Second,
		},
		Session: config.SessionConfig{
			IdleTimeout:          30 * time.Minute,
			DefaultConstituency:  NewDelhi,
			ReconcileSchedule:    "@every 5m",
			HousekeepingSchedule: "@every 5m",
		},
		RateLimit: config.RateLimitConfig{General: 10000, Auth: 10000, Strict: 10000},
	}
}

// NewDB opens cfg's database, migrates it and seeds the demo election
func NewDB(t testing.TB, cfg *config.Config) *gorm.DB {
	t.Helper()

	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		t.Fatalf("connect database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := config.SeedMasterData(context.Background(), db); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return db
}

// CloseDB closes the underlying connection so later queries fail
func CloseDB(t testing.TB, db *gorm.DB) {
	t.Helper()
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	if err := sqlDB.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

// ProfileOption customizes CreateProfile
type ProfileOption func(p *models.Profile)

// InConstituency assigns the named seeded constituency
func InConstituency(name string) ProfileOption {
	return func(p *models.Profile) {
		id := config.ConstituencyID(name)
		p.ConstituencyID = &id
	}
}

// WithVoterID marks the profile as identity-verified
func WithVoterID(voterID string) ProfileOption {
	return func(p *models.Profile) {
		p.VoterID = &voterID
	}
}

// CreateProfile inserts a voter profile and returns its ID
func CreateProfile(t testing.TB, db *gorm.DB, phone string, opts ...ProfileOption) string {
	t.Helper()
	p := &models.Profile{ID: uuid.NewString(), Name: "Voter " + phone, Phone: phone}
	for _, opt := range opts {
		opt(p)
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("create profile: %v", err)
	}
	return p.ID
}

// InsertVote writes a vote row directly, leaving the voter's has_voted flag untouched
func InsertVote(t testing.TB, db *gorm.DB, voterID, constituency, candidate string) {
	t.Helper()
	vote := &models.Vote{
		ID:             uuid.NewString(),
		VoterID:        voterID,
		CandidateID:    config.CandidateID(constituency, candidate),
		ConstituencyID: config.ConstituencyID(constituency),
	}
	if err := db.Create(vote).Error; err != nil {
		t.Fatalf("insert vote: %v", err)
	}
}

// CountVotes returns the number of vote rows in the named constituency
func CountVotes(t testing.TB, db *gorm.DB, constituency string) int64 {
	t.Helper()
	var n int64
	err := db.Model(&models.Vote{}).Where("constituency_id = ?", config.ConstituencyID(constituency)).Count(&n).Error
	if err != nil {
		t.Fatalf("count votes: %v", err)
	}
	return n
}
