package services

import (
	"crypto/rand"
	"math/big"
	"strings"
	"sync"
	"time"

	"votedesk/internal/config"
	"votedesk/internal/core/domain"
)

// ============================================================
// OTP Service - one-time codes for phone and email sign-in
// ============================================================

// OTPEntry represents a single OTP record in memory
type OTPEntry struct {
	Code      string
	Target    string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Attempts  int // failed attempts so far
}

// OTPService handles OTP generation and verification
type OTPService struct {
	cfg   config.OTPConfig
	store map[string]*OTPEntry // key = normalized delivery target
	mu    sync.RWMutex
	now   func() time.Time
}

// NewOTPService creates a new OTP service. Expired entries are removed by
// PurgeExpired, which the cron service schedules.
func NewOTPService(cfg config.OTPConfig) *OTPService {
	if cfg.Length <= 0 {
		cfg.Length = 6
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	return &OTPService{
		cfg:   cfg,
		store: make(map[string]*OTPEntry),
		now:   time.Now,
	}
}

// GenerateOTP creates a new code for target, replacing any earlier one
func (s *OTPService) GenerateOTP(target string) (*OTPEntry, error) {
	key := otpKey(target)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if existing, ok := s.store[key]; ok && s.cfg.MinInterval > 0 {
		if now.Sub(existing.IssuedAt) < s.cfg.MinInterval && now.Before(existing.ExpiresAt) {
			return nil, domain.ErrOTPThrottled
		}
	}

	code, err := generateSecureOTP(s.cfg.Length)
	if err != nil {
		return nil, domain.Provider("generate otp", err)
	}

	entry := &OTPEntry{
		Code:      code,
		Target:    target,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.TTL),
	}
	s.store[key] = entry

	out := *entry
	return &out, nil
}

// VerifyOTP checks code against the code issued for target. A successful
// check consumes the code.
func (s *OTPService) VerifyOTP(target, code string) error {
	key := otpKey(target)

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.store[key]
	if !ok {
		return domain.ErrOTPNotFound
	}

	if s.now().After(entry.ExpiresAt) {
		delete(s.store, key)
		return domain.ErrOTPExpired
	}

	if entry.Attempts >= s.cfg.MaxAttempts {
		delete(s.store, key)
		return domain.ErrOTPAttempts
	}

	if entry.Code != strings.TrimSpace(code) {
		entry.Attempts++
		if entry.Attempts >= s.cfg.MaxAttempts {
			delete(s.store, key)
			return domain.ErrOTPAttempts
		}
		return domain.ErrInvalidOTP
	}

	delete(s.store, key)
	return nil
}

// Pending reports whether an unexpired code exists for target
func (s *OTPService) Pending(target string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.store[otpKey(target)]
	return ok && s.now().Before(entry.ExpiresAt)
}

// ClearOTP removes any code issued for target
func (s *OTPService) ClearOTP(target string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.store, otpKey(target))
}

// PurgeExpired removes expired codes and returns how many were removed
func (s *OTPService) PurgeExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, entry := range s.store {
		if now.After(entry.ExpiresAt) {
			delete(s.store, key)
			removed++
		}
	}
	return removed
}

func otpKey(target string) string {
	return strings.ToLower(strings.TrimSpace(target))
}

// generateSecureOTP generates a cryptographically secure random OTP
func generateSecureOTP(length int) (string, error) {
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}
