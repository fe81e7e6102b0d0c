package flow

import (
	"context"
	"sync"
	"testing"
	"time"

	"votedesk/internal/adapters/persistence/repositories"
	"votedesk/internal/core/services"
	"votedesk/internal/testutil"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// inbox stands in for the SMS and email gateway
type inbox struct {
	mu    sync.Mutex
	codes map[string]string
	sends int
}

func (b *inbox) Send(_ context.Context, msg services.OTPMessage) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.codes[msg.To] = msg.Code
	b.sends++
	return nil
}

func (b *inbox) code(to string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.codes[to]
}

func (b *inbox) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sends
}

type harness struct {
	db       *gorm.DB
	inbox    *inbox
	registry *Registry
	records  *services.RecordService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := testutil.Config()
	db := testutil.NewDB(t, cfg)

	profiles := repositories.NewProfileRepository(db)
	constituencies := repositories.NewConstituencyRepository(db)
	box := &inbox{codes: map[string]string{}}

	provider := services.NewLocalIdentityProvider(
		services.NewOTPService(cfg.OTP),
		box,
		repositories.NewIdentityRepository(db),
		repositories.NewRefreshTokenRepository(db),
		cfg.JWT,
	)
	sessions, err := services.NewSessionService(profiles, constituencies, cfg.OTP, cfg.Session)
	if err != nil {
		t.Fatal(err)
	}
	records := services.NewRecordService(constituencies, repositories.NewCandidateRepository(db), profiles, repositories.NewVoteRepository(db))

	registry := NewRegistry(provider, sessions, records, cfg.OTP.ResendCooldown)
	t.Cleanup(registry.CloseAll)
	return &harness{db: db, inbox: box, registry: registry, records: records}
}

func (h *harness) open(t *testing.T) *Session {
	t.Helper()
	s, err := h.registry.Open(context.Background(), uuid.NewString(), "", "")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return s
}

// signIn walks a fresh session through phone OTP sign-in
func (h *harness) signIn(t *testing.T, phone string) *Session {
	t.Helper()
	ctx := context.Background()
	s := h.open(t)
	if !s.Voter.RequestPhoneOTP(ctx, phone) {
		t.Fatalf("RequestPhoneOTP() failed: %v", s.Voter.LastError())
	}
	if !s.Voter.VerifyOTP(ctx, h.inbox.code("+91"+phone)) {
		t.Fatalf("VerifyOTP() failed: %v", s.Voter.LastError())
	}
	return s
}

type manualClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *manualClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *manualClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}
