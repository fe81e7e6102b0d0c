package services

import (
	"context"
	"sync"
	"testing"

	"votedesk/internal/adapters/persistence/repositories"
	"votedesk/internal/config"
	"votedesk/internal/core/domain"
	"votedesk/internal/testutil"

	"gorm.io/gorm"
)

// fakeAuthClient counts calls and signs in whoever presents code "123456"
type fakeAuthClient struct {
	mu        sync.Mutex
	calls     map[string]int
	targets   []OTPTarget
	session   *AuthSession
	listeners map[int]AuthStateListener
	nextID    int
	userID    string
	signInErr error
}

func newFakeAuthClient(userID string) *fakeAuthClient {
	return &fakeAuthClient{calls: map[string]int{}, listeners: map[int]AuthStateListener{}, userID: userID}
}

func (c *fakeAuthClient) count(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[name]
}

func (c *fakeAuthClient) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.calls {
		n += v
	}
	return n
}

func (c *fakeAuthClient) record(name string) {
	c.mu.Lock()
	c.calls[name]++
	c.mu.Unlock()
}

func (c *fakeAuthClient) SignInWithOTP(_ context.Context, target OTPTarget) error {
	c.record("SignInWithOTP")
	c.mu.Lock()
	c.targets = append(c.targets, target)
	c.mu.Unlock()
	return c.signInErr
}

func (c *fakeAuthClient) VerifyOTP(ctx context.Context, target OTPTarget, code string) (*AuthSession, error) {
	c.record("VerifyOTP")
	if code != "123456" {
		return nil, domain.ErrInvalidOTP
	}
	session := &AuthSession{
		AccessToken:  "access-" + c.userID,
		RefreshToken: "refresh-" + c.userID,
		User:         AuthUser{ID: c.userID, Phone: target.Phone, Email: target.Email},
	}
	c.mu.Lock()
	c.session = session
	c.mu.Unlock()
	c.emit(ctx, EventSignedIn, session)
	return session, nil
}

func (c *fakeAuthClient) GetSession(context.Context) (*AuthSession, error) {
	c.record("GetSession")
	c.mu.Lock()
	defer c.mu.Unlock()
	return copySession(c.session), nil
}

func (c *fakeAuthClient) RestoreSession(_ context.Context, access, refresh string) (*AuthSession, error) {
	c.record("RestoreSession")
	if access != "access-"+c.userID {
		return nil, domain.ErrInvalidOTP
	}
	return &AuthSession{AccessToken: access, RefreshToken: refresh, User: AuthUser{ID: c.userID, Phone: "+919876543210"}}, nil
}

func (c *fakeAuthClient) OnAuthStateChange(listener AuthStateListener) func() {
	c.record("OnAuthStateChange")
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = listener
	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *fakeAuthClient) SignOut(ctx context.Context) error {
	c.record("SignOut")
	c.mu.Lock()
	c.session = nil
	c.mu.Unlock()
	c.emit(ctx, EventSignedOut, nil)
	return nil
}

func (c *fakeAuthClient) listenerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.listeners)
}

func (c *fakeAuthClient) emit(ctx context.Context, event AuthEvent, session *AuthSession) {
	c.mu.Lock()
	var listeners []AuthStateListener
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.mu.Unlock()
	for _, l := range listeners {
		l(ctx, event, copySession(session))
	}
}

// fixture bundles a seeded store and the services built on it
type fixture struct {
	cfg      *config.Config
	db       *gorm.DB
	profiles repositories.ProfileRepository
	votes    repositories.VoteRepository
	sessions *SessionService
	records  *RecordService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testutil.Config()
	db := testutil.NewDB(t, cfg)

	profiles := repositories.NewProfileRepository(db)
	constituencies := repositories.NewConstituencyRepository(db)
	votes := repositories.NewVoteRepository(db)

	sessions, err := NewSessionService(profiles, constituencies, cfg.OTP, cfg.Session)
	if err != nil {
		t.Fatalf("NewSessionService() error = %v", err)
	}
	records := NewRecordService(constituencies, repositories.NewCandidateRepository(db), profiles, votes)

	return &fixture{cfg: cfg, db: db, profiles: profiles, votes: votes, sessions: sessions, records: records}
}
