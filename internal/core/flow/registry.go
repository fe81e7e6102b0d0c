package flow

import (
	"context"
	"sync"
	"time"

	"votedesk/internal/core/services"
	"votedesk/internal/pkg/logger"

	"go.uber.org/zap"
)

// Session bundles everything held for one browser
type Session struct {
	ID            string
	Context       *services.SessionContext
	Voter         *VoterFlow
	Admin         *AdminFlow
	Notifications *services.NotificationBuffer

	initOnce sync.Once
	initErr  error
}

// State returns the current state of the session
func (s *Session) State() State {
	return StateOf(s.Context)
}

// Redirect returns the page the session belongs on
func (s *Session) Redirect() string {
	return RedirectFor(s.State())
}

// Registry maps browser session ids to their flows
type Registry struct {
	provider services.IdentityProvider
	sessions *services.SessionService
	records  *services.RecordService
	cooldown time.Duration

	mu    sync.Mutex
	items map[string]*Session
}

// NewRegistry creates an empty registry
func NewRegistry(provider services.IdentityProvider, sessions *services.SessionService, records *services.RecordService, cooldown time.Duration) *Registry {
	return &Registry{
		provider: provider,
		sessions: sessions,
		records:  records,
		cooldown: cooldown,
		items:    make(map[string]*Session),
	}
}

// Open returns the session for sid, creating and initializing it on first
// use. accessToken and refreshToken restore a session persisted by the
// browser. A restore failure leaves the session signed out and is returned
// alongside it.
func (r *Registry) Open(ctx context.Context, sid, accessToken, refreshToken string) (*Session, error) {
	r.mu.Lock()
	s, ok := r.items[sid]
	if !ok {
		s = r.build(sid)
		r.items[sid] = s
	}
	r.mu.Unlock()

	s.initOnce.Do(func() {
		s.initErr = r.sessions.Init(ctx, s.Context, accessToken, refreshToken)
		if s.initErr != nil {
			logger.Warn("session restore failed", zap.String("session_id", sid), zap.Error(s.initErr))
		}
	})
	s.Context.Touch()

	if !ok {
		return s, s.initErr
	}
	return s, nil
}

// Get returns the session for sid without creating one
func (r *Registry) Get(sid string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.items[sid]
	return s, ok
}

func (r *Registry) build(sid string) *Session {
	notes := services.NewNotificationBuffer(20)
	sc := services.NewSessionContext(sid, r.provider.NewClient())
	records := r.records.For(notes)
	return &Session{
		ID:            sid,
		Context:       sc,
		Voter:         NewVoterFlow(sc, r.sessions, records, notes, r.cooldown),
		Admin:         NewAdminFlow(sc, r.sessions, records, notes),
		Notifications: notes,
	}
}

// Close tears down and forgets the session for sid
func (r *Registry) Close(sid string) {
	r.mu.Lock()
	s, ok := r.items[sid]
	delete(r.items, sid)
	r.mu.Unlock()

	if ok {
		s.Voter.Teardown()
	}
}

// EvictIdle tears down sessions idle for longer than maxIdle
func (r *Registry) EvictIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	r.mu.Lock()
	var stale []*Session
	for sid, s := range r.items {
		if s.Context.IdleSince().Before(cutoff) {
			stale = append(stale, s)
			delete(r.items, sid)
		}
	}
	r.mu.Unlock()

	for _, s := range stale {
		s.Voter.Teardown()
	}
	if len(stale) > 0 {
		logger.Info("idle sessions evicted", zap.Int("count", len(stale)))
	}
	return len(stale)
}

// Len returns the number of open sessions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// CloseAll tears down every session (shutdown)
func (r *Registry) CloseAll() {
	r.mu.Lock()
	items := r.items
	r.items = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range items {
		s.Voter.Teardown()
	}
}
