package services

import (
	"sync"
	"time"

	"votedesk/internal/core/domain"
)

// SessionContext is the state of one browser session: the signed-in user,
// the identifier awaiting an OTP, and the auth client subscription. All
// session operations take it explicitly.
type SessionContext struct {
	ID     string
	client AuthClient

	mu           sync.Mutex
	user         domain.User
	pendingPhone string
	pendingEmail string
	tokens       *AuthSession
	hydration    uint64
	unsubscribe  func()
	closed       bool
	lastSeen     time.Time
}

// NewSessionContext creates a session bound to its own auth client
func NewSessionContext(id string, client AuthClient) *SessionContext {
	return &SessionContext{ID: id, client: client, lastSeen: time.Now()}
}

// Client returns the session's auth client
func (sc *SessionContext) Client() AuthClient {
	return sc.client
}

// User returns the signed-in user. Voters are returned as copies.
func (sc *SessionContext) User() domain.User {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if v, ok := sc.user.(*domain.Voter); ok {
		return v.Clone()
	}
	return sc.user
}

// Voter returns a copy of the signed-in voter, if any
func (sc *SessionContext) Voter() (*domain.Voter, bool) {
	return domain.AsVoter(sc.User())
}

// Role classifies the signed-in user
func (sc *SessionContext) Role() domain.Role {
	return domain.RoleOf(sc.User())
}

// Pending returns the phone or email awaiting verification
func (sc *SessionContext) Pending() (phone, email string) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.pendingPhone, sc.pendingEmail
}

// HasPending reports whether an OTP has been requested and not yet verified
func (sc *SessionContext) HasPending() bool {
	phone, email := sc.Pending()
	return phone != "" || email != ""
}

// Tokens returns the provider session tokens, if signed in through the provider
func (sc *SessionContext) Tokens() (accessToken, refreshToken string) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.tokens == nil {
		return "", ""
	}
	return sc.tokens.AccessToken, sc.tokens.RefreshToken
}

// Alive reports whether the session has not been closed
func (sc *SessionContext) Alive() bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return !sc.closed
}

// Touch records activity for idle eviction
func (sc *SessionContext) Touch() {
	sc.mu.Lock()
	sc.lastSeen = time.Now()
	sc.mu.Unlock()
}

// IdleSince returns the time of the last recorded activity
func (sc *SessionContext) IdleSince() time.Time {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.lastSeen
}

// Close stops the auth subscription and discards any in-flight hydration.
// Closing twice is a no-op.
func (sc *SessionContext) Close() {
	sc.mu.Lock()
	if sc.closed {
		sc.mu.Unlock()
		return
	}
	sc.closed = true
	sc.hydration++
	unsubscribe := sc.unsubscribe
	sc.unsubscribe = nil
	sc.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (sc *SessionContext) setPending(phone, email string) {
	sc.mu.Lock()
	sc.pendingPhone, sc.pendingEmail = phone, email
	sc.mu.Unlock()
}

func (sc *SessionContext) setTokens(session *AuthSession) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.closed {
		return
	}
	sc.tokens = copySession(session)
}

func (sc *SessionContext) setUser(u domain.User) bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.closed {
		return false
	}
	// Any hydration started before this point is stale
	sc.hydration++
	sc.user = u
	return true
}

// clear forgets the user, the pending identifier and the tokens
func (sc *SessionContext) clear() {
	sc.mu.Lock()
	sc.hydration++
	sc.user = nil
	sc.pendingPhone, sc.pendingEmail = "", ""
	sc.tokens = nil
	sc.mu.Unlock()
}

// subscribe installs the auth subscription once
func (sc *SessionContext) subscribe(install func() func()) {
	sc.mu.Lock()
	if sc.closed || sc.unsubscribe != nil {
		sc.mu.Unlock()
		return
	}
	sc.mu.Unlock()

	unsubscribe := install()

	sc.mu.Lock()
	if sc.closed || sc.unsubscribe != nil {
		sc.mu.Unlock()
		unsubscribe()
		return
	}
	sc.unsubscribe = unsubscribe
	sc.mu.Unlock()
}

func (sc *SessionContext) subscribed() bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.unsubscribe != nil
}

// beginHydration hands out a token identifying the newest hydration request
func (sc *SessionContext) beginHydration() (uint64, bool) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.closed {
		return 0, false
	}
	sc.hydration++
	return sc.hydration, true
}

// applyHydration installs v only if token is still the newest and the
// session is alive
func (sc *SessionContext) applyHydration(token uint64, v *domain.Voter) bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.closed || token != sc.hydration {
		return false
	}
	sc.user = v
	return true
}

// UpdateVoter mutates the signed-in voter in place. Hydrations begun before
// the update are discarded so they cannot overwrite it with older data.
func (sc *SessionContext) UpdateVoter(id string, fn func(v *domain.Voter)) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if v, ok := sc.user.(*domain.Voter); ok && v.ID == id {
		fn(v)
		sc.hydration++
	}
}
