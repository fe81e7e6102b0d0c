package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"votedesk/internal/adapters/persistence/models"
	"votedesk/internal/adapters/persistence/repositories"
	"votedesk/internal/config"
	"votedesk/internal/core/domain"
	"votedesk/internal/pkg/jwt"
	"votedesk/internal/pkg/logger"
	"votedesk/internal/pkg/password"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AuthEvent is an identity provider state change
type AuthEvent string

const (
	EventInitialSession AuthEvent = "INITIAL_SESSION"
	EventSignedIn       AuthEvent = "SIGNED_IN"
	EventSignedOut      AuthEvent = "SIGNED_OUT"
	EventTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
)

// AuthUser is the provider's view of a signed-in user
type AuthUser struct {
	ID    string `json:"id"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// AuthSession is an authenticated provider session
type AuthSession struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         AuthUser  `json:"user"`
}

// OTPTarget identifies where a code is sent. Exactly one field is set.
type OTPTarget struct {
	Phone string // E.164, country code included
	Email string
}

func (t OTPTarget) key() string {
	if t.Phone != "" {
		return t.Phone
	}
	return t.Email
}

func (t OTPTarget) channel() OTPChannel {
	if t.Phone != "" {
		return ChannelSMS
	}
	return ChannelEmail
}

// AuthStateListener receives provider state changes. Listeners run
// synchronously on the goroutine that caused the change.
type AuthStateListener func(ctx context.Context, event AuthEvent, session *AuthSession)

// AuthClient is one browser's connection to the identity provider
type AuthClient interface {
	SignInWithOTP(ctx context.Context, target OTPTarget) error
	VerifyOTP(ctx context.Context, target OTPTarget, code string) (*AuthSession, error)
	GetSession(ctx context.Context) (*AuthSession, error)
	RestoreSession(ctx context.Context, accessToken, refreshToken string) (*AuthSession, error)
	OnAuthStateChange(listener AuthStateListener) (unsubscribe func())
	SignOut(ctx context.Context) error
}

// IdentityProvider hands out per-browser auth clients
type IdentityProvider interface {
	NewClient() AuthClient
}

// ============================================================
// Built-in provider: OTP store + identities + JWT sessions
// ============================================================

// LocalIdentityProvider implements IdentityProvider on top of the OTP store
// and the auth_identities / refresh_tokens tables
type LocalIdentityProvider struct {
	otp              *OTPService
	sender           OTPSender
	identityRepo     repositories.IdentityRepository
	refreshTokenRepo repositories.RefreshTokenRepository
	jwtCfg           config.JWTConfig
}

// NewLocalIdentityProvider creates the built-in identity provider
func NewLocalIdentityProvider(
	otp *OTPService,
	sender OTPSender,
	identityRepo repositories.IdentityRepository,
	refreshTokenRepo repositories.RefreshTokenRepository,
	jwtCfg config.JWTConfig,
) *LocalIdentityProvider {
	return &LocalIdentityProvider{
		otp:              otp,
		sender:           sender,
		identityRepo:     identityRepo,
		refreshTokenRepo: refreshTokenRepo,
		jwtCfg:           jwtCfg,
	}
}

// NewClient creates an auth client with no session
func (p *LocalIdentityProvider) NewClient() AuthClient {
	return &localAuthClient{provider: p, listeners: make(map[int]AuthStateListener)}
}

// issueSession generates an access/refresh token pair and stores the refresh token hash
func (p *LocalIdentityProvider) issueSession(ctx context.Context, identity *models.Identity) (*AuthSession, error) {
	user := identityUser(identity)

	accessToken, err := jwt.GenerateAccessToken(user.ID, user.Phone, user.Email, p.jwtCfg.Secret, p.jwtCfg.AccessTTL())
	if err != nil {
		return nil, domain.Provider("generate access token", err)
	}

	refreshToken, err := jwt.GenerateRefreshToken(user.ID, uuid.NewString(), p.jwtCfg.RefreshSecret, p.jwtCfg.RefreshTTL())
	if err != nil {
		return nil, domain.Provider("generate refresh token", err)
	}

	stored := &models.RefreshToken{
		UserID:    user.ID,
		TokenHash: password.HashToken(refreshToken),
		ExpiresAt: time.Now().Add(p.jwtCfg.RefreshTTL()),
	}
	if err := p.refreshTokenRepo.Create(ctx, stored); err != nil {
		return nil, domain.Storage("store refresh token", err)
	}

	return &AuthSession{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().Add(p.jwtCfg.AccessTTL()),
		User:         user,
	}, nil
}

// sessionFromAccessToken rebuilds a session from a still-valid access token
func (p *LocalIdentityProvider) sessionFromAccessToken(ctx context.Context, accessToken, refreshToken string) (*AuthSession, error) {
	claims, err := jwt.ValidateAccessToken(accessToken, p.jwtCfg.Secret)
	if err != nil {
		return nil, err
	}

	identity, err := p.identityRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrInvalidToken
		}
		return nil, domain.Storage("load identity", err)
	}

	session := &AuthSession{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         identityUser(identity),
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session, nil
}

// rotate exchanges a refresh token for a new session (token rotation)
func (p *LocalIdentityProvider) rotate(ctx context.Context, refreshToken string) (*AuthSession, error) {
	claims, err := jwt.ValidateRefreshToken(refreshToken, p.jwtCfg.RefreshSecret)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrInvalidToken
	}

	stored, err := p.refreshTokenRepo.GetByTokenHash(ctx, password.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// A validly signed token with no active row was already rotated
			// or revoked: treat it as replayed and end every session of the user.
			if revokeErr := p.refreshTokenRepo.RevokeAllByUserID(ctx, claims.UserID); revokeErr != nil {
				return nil, domain.Storage("revoke refresh tokens", revokeErr)
			}
			logger.Warn("refresh token replay detected", zap.String("user_id", claims.UserID))
			return nil, domain.ErrTokenRevoked
		}
		return nil, domain.Storage("load refresh token", err)
	}
	if stored.IsRevoked() {
		return nil, domain.ErrTokenRevoked
	}
	if stored.IsExpired() {
		return nil, domain.ErrTokenExpired
	}

	identity, err := p.identityRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrInvalidToken
		}
		return nil, domain.Storage("load identity", err)
	}

	if err := p.refreshTokenRepo.Revoke(ctx, stored.ID); err != nil {
		return nil, domain.Storage("revoke refresh token", err)
	}

	logger.Debug("refresh token rotated", zap.String("user_id", identity.ID))
	return p.issueSession(ctx, identity)
}

func identityUser(identity *models.Identity) AuthUser {
	user := AuthUser{ID: identity.ID}
	if identity.Phone != nil {
		user.Phone = *identity.Phone
	}
	if identity.Email != nil {
		user.Email = *identity.Email
	}
	return user
}

// localAuthClient holds at most one session for one browser
type localAuthClient struct {
	provider *LocalIdentityProvider

	mu        sync.Mutex
	session   *AuthSession
	listeners map[int]AuthStateListener
	nextID    int
}

func (c *localAuthClient) SignInWithOTP(ctx context.Context, target OTPTarget) error {
	entry, err := c.provider.otp.GenerateOTP(target.key())
	if err != nil {
		return err
	}

	msg := OTPMessage{
		Channel:   target.channel(),
		To:        target.key(),
		Code:      entry.Code,
		ExpiresAt: entry.ExpiresAt,
	}
	if err := c.provider.sender.Send(ctx, msg); err != nil {
		c.provider.otp.ClearOTP(target.key())
		return domain.Provider("deliver otp", err)
	}
	return nil
}

func (c *localAuthClient) VerifyOTP(ctx context.Context, target OTPTarget, code string) (*AuthSession, error) {
	if err := c.provider.otp.VerifyOTP(target.key(), code); err != nil {
		return nil, err
	}

	var (
		identity *models.Identity
		err      error
	)
	if target.Phone != "" {
		identity, err = c.provider.identityRepo.FindOrCreateByPhone(ctx, target.Phone)
	} else {
		identity, err = c.provider.identityRepo.FindOrCreateByEmail(ctx, target.Email)
	}
	if err != nil {
		return nil, domain.Storage("find or create identity", err)
	}

	if err := c.provider.identityRepo.TouchSignIn(ctx, identity.ID, time.Now()); err != nil {
		logger.Warn("failed to record sign-in time", zap.String("user_id", identity.ID), zap.Error(err))
	}

	session, err := c.provider.issueSession(ctx, identity)
	if err != nil {
		return nil, err
	}

	c.setSession(session)
	c.emit(ctx, EventSignedIn, session)
	return copySession(session), nil
}

// GetSession returns the current session, or nil when signed out
func (c *localAuthClient) GetSession(_ context.Context) (*AuthSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copySession(c.session), nil
}

// RestoreSession adopts a session persisted by the browser. A valid access
// token is reused; otherwise the refresh token is rotated.
func (c *localAuthClient) RestoreSession(ctx context.Context, accessToken, refreshToken string) (*AuthSession, error) {
	if accessToken == "" && refreshToken == "" {
		return nil, nil
	}

	event := EventInitialSession
	session, err := c.provider.sessionFromAccessToken(ctx, accessToken, refreshToken)
	if err != nil {
		if refreshToken == "" {
			return nil, domain.ErrInvalidToken
		}
		if session, err = c.provider.rotate(ctx, refreshToken); err != nil {
			return nil, err
		}
		event = EventTokenRefreshed
	}

	c.setSession(session)
	c.emit(ctx, event, session)
	return copySession(session), nil
}

func (c *localAuthClient) OnAuthStateChange(listener AuthStateListener) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.listeners[id] = listener

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

func (c *localAuthClient) SignOut(ctx context.Context) error {
	c.mu.Lock()
	session := c.session
	c.session = nil
	c.mu.Unlock()

	if session == nil {
		return nil
	}

	var err error
	if session.RefreshToken != "" {
		err = c.provider.refreshTokenRepo.RevokeByTokenHash(ctx, password.HashToken(session.RefreshToken))
	}
	c.emit(ctx, EventSignedOut, nil)
	if err != nil {
		return domain.Storage("revoke refresh token", err)
	}
	return nil
}

func (c *localAuthClient) setSession(session *AuthSession) {
	c.mu.Lock()
	c.session = session
	c.mu.Unlock()
}

// emit calls listeners in subscription order without holding the lock
func (c *localAuthClient) emit(ctx context.Context, event AuthEvent, session *AuthSession) {
	c.mu.Lock()
	ids := make([]int, 0, len(c.listeners))
	for id := range c.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	listeners := make([]AuthStateListener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, c.listeners[id])
	}
	c.mu.Unlock()

	for _, listener := range listeners {
		listener(ctx, event, copySession(session))
	}
}

func copySession(s *AuthSession) *AuthSession {
	if s == nil {
		return nil
	}
	out := *s
	return &out
}
