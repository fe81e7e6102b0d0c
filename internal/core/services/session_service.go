package services

import (
	"context"
	"errors"
	"strings"

	"votedesk/internal/adapters/persistence/models"
	"votedesk/internal/adapters/persistence/repositories"
	"votedesk/internal/config"
	"votedesk/internal/core/domain"
	"votedesk/internal/pkg/logger"
	"votedesk/internal/pkg/password"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Administrator stub credentials. Not for production use.
const (
	adminUsername = "admin"
	adminPassword = "password"
	adminUserID   = "00000000-0000-0000-0000-00000000a001"
)

// SessionService drives sign-in, identity verification and sign-out for a
// SessionContext, and keeps its user in step with the identity provider
type SessionService struct {
	profileRepo      repositories.ProfileRepository
	constituencyRepo repositories.ConstituencyRepository
	otpCfg           config.OTPConfig
	sessionCfg       config.SessionConfig
	adminHash        string
}

// NewSessionService creates a new session service
func NewSessionService(
	profileRepo repositories.ProfileRepository,
	constituencyRepo repositories.ConstituencyRepository,
	otpCfg config.OTPConfig,
	sessionCfg config.SessionConfig,
) (*SessionService, error) {
	hash, err := password.HashWithCost(adminPassword, bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	if otpCfg.CountryCode == "" {
		otpCfg.CountryCode = "+91"
	}

	logger.Warn("administrator login is a hardcoded stub and must not be used in production",
		zap.String("username", adminUsername))

	return &SessionService{
		profileRepo:      profileRepo,
		constituencyRepo: constituencyRepo,
		otpCfg:           otpCfg,
		sessionCfg:       sessionCfg,
		adminHash:        hash,
	}, nil
}

// Login requests an OTP for a 10-digit phone number
func (s *SessionService) Login(ctx context.Context, sc *SessionContext, phone string) error {
	if !sc.Alive() {
		return domain.ErrSessionClosed
	}
	phone, err := domain.NormalizePhone(phone)
	if err != nil {
		return err
	}

	if err := sc.Client().SignInWithOTP(ctx, s.phoneTarget(phone)); err != nil {
		return domain.Provider("sign in with otp", err)
	}

	sc.setPending(phone, "")
	logger.Info("otp requested", zap.String("session_id", sc.ID), zap.String("channel", string(ChannelSMS)))
	return nil
}

// LoginWithEmail requests an OTP for an email address
func (s *SessionService) LoginWithEmail(ctx context.Context, sc *SessionContext, email string) error {
	if !sc.Alive() {
		return domain.ErrSessionClosed
	}
	email, err := domain.NormalizeEmail(email)
	if err != nil {
		return err
	}

	if err := sc.Client().SignInWithOTP(ctx, OTPTarget{Email: email}); err != nil {
		return domain.Provider("sign in with otp", err)
	}

	sc.setPending("", email)
	logger.Info("otp requested", zap.String("session_id", sc.ID), zap.String("channel", string(ChannelEmail)))
	return nil
}

// VerifyOTP completes sign-in for the pending phone or email
func (s *SessionService) VerifyOTP(ctx context.Context, sc *SessionContext, code string) error {
	if !sc.Alive() {
		return domain.ErrSessionClosed
	}
	target, ok := s.pendingTarget(sc)
	if !ok {
		return domain.ErrNoPendingLogin
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.ErrEmptyOTP
	}

	session, err := sc.Client().VerifyOTP(ctx, target, code)
	if err != nil {
		return domain.Provider("verify otp", err)
	}

	sc.setPending("", "")
	sc.setTokens(session)
	logger.Info("otp verified", zap.String("session_id", sc.ID), zap.String("user_id", session.User.ID))

	return s.hydrate(ctx, sc, session.User)
}

// ResendOTP re-issues a code for whichever identifier is pending
func (s *SessionService) ResendOTP(ctx context.Context, sc *SessionContext) error {
	if !sc.Alive() {
		return domain.ErrSessionClosed
	}
	target, ok := s.pendingTarget(sc)
	if !ok {
		return domain.ErrNoPendingLogin
	}
	if err := sc.Client().SignInWithOTP(ctx, target); err != nil {
		return domain.Provider("resend otp", err)
	}
	logger.Info("otp resent", zap.String("session_id", sc.ID))
	return nil
}

// VerifyVoterID stores an Aadhaar number or Voter ID on the signed-in voter's profile
func (s *SessionService) VerifyVoterID(ctx context.Context, sc *SessionContext, id, idType string) error {
	kind, err := domain.ParseIDType(idType)
	if err != nil {
		return err
	}
	number, err := domain.NormalizeIdentityNumber(id, kind)
	if err != nil {
		return err
	}

	user := sc.User()
	if user == nil {
		return domain.ErrNotAuthenticated
	}
	voter, ok := domain.AsVoter(user)
	if !ok {
		return domain.ErrNotVoter
	}

	column := "voter_id"
	if kind == domain.IDTypeAadhaar {
		column = "aadhaar_number"
	}
	if err := s.profileRepo.Update(ctx, voter.ID, map[string]interface{}{column: number}); err != nil {
		return domain.Storage("update identity number", err)
	}

	sc.UpdateVoter(voter.ID, func(v *domain.Voter) {
		if kind == domain.IDTypeAadhaar {
			v.AadhaarNumber = &number
		} else {
			v.VoterID = &number
		}
	})
	logger.Info("identity verified", zap.String("user_id", voter.ID), zap.String("id_type", string(kind)))
	return nil
}

// AdminLogin signs in the hardcoded administrator. Not for production use.
func (s *SessionService) AdminLogin(ctx context.Context, sc *SessionContext, username, pass string) error {
	logger.Warn("administrator stub login attempted", zap.String("session_id", sc.ID), zap.String("username", username))

	if username != adminUsername || !password.Verify(pass, s.adminHash) {
		return domain.ErrInvalidCredentials
	}

	// A voter signed in on this browser is signed out first
	if _, ok := sc.Voter(); ok {
		if err := sc.Client().SignOut(ctx); err != nil {
			logger.Warn("failed to sign out voter before admin login", zap.Error(err))
		}
	}

	admin := &domain.Administrator{
		ID:       adminUserID,
		Username: adminUsername,
		Name:     "Election Administrator",
		Role:     domain.RoleAdmin,
	}
	sc.clear()
	if !sc.setUser(admin) {
		return domain.ErrSessionClosed
	}
	return nil
}

// Logout signs out of the provider and forgets the user. Administrators
// hold no provider session, so only memory is cleared for them.
func (s *SessionService) Logout(ctx context.Context, sc *SessionContext) error {
	role := sc.Role()
	var err error
	if role != domain.RoleAdmin {
		if signOutErr := sc.Client().SignOut(ctx); signOutErr != nil {
			err = domain.Provider("sign out", signOutErr)
		}
	}
	sc.clear()
	logger.Info("signed out", zap.String("session_id", sc.ID), zap.String("role", string(role)))
	return err
}

// Init subscribes the session to provider state changes and restores any
// session the browser persisted. Both paths converge on hydrate.
func (s *SessionService) Init(ctx context.Context, sc *SessionContext, accessToken, refreshToken string) error {
	if !sc.Alive() {
		return domain.ErrSessionClosed
	}

	sc.subscribe(func() func() {
		return sc.Client().OnAuthStateChange(func(ctx context.Context, event AuthEvent, session *AuthSession) {
			s.onAuthStateChange(ctx, sc, event, session)
		})
	})

	var (
		session *AuthSession
		err     error
	)
	if accessToken != "" || refreshToken != "" {
		session, err = sc.Client().RestoreSession(ctx, accessToken, refreshToken)
	} else {
		session, err = sc.Client().GetSession(ctx)
	}
	if err != nil {
		return domain.Provider("restore session", err)
	}
	if session == nil {
		return nil
	}

	sc.setTokens(session)
	return s.hydrate(ctx, sc, session.User)
}

func (s *SessionService) onAuthStateChange(ctx context.Context, sc *SessionContext, event AuthEvent, session *AuthSession) {
	logger.Debug("auth state changed", zap.String("session_id", sc.ID), zap.String("event", string(event)))

	switch event {
	case EventSignedOut:
		if sc.Role() != domain.RoleAdmin {
			sc.clear()
		}
	case EventSignedIn, EventTokenRefreshed, EventInitialSession:
		if session == nil {
			return
		}
		sc.setTokens(session)
		if err := s.hydrate(ctx, sc, session.User); err != nil {
			logger.Error("hydration after auth event failed", zap.String("event", string(event)), zap.Error(err))
		}
	}
}

// hydrate loads (or on first sign-in creates) the user's profile and installs
// the resulting voter, unless a newer hydration or a close overtook it
func (s *SessionService) hydrate(ctx context.Context, sc *SessionContext, user AuthUser) error {
	token, ok := sc.beginHydration()
	if !ok {
		return domain.ErrSessionClosed
	}

	profile, err := s.loadProfile(ctx, user)
	if err != nil {
		return err
	}

	voter := domain.VoterFromProfile(profile.ToDomain())
	if !sc.applyHydration(token, voter) {
		logger.Debug("stale hydration discarded", zap.String("session_id", sc.ID), zap.String("user_id", user.ID))
	}
	return nil
}

func (s *SessionService) loadProfile(ctx context.Context, user AuthUser) (*models.Profile, error) {
	profile, err := s.profileRepo.GetWithConstituency(ctx, user.ID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.Storage("load profile", err)
	}

	created := &models.Profile{
		ID:    user.ID,
		Phone: strings.TrimPrefix(user.Phone, s.otpCfg.CountryCode),
		Email: user.Email,
	}
	if name := s.sessionCfg.DefaultConstituency; name != "" {
		constituency, err := s.constituencyRepo.GetByName(ctx, name)
		if err != nil {
			logger.Warn("default constituency unavailable", zap.String("name", name), zap.Error(err))
		} else {
			created.ConstituencyID = &constituency.ID
		}
	}

	profile, err = s.profileRepo.CreateIfAbsent(ctx, created)
	if err != nil {
		return nil, domain.Storage("create profile", err)
	}
	logger.Info("profile created", zap.String("user_id", user.ID))
	return profile, nil
}

func (s *SessionService) phoneTarget(phone string) OTPTarget {
	return OTPTarget{Phone: s.otpCfg.CountryCode + phone}
}

func (s *SessionService) pendingTarget(sc *SessionContext) (OTPTarget, bool) {
	phone, email := sc.Pending()
	switch {
	case phone != "":
		return s.phoneTarget(phone), true
	case email != "":
		return OTPTarget{Email: email}, true
	}
	return OTPTarget{}, false
}
