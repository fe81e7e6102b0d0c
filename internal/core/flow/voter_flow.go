package flow

import (
	"context"
	"sync"
	"time"

	"votedesk/internal/core/domain"
	"votedesk/internal/core/services"
	"votedesk/internal/pkg/logger"

	"go.uber.org/zap"
)

const defaultResendCooldown = 30 * time.Second

// VoterFlow drives one browser through sign-in, identity verification and
// voting. Operations return false after queueing a notification.
type VoterFlow struct {
	outcome
	sc       *services.SessionContext
	sessions *services.SessionService
	records  *services.RecordService
	notifier services.Notifier
	cooldown time.Duration
	now      func() time.Time

	mu       sync.Mutex
	resendAt time.Time
}

// NewVoterFlow creates a voter flow. records should already be bound to notifier.
func NewVoterFlow(sc *services.SessionContext, sessions *services.SessionService, records *services.RecordService, notifier services.Notifier, cooldown time.Duration) *VoterFlow {
	if cooldown <= 0 {
		cooldown = defaultResendCooldown
	}
	return &VoterFlow{
		outcome:  outcome{sessionID: sc.ID, notifier: notifier},
		sc:       sc,
		sessions: sessions,
		records:  records,
		notifier: notifier,
		cooldown: cooldown,
		now:      time.Now,
	}
}

// State returns the current state of the session
func (f *VoterFlow) State() State {
	return StateOf(f.sc)
}

// Redirect returns the page the session belongs on
func (f *VoterFlow) Redirect() string {
	return RedirectFor(f.State())
}

func (f *VoterFlow) RequestPhoneOTP(ctx context.Context, phone string) bool {
	f.begin()
	if err := f.sessions.Login(ctx, f.sc, phone); err != nil {
		f.fail("Could not send code", err)
		return false
	}
	f.startCooldown()
	f.notifier.Notify(services.LevelSuccess, "Code sent", "A verification code was sent to your phone.")
	return true
}

func (f *VoterFlow) RequestEmailOTP(ctx context.Context, email string) bool {
	f.begin()
	if err := f.sessions.LoginWithEmail(ctx, f.sc, email); err != nil {
		f.fail("Could not send code", err)
		return false
	}
	f.startCooldown()
	f.notifier.Notify(services.LevelSuccess, "Code sent", "A verification code was sent to your email.")
	return true
}

func (f *VoterFlow) VerifyOTP(ctx context.Context, code string) bool {
	f.begin()
	if err := f.sessions.VerifyOTP(ctx, f.sc, code); err != nil {
		f.fail("Verification failed", err)
		return false
	}
	f.mu.Lock()
	f.resendAt = time.Time{}
	f.mu.Unlock()

	f.notifier.Notify(services.LevelSuccess, "Signed in", "You are now signed in.")
	return true
}

// ResendOTP re-issues the code unless the cooldown is still running
func (f *VoterFlow) ResendOTP(ctx context.Context) bool {
	f.begin()
	if wait := f.ResendIn(); wait > 0 {
		f.fail("Please wait", domain.ErrResendCooldown)
		return false
	}
	if err := f.sessions.ResendOTP(ctx, f.sc); err != nil {
		f.fail("Could not resend code", err)
		return false
	}
	f.startCooldown()
	f.notifier.Notify(services.LevelSuccess, "Code sent", "A new verification code is on its way.")
	return true
}

// ResendIn returns how long until a resend is allowed
func (f *VoterFlow) ResendIn() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	if wait := f.resendAt.Sub(f.now()); wait > 0 {
		return wait
	}
	return 0
}

func (f *VoterFlow) startCooldown() {
	f.mu.Lock()
	f.resendAt = f.now().Add(f.cooldown)
	f.mu.Unlock()
}

func (f *VoterFlow) VerifyIdentity(ctx context.Context, id, idType string) bool {
	f.begin()
	if err := f.sessions.VerifyVoterID(ctx, f.sc, id, idType); err != nil {
		f.fail("Verification failed", err)
		return false
	}
	f.notifier.Notify(services.LevelSuccess, "Identity verified", "Your identity document has been recorded.")
	return true
}

// ConstituencyStats is the turnout summary shown on the dashboard
type ConstituencyStats struct {
	domain.Constituency
	Turnout float64 `json:"turnout"`
}

// DashboardView is the voter's dashboard
type DashboardView struct {
	Voter            *domain.Voter      `json:"voter"`
	IdentityVerified bool               `json:"identity_verified"`
	VoteState        State              `json:"vote_state"`
	Constituency     *ConstituencyStats `json:"constituency,omitempty"`
	Candidates       []domain.Candidate `json:"candidates"`
}

// Dashboard loads the profile summary, constituency turnout and either the
// ballot or the already-voted state. Results that arrive after teardown are
// discarded.
func (f *VoterFlow) Dashboard(ctx context.Context) (*DashboardView, bool) {
	f.begin()
	voter, ok := f.voter()
	if !ok {
		return nil, false
	}

	if profile := f.records.GetUserProfile(ctx, voter.ID); profile != nil {
		fresh := domain.VoterFromProfile(profile)
		fresh.HasVoted = voter.HasVoted || fresh.HasVoted
		voter = fresh
	}
	hasVoted := f.records.CheckVoteStatus(ctx, voter.ID)
	voter.HasVoted = voter.HasVoted || hasVoted

	view := &DashboardView{
		Voter:            voter,
		IdentityVerified: voter.IsIdentityVerified(),
		VoteState:        StateNotVoted,
		Candidates:       []domain.Candidate{},
	}
	if voter.HasVoted {
		view.VoteState = StateVoted
	}

	if voter.ConstituencyID != "" {
		for _, c := range f.records.GetConstituencies(ctx) {
			if c.ID == voter.ConstituencyID {
				view.Constituency = &ConstituencyStats{Constituency: c, Turnout: c.Turnout()}
				break
			}
		}
		if !voter.HasVoted {
			view.Candidates = f.records.GetCandidatesByConstituency(ctx, voter.ConstituencyID)
		}
	}

	if !f.sc.Alive() {
		logger.Debug("dashboard discarded after teardown", zap.String("session_id", f.sc.ID))
		return nil, false
	}
	f.sc.UpdateVoter(voter.ID, func(v *domain.Voter) {
		v.HasVoted = voter.HasVoted
		v.Constituency = voter.Constituency
		v.ConstituencyID = voter.ConstituencyID
		v.AadhaarNumber = voter.AadhaarNumber
		v.VoterID = voter.VoterID
	})
	return view, true
}

// CastVote casts the signed-in voter's vote for candidateID
func (f *VoterFlow) CastVote(ctx context.Context, candidateID string) bool {
	f.begin()
	voter, ok := f.voter()
	if !ok {
		return false
	}
	if !voter.IsIdentityVerified() {
		f.fail("Cannot vote yet", domain.ErrIDNotVerified)
		return false
	}
	if voter.HasVoted {
		f.fail("Already voted", domain.ErrAlreadyVoted)
		return false
	}
	if voter.ConstituencyID == "" {
		f.fail("Cannot vote yet", domain.ErrNoConstituency)
		return false
	}

	cast := f.records.CastVote(ctx, voter.ID, candidateID, voter.ConstituencyID)
	hasVoted := cast || f.records.CheckVoteStatus(ctx, voter.ID)
	if f.sc.Alive() && hasVoted {
		f.sc.UpdateVoter(voter.ID, func(v *domain.Voter) { v.HasVoted = true })
	}
	return cast
}

// Logout signs the voter out
func (f *VoterFlow) Logout(ctx context.Context) bool {
	f.begin()
	if err := f.sessions.Logout(ctx, f.sc); err != nil {
		f.fail("Sign-out incomplete", err)
		return false
	}
	f.mu.Lock()
	f.resendAt = time.Time{}
	f.mu.Unlock()
	f.notifier.Notify(services.LevelInfo, "Signed out", "You have been signed out.")
	return true
}

// Teardown stops the provider subscription. Later results are discarded.
func (f *VoterFlow) Teardown() {
	f.sc.Close()
}

func (f *VoterFlow) voter() (*domain.Voter, bool) {
	user := f.sc.User()
	if user == nil {
		f.fail("Not signed in", domain.ErrNotAuthenticated)
		return nil, false
	}
	voter, ok := domain.AsVoter(user)
	if !ok {
		f.fail("Not a voter", domain.ErrNotVoter)
		return nil, false
	}
	return voter, true
}
