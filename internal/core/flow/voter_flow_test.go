package flow

import (
	"context"
	"errors"
	"testing"
	"time"

	"votedesk/internal/config"
	"votedesk/internal/core/domain"
	"votedesk/internal/core/services"
	"votedesk/internal/testutil"
)

func TestVoterJourney(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	s := h.open(t)

	if s.State() != StateUnauthenticated || s.Redirect() != "/login" {
		t.Fatalf("fresh session state = %s -> %s", s.State(), s.Redirect())
	}

	if !s.Voter.RequestPhoneOTP(ctx, "9876543210") {
		t.Fatalf("RequestPhoneOTP() failed: %v", s.Voter.LastError())
	}
	if s.State() != StateOTPRequested || s.Redirect() != "/login/otp" {
		t.Fatalf("after request state = %s -> %s", s.State(), s.Redirect())
	}

	if !s.Voter.VerifyOTP(ctx, h.inbox.code("+919876543210")) {
		t.Fatalf("VerifyOTP() failed: %v", s.Voter.LastError())
	}
	if s.State() != StateVoterUnverified || s.Redirect() != "/verify" {
		t.Fatalf("after sign-in state = %s -> %s", s.State(), s.Redirect())
	}

	if s.Voter.CastVote(ctx, config.CandidateID(testutil.NewDelhi, testutil.MeeraKapoor)) {
		t.Fatal("unverified voter was allowed to vote")
	}
	if !errors.Is(s.Voter.LastError(), domain.ErrIDNotVerified) {
		t.Errorf("LastError() = %v, want %v", s.Voter.LastError(), domain.ErrIDNotVerified)
	}

	if !s.Voter.VerifyIdentity(ctx, "ABC1234567", "voterId") {
		t.Fatalf("VerifyIdentity() failed: %v", s.Voter.LastError())
	}
	if s.State() != StateVoterVerified || s.Redirect() != "/dashboard" {
		t.Fatalf("after verification state = %s -> %s", s.State(), s.Redirect())
	}

	view, ok := s.Voter.Dashboard(ctx)
	if !ok {
		t.Fatalf("Dashboard() failed: %v", s.Voter.LastError())
	}
	if view.VoteState != StateNotVoted || !view.IdentityVerified {
		t.Errorf("dashboard = %+v", view)
	}
	if view.Constituency == nil || view.Constituency.Name != testutil.NewDelhi {
		t.Fatalf("dashboard constituency = %+v", view.Constituency)
	}
	if len(view.Candidates) != 3 {
		t.Errorf("ballot has %d candidates, want 3", len(view.Candidates))
	}

	if !s.Voter.CastVote(ctx, view.Candidates[0].ID) {
		t.Fatalf("CastVote() failed: %v", s.Voter.LastError())
	}
	if s.State() != StateVoted {
		t.Errorf("after vote state = %s", s.State())
	}

	view, ok = s.Voter.Dashboard(ctx)
	if !ok {
		t.Fatal("Dashboard() after vote failed")
	}
	if view.VoteState != StateVoted || len(view.Candidates) != 0 {
		t.Errorf("voted dashboard = %+v", view)
	}
	if view.Constituency.VotesCast != 1 {
		t.Errorf("VotesCast = %d, want 1", view.Constituency.VotesCast)
	}

	if s.Voter.CastVote(ctx, view.Voter.ID) {
		t.Fatal("second vote accepted")
	}
	if !errors.Is(s.Voter.LastError(), domain.ErrAlreadyVoted) {
		t.Errorf("LastError() = %v, want %v", s.Voter.LastError(), domain.ErrAlreadyVoted)
	}

	if !s.Voter.Logout(ctx) {
		t.Fatalf("Logout() failed: %v", s.Voter.LastError())
	}
	if s.State() != StateUnauthenticated {
		t.Errorf("after logout state = %s", s.State())
	}
}

func TestReturningVoterSeesVotedState(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first := h.signIn(t, "9876543210")
	first.Voter.VerifyIdentity(ctx, "ABC1234567", "voterId")
	if !first.Voter.CastVote(ctx, config.CandidateID(testutil.NewDelhi, testutil.ArjunMalhotra)) {
		t.Fatalf("CastVote() failed: %v", first.Voter.LastError())
	}

	// Same phone on another browser
	second := h.signIn(t, "9876543210")
	if second.State() != StateVoted {
		t.Errorf("returning voter state = %s, want voted", second.State())
	}
	if second.Voter.CastVote(ctx, config.CandidateID(testutil.NewDelhi, testutil.MeeraKapoor)) {
		t.Error("returning voter voted twice")
	}
}

func TestInvalidPhoneNotifies(t *testing.T) {
	h := newHarness(t)
	s := h.open(t)

	if s.Voter.RequestPhoneOTP(context.Background(), "12345") {
		t.Fatal("RequestPhoneOTP() accepted an invalid number")
	}
	if h.inbox.count() != 0 {
		t.Error("code sent for an invalid number")
	}
	if !errors.Is(s.Voter.LastError(), domain.ErrInvalidPhone) {
		t.Errorf("LastError() = %v", s.Voter.LastError())
	}
	notes := s.Notifications.Drain()
	if len(notes) != 1 || notes[0].Level != services.LevelError || notes[0].Message != "phone number must be 10 digits" {
		t.Errorf("notifications = %+v", notes)
	}
}

func TestVerifyWithoutRequest(t *testing.T) {
	h := newHarness(t)
	s := h.open(t)

	if s.Voter.VerifyOTP(context.Background(), "123456") {
		t.Fatal("VerifyOTP() without a pending login succeeded")
	}
	if !errors.Is(s.Voter.LastError(), domain.ErrNoPendingLogin) {
		t.Errorf("LastError() = %v", s.Voter.LastError())
	}
}

func TestResendCooldown(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	s := h.open(t)
	clock := &manualClock{t: time.Now()}
	s.Voter.now = clock.now

	if s.Voter.ResendOTP(ctx) {
		t.Fatal("ResendOTP() without a pending login succeeded")
	}

	if !s.Voter.RequestEmailOTP(ctx, "voter@example.com") {
		t.Fatal(s.Voter.LastError())
	}
	if wait := s.Voter.ResendIn(); wait != 30*time.Second {
		t.Errorf("ResendIn() = %v, want 30s", wait)
	}

	clock.advance(10 * time.Second)
	if s.Voter.ResendOTP(ctx) {
		t.Fatal("resend allowed during cooldown")
	}
	if !errors.Is(s.Voter.LastError(), domain.ErrResendCooldown) {
		t.Errorf("LastError() = %v", s.Voter.LastError())
	}

	clock.advance(21 * time.Second)
	if !s.Voter.ResendOTP(ctx) {
		t.Fatalf("resend after cooldown failed: %v", s.Voter.LastError())
	}
	if h.inbox.count() != 2 {
		t.Errorf("codes sent = %d, want 2", h.inbox.count())
	}
	if s.Voter.ResendIn() != 30*time.Second {
		t.Error("resend should restart the cooldown")
	}

	if !s.Voter.VerifyOTP(ctx, h.inbox.code("voter@example.com")) {
		t.Fatalf("VerifyOTP() with resent code failed: %v", s.Voter.LastError())
	}
	if s.Voter.ResendIn() != 0 {
		t.Error("sign-in should reset the cooldown")
	}
}

func TestTeardownDiscardsResults(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	s := h.signIn(t, "9876543210")

	h.registry.Close(s.ID)
	if _, ok := h.registry.Get(s.ID); ok {
		t.Error("closed session still registered")
	}
	if _, ok := s.Voter.Dashboard(ctx); ok {
		t.Error("Dashboard() after teardown returned a view")
	}
	if s.Voter.RequestPhoneOTP(ctx, "9876543210") {
		t.Error("RequestPhoneOTP() after teardown succeeded")
	}
	if !errors.Is(s.Voter.LastError(), domain.ErrSessionClosed) {
		t.Errorf("LastError() = %v", s.Voter.LastError())
	}
}

func TestVoterWithoutConstituency(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	s := h.signIn(t, "9876543210")
	s.Voter.VerifyIdentity(ctx, "123456789012", "aadhaar")

	voter, _ := s.Context.Voter()
	if err := h.db.Exec("UPDATE profiles SET constituency_id = NULL WHERE id = ?", voter.ID).Error; err != nil {
		t.Fatal(err)
	}

	view, ok := s.Voter.Dashboard(ctx)
	if !ok {
		t.Fatalf("Dashboard() failed: %v", s.Voter.LastError())
	}
	if view.Constituency != nil || len(view.Candidates) != 0 {
		t.Errorf("dashboard without constituency = %+v", view)
	}
	if s.Voter.CastVote(ctx, config.CandidateID(testutil.NewDelhi, testutil.MeeraKapoor)) {
		t.Fatal("vote accepted without a constituency")
	}
	if !errors.Is(s.Voter.LastError(), domain.ErrNoConstituency) {
		t.Errorf("LastError() = %v", s.Voter.LastError())
	}
}

func TestAdminCannotUseVoterFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	s := h.open(t)
	if !s.Admin.Login(ctx, "admin", "password") {
		t.Fatal(s.Admin.LastError())
	}

	if _, ok := s.Voter.Dashboard(ctx); ok {
		t.Error("admin loaded a voter dashboard")
	}
	if !errors.Is(s.Voter.LastError(), domain.ErrNotVoter) {
		t.Errorf("LastError() = %v", s.Voter.LastError())
	}
}

func TestDashboardPicksUpIdentityVerifiedElsewhere(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	s := h.signIn(t, "9876543210")

	voter, ok := s.Context.Voter()
	if !ok || voter.IsIdentityVerified() {
		t.Fatalf("voter = %+v, want unverified", voter)
	}

	// Another browser of the same voter stores a Voter ID
	if err := h.db.Exec("UPDATE profiles SET voter_id = ? WHERE id = ?", "ABC1234567", voter.ID).Error; err != nil {
		t.Fatal(err)
	}

	view, ok := s.Voter.Dashboard(ctx)
	if !ok {
		t.Fatalf("Dashboard() failed: %v", s.Voter.LastError())
	}
	if !view.IdentityVerified {
		t.Fatal("dashboard did not pick up the stored voter id")
	}
	if s.State() != StateVoterVerified {
		t.Errorf("state = %s, want %s", s.State(), StateVoterVerified)
	}
	if !s.Voter.CastVote(ctx, config.CandidateID(testutil.NewDelhi, testutil.MeeraKapoor)) {
		t.Errorf("CastVote() failed: %v", s.Voter.LastError())
	}
}
