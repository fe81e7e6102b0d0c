package flow

import (
	"context"

	"votedesk/internal/core/domain"
	"votedesk/internal/core/services"
)

// AdminFlow drives the administrator pages
type AdminFlow struct {
	outcome
	sc       *services.SessionContext
	sessions *services.SessionService
	records  *services.RecordService
	notifier services.Notifier
}

// NewAdminFlow creates an administrator flow
func NewAdminFlow(sc *services.SessionContext, sessions *services.SessionService, records *services.RecordService, notifier services.Notifier) *AdminFlow {
	return &AdminFlow{
		outcome:  outcome{sessionID: sc.ID, notifier: notifier},
		sc:       sc,
		sessions: sessions,
		records:  records,
		notifier: notifier,
	}
}

// Login signs in with the administrator stub credentials
func (f *AdminFlow) Login(ctx context.Context, username, password string) bool {
	f.begin()
	if err := f.sessions.AdminLogin(ctx, f.sc, username, password); err != nil {
		f.fail("Administrator sign-in failed", err)
		return false
	}
	f.notifier.Notify(services.LevelSuccess, "Signed in", "Signed in as administrator.")
	return true
}

// ConstituencyOverview is one constituency's turnout and tally
type ConstituencyOverview struct {
	domain.Constituency
	Turnout float64                 `json:"turnout"`
	Results []domain.CandidateTally `json:"results"`
}

// Overview is the administrator dashboard
type Overview struct {
	TotalVoters    int                    `json:"total_voters"`
	TotalVotes     int64                  `json:"total_votes"`
	Turnout        float64                `json:"turnout"`
	Constituencies []ConstituencyOverview `json:"constituencies"`
}

// Overview loads turnout and per-candidate tallies for every constituency
func (f *AdminFlow) Overview(ctx context.Context) (*Overview, bool) {
	f.begin()
	if !f.authorized() {
		return nil, false
	}

	constituencies := f.records.GetTurnout(ctx)
	out := &Overview{Constituencies: make([]ConstituencyOverview, 0, len(constituencies))}
	for _, c := range constituencies {
		out.TotalVoters += c.TotalVoters
		out.TotalVotes += c.VotesCast
		out.Constituencies = append(out.Constituencies, ConstituencyOverview{
			Constituency: c,
			Turnout:      c.Turnout(),
			Results:      f.records.GetResults(ctx, c.ID),
		})
	}
	out.Turnout = domain.Constituency{TotalVoters: out.TotalVoters, VotesCast: out.TotalVotes}.Turnout()

	if !f.sc.Alive() {
		return nil, false
	}
	return out, true
}

// Results returns the tallies for one constituency
func (f *AdminFlow) Results(ctx context.Context, constituencyID string) ([]domain.CandidateTally, bool) {
	f.begin()
	if !f.authorized() {
		return nil, false
	}
	return f.records.GetResults(ctx, constituencyID), true
}

// Logout clears the administrator from the session
func (f *AdminFlow) Logout(ctx context.Context) bool {
	f.begin()
	if err := f.sessions.Logout(ctx, f.sc); err != nil {
		f.fail("Sign-out incomplete", err)
		return false
	}
	f.notifier.Notify(services.LevelInfo, "Signed out", "Administrator signed out.")
	return true
}

func (f *AdminFlow) authorized() bool {
	if domain.RoleOf(f.sc.User()) != domain.RoleAdmin {
		f.fail("Administrators only", domain.ErrNotAdmin)
		return false
	}
	return true
}
