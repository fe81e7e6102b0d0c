package flow

import (
	"errors"
	"strings"
	"sync"

	"votedesk/internal/core/domain"
	"votedesk/internal/core/services"
	"votedesk/internal/pkg/logger"

	"go.uber.org/zap"
)

// State is where a browser session stands in the voting journey
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateOTPRequested    State = "otp_requested"
	StateVoterUnverified State = "voter_unverified"
	StateVoterVerified   State = "voter_verified"
	StateVoted           State = "voted"
	StateNotVoted        State = "not_voted"
	StateAdmin           State = "admin"
)

// StateOf derives the session state from the signed-in user and pending login
func StateOf(sc *services.SessionContext) State {
	return stateOf(sc.User(), sc.HasPending())
}

func stateOf(user domain.User, pending bool) State {
	switch domain.RoleOf(user) {
	case domain.RoleAdmin:
		return StateAdmin
	case domain.RoleVoter:
		voter, _ := domain.AsVoter(user)
		switch {
		case !voter.IsIdentityVerified():
			return StateVoterUnverified
		case voter.HasVoted:
			return StateVoted
		default:
			return StateVoterVerified
		}
	}
	if pending {
		return StateOTPRequested
	}
	return StateUnauthenticated
}

// RedirectFor returns the page a session in state s belongs on
func RedirectFor(s State) string {
	switch s {
	case StateOTPRequested:
		return "/login/otp"
	case StateVoterUnverified:
		return "/verify"
	case StateVoterVerified, StateVoted, StateNotVoted:
		return "/dashboard"
	case StateAdmin:
		return "/admin"
	default:
		return "/login"
	}
}

// outcome remembers the error behind the last failed operation so the
// transport can pick a status code
type outcome struct {
	sessionID string
	notifier  services.Notifier

	errMu sync.Mutex
	err   error
}

func (o *outcome) begin() {
	o.errMu.Lock()
	o.err = nil
	o.errMu.Unlock()
}

// fail logs err, turns it into a user-facing notification and records it
func (o *outcome) fail(title string, err error) {
	report(o.notifier, o.sessionID, title, err)
	o.errMu.Lock()
	o.err = err
	o.errMu.Unlock()
}

// LastError returns the error behind the last failed operation. Failures
// reported by the record layer leave it nil.
func (o *outcome) LastError() error {
	o.errMu.Lock()
	defer o.errMu.Unlock()
	return o.err
}

// report logs err and turns it into a user-facing notification
func report(n services.Notifier, sessionID, title string, err error) {
	fields := []zap.Field{zap.String("session_id", sessionID), zap.Error(err)}
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrState):
		logger.Debug(title, fields...)
	case errors.Is(err, domain.ErrProvider):
		logger.Warn(title, fields...)
	default:
		logger.Error(title, fields...)
	}
	n.Notify(services.LevelError, title, message(err))
}

func message(err error) string {
	msg := err.Error()
	if kind := domain.KindOf(err); kind != nil {
		msg = strings.TrimPrefix(msg, kind.Error()+": ")
	}
	return msg
}
