package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the session and record layers wraps
// exactly one of these so callers can classify it with errors.Is.
var (
	ErrValidation = errors.New("validation error")
	ErrProvider   = errors.New("identity provider error")
	ErrStorage    = errors.New("storage error")
	ErrState      = errors.New("invalid state")
)

// Validation errors (raised before any network call)
var (
	ErrInvalidPhone   = fmt.Errorf("%w: phone number must be 10 digits", ErrValidation)
	ErrInvalidEmail   = fmt.Errorf("%w: email address must contain @", ErrValidation)
	ErrInvalidAadhaar = fmt.Errorf("%w: aadhaar number must be 12 digits", ErrValidation)
	ErrInvalidVoterID = fmt.Errorf("%w: voter id must be 3 letters followed by 7 digits", ErrValidation)
	ErrInvalidIDType  = fmt.Errorf("%w: id type must be aadhaar or voterId", ErrValidation)
	ErrEmptyOTP       = fmt.Errorf("%w: verification code is required", ErrValidation)
	ErrEmptyCandidate = fmt.Errorf("%w: candidate is required", ErrValidation)
)

// State errors (operation invoked without its precondition)
var (
	ErrNoPendingLogin   = fmt.Errorf("%w: no pending phone or email, request a code first", ErrState)
	ErrNotAuthenticated = fmt.Errorf("%w: not signed in", ErrState)
	ErrNotVoter         = fmt.Errorf("%w: signed-in user is not a voter", ErrState)
	ErrNotAdmin         = fmt.Errorf("%w: signed-in user is not an administrator", ErrState)
	ErrIDNotVerified    = fmt.Errorf("%w: identity not verified", ErrState)
	ErrSessionClosed    = fmt.Errorf("%w: session closed", ErrState)
	ErrResendCooldown   = fmt.Errorf("%w: please wait before requesting another code", ErrState)
	ErrNoConstituency   = fmt.Errorf("%w: no constituency assigned to this voter", ErrState)
)

// Provider errors
var (
	ErrInvalidOTP         = fmt.Errorf("%w: incorrect verification code", ErrProvider)
	ErrOTPExpired         = fmt.Errorf("%w: verification code expired", ErrProvider)
	ErrOTPNotFound        = fmt.Errorf("%w: no verification code issued", ErrProvider)
	ErrOTPAttempts        = fmt.Errorf("%w: too many incorrect attempts", ErrProvider)
	ErrOTPThrottled       = fmt.Errorf("%w: code requested too recently", ErrProvider)
	ErrOTPDelivery        = fmt.Errorf("%w: could not deliver verification code", ErrProvider)
	ErrInvalidToken       = fmt.Errorf("%w: invalid session token", ErrProvider)
	ErrTokenExpired       = fmt.Errorf("%w: session token expired", ErrProvider)
	ErrTokenRevoked       = fmt.Errorf("%w: session token revoked", ErrProvider)
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrProvider)
)

// Storage errors
var (
	ErrNotFound          = fmt.Errorf("%w: resource not found", ErrStorage)
	ErrAlreadyVoted      = fmt.Errorf("%w: vote already cast for this voter", ErrStorage)
	ErrCandidateMismatch = fmt.Errorf("%w: candidate does not stand in this constituency", ErrStorage)
)

// Storage wraps an underlying store failure as a StorageError.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStorage) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

// Provider wraps an underlying identity-provider failure as a ProviderError.
func Provider(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrProvider) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrProvider, op, err)
}

// KindOf returns the taxonomy sentinel err belongs to, or nil.
func KindOf(err error) error {
	for _, kind := range []error{ErrValidation, ErrState, ErrProvider, ErrStorage} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
