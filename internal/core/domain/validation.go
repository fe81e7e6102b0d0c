package domain

import (
	"regexp"
	"strings"
)

// IDType selects which identity document a voter verifies with.
type IDType string

const (
	IDTypeAadhaar IDType = "aadhaar"
	IDTypeVoterID IDType = "voterId"
)

var (
	phonePattern   = regexp.MustCompile(`^[0-9]{10}$`)
	aadhaarPattern = regexp.MustCompile(`^[0-9]{12}$`)
	voterIDPattern = regexp.MustCompile(`^[A-Z]{3}[0-9]{7}$`)
)

// NormalizePhone trims phone and checks it is exactly 10 digits.
func NormalizePhone(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if !phonePattern.MatchString(phone) {
		return "", ErrInvalidPhone
	}
	return phone, nil
}

// NormalizeEmail trims email and lower-cases it. Only the presence of "@"
// is checked; the provider does the real validation by delivering the code.
func NormalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if !strings.Contains(email, "@") {
		return "", ErrInvalidEmail
	}
	return strings.ToLower(email), nil
}

// NormalizeIdentityNumber validates id against the format of idType and
// returns the canonical form that is stored on the profile.
func NormalizeIdentityNumber(id string, idType IDType) (string, error) {
	id = strings.TrimSpace(id)
	switch idType {
	case IDTypeAadhaar:
		if !aadhaarPattern.MatchString(id) {
			return "", ErrInvalidAadhaar
		}
		return id, nil
	case IDTypeVoterID:
		id = strings.ToUpper(id)
		if !voterIDPattern.MatchString(id) {
			return "", ErrInvalidVoterID
		}
		return id, nil
	default:
		return "", ErrInvalidIDType
	}
}

// ParseIDType accepts the id type names used by clients.
func ParseIDType(s string) (IDType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "aadhaar":
		return IDTypeAadhaar, nil
	case "voterid", "voter_id":
		return IDTypeVoterID, nil
	}
	return "", ErrInvalidIDType
}
