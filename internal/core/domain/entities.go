package domain

import "time"

// Role is the role marker carried by a signed-in user record.
type Role string

const (
	RoleNone  Role = ""
	RoleVoter Role = "voter"
	RoleAdmin Role = "admin"
)

// User is the signed-in principal: either *Voter or *Administrator.
// The variant is sealed; only types in this package implement it.
type User interface {
	UserID() string
	DisplayName() string
	roleMarker() Role
}

// RoleOf classifies a user record. A record is an administrator iff it
// carries the "admin" role marker; any other non-nil record is a voter.
func RoleOf(u User) Role {
	if u == nil {
		return RoleNone
	}
	if u.roleMarker() == RoleAdmin {
		return RoleAdmin
	}
	return RoleVoter
}

// AsVoter returns the voter variant of u, if any.
func AsVoter(u User) (*Voter, bool) {
	if RoleOf(u) != RoleVoter {
		return nil, false
	}
	v, ok := u.(*Voter)
	return v, ok && v != nil
}

// AsAdministrator returns the administrator variant of u, if any.
func AsAdministrator(u User) (*Administrator, bool) {
	if RoleOf(u) != RoleAdmin {
		return nil, false
	}
	a, ok := u.(*Administrator)
	return a, ok && a != nil
}

// Voter is an end user entitled to one vote in their constituency.
type Voter struct {
	ID             string  `json:"id"`
	Phone          string  `json:"phone"`
	Email          string  `json:"email,omitempty"`
	Name           string  `json:"name"`
	AadhaarNumber  *string `json:"aadhaar_number,omitempty"`
	VoterID        *string `json:"voter_id,omitempty"`
	Constituency   string  `json:"constituency"`
	ConstituencyID string  `json:"constituency_id,omitempty"`
	HasVoted       bool    `json:"has_voted"`
}

func (v *Voter) UserID() string      { return v.ID }
func (v *Voter) DisplayName() string { return v.Name }
func (v *Voter) roleMarker() Role    { return RoleVoter }

// IsIdentityVerified reports whether an Aadhaar number or Voter ID is on file.
func (v *Voter) IsIdentityVerified() bool {
	return (v.AadhaarNumber != nil && *v.AadhaarNumber != "") ||
		(v.VoterID != nil && *v.VoterID != "")
}

// Clone returns a deep copy so callers never share the session's record.
func (v *Voter) Clone() *Voter {
	if v == nil {
		return nil
	}
	c := *v
	if v.AadhaarNumber != nil {
		s := *v.AadhaarNumber
		c.AadhaarNumber = &s
	}
	if v.VoterID != nil {
		s := *v.VoterID
		c.VoterID = &s
	}
	return &c
}

// Administrator is an election officer. It is built in memory by the
// administrator login stub and never persisted.
type Administrator struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Role     Role   `json:"role"`
}

func (a *Administrator) UserID() string      { return a.ID }
func (a *Administrator) DisplayName() string { return a.Name }
func (a *Administrator) roleMarker() Role    { return a.Role }

// Constituency is an electoral district.
type Constituency struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	State       string `json:"state"`
	TotalVoters int    `json:"total_voters"`
	VotesCast   int64  `json:"votes_cast"`
}

// Turnout returns votes cast as a percentage of registered voters.
func (c Constituency) Turnout() float64 {
	if c.TotalVoters <= 0 {
		return 0
	}
	return float64(c.VotesCast) * 100 / float64(c.TotalVoters)
}

// Candidate stands for election in one constituency.
type Candidate struct {
	ID             string `json:"id"`
	ConstituencyID string `json:"constituency_id"`
	Name           string `json:"name"`
	Party          string `json:"party"`
	PartySymbol    string `json:"party_symbol"`
}

// Vote is written once per voter.
type Vote struct {
	ID             string    `json:"id"`
	VoterID        string    `json:"voter_id"`
	CandidateID    string    `json:"candidate_id"`
	ConstituencyID string    `json:"constituency_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// Profile is the stored voter record, optionally joined with its constituency.
type Profile struct {
	ID            string
	Name          string
	Phone         string
	Email         string
	AadhaarNumber *string
	VoterID       *string
	HasVoted      bool
	Constituency  *Constituency
}

// ProfileUpdate lists the profile fields a caller may change. Nil fields are left untouched.
type ProfileUpdate struct {
	Name           *string
	AadhaarNumber  *string
	VoterID        *string
	ConstituencyID *string
	HasVoted       *bool
}

// CandidateTally is one row of a constituency result.
type CandidateTally struct {
	Candidate Candidate `json:"candidate"`
	Votes     int64     `json:"votes"`
}

// VoterFromProfile hydrates a Voter from a stored profile. A profile with no
// constituency yields an empty constituency name.
func VoterFromProfile(p *Profile) *Voter {
	if p == nil {
		return nil
	}
	v := &Voter{
		ID:       p.ID,
		Phone:    p.Phone,
		Email:    p.Email,
		Name:     p.Name,
		HasVoted: p.HasVoted,
	}
	if p.AadhaarNumber != nil {
		s := *p.AadhaarNumber
		v.AadhaarNumber = &s
	}
	if p.VoterID != nil {
		s := *p.VoterID
		v.VoterID = &s
	}
	if p.Constituency != nil {
		v.Constituency = p.Constituency.Name
		v.ConstituencyID = p.Constituency.ID
	}
	return v
}
