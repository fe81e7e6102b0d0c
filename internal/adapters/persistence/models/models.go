package models

import (
	"time"

	"votedesk/internal/core/domain"

	"gorm.io/gorm"
)

// ============================================================
// Election tables
// ============================================================

// Constituency represents constituencies table
type Constituency struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Name        string    `gorm:"uniqueIndex;size:100;not null" json:"name"`
	State       string    `gorm:"size:100;not null" json:"state"`
	TotalVoters int       `gorm:"not null;default:0" json:"total_voters"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Computed by queries that join votes; not a column.
	VotesCast int64 `gorm:"->;-:migration" json:"votes_cast"`
}

func (Constituency) TableName() string {
	return "constituencies"
}

func (c *Constituency) ToDomain() domain.Constituency {
	return domain.Constituency{
		ID:          c.ID,
		Name:        c.Name,
		State:       c.State,
		TotalVoters: c.TotalVoters,
		VotesCast:   c.VotesCast,
	}
}

// Candidate represents candidates table
type Candidate struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	ConstituencyID string    `gorm:"size:36;not null;index" json:"constituency_id"`
	Name           string    `gorm:"size:100;not null" json:"name"`
	Party          string    `gorm:"size:100;not null" json:"party"`
	PartySymbol    string    `gorm:"size:100" json:"party_symbol"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`

	Constituency *Constituency `gorm:"foreignKey:ConstituencyID" json:"-"`
}

func (Candidate) TableName() string {
	return "candidates"
}

func (c *Candidate) ToDomain() domain.Candidate {
	return domain.Candidate{
		ID:             c.ID,
		ConstituencyID: c.ConstituencyID,
		Name:           c.Name,
		Party:          c.Party,
		PartySymbol:    c.PartySymbol,
	}
}

// Profile represents profiles table. Its ID is the identity provider's user id.
type Profile struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	Name           string    `gorm:"size:100" json:"name"`
	Phone          string    `gorm:"size:20;index" json:"phone"`
	Email          string    `gorm:"size:255;index" json:"email"`
	AadhaarNumber  *string   `gorm:"size:12" json:"aadhaar_number"`
	VoterID        *string   `gorm:"size:10" json:"voter_id"`
	ConstituencyID *string   `gorm:"size:36;index" json:"constituency_id"`
	HasVoted       bool      `gorm:"not null;default:false" json:"has_voted"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Constituency *Constituency `gorm:"foreignKey:ConstituencyID" json:"constituency,omitempty"`
}

func (Profile) TableName() string {
	return "profiles"
}

func (p *Profile) ToDomain() *domain.Profile {
	out := &domain.Profile{
		ID:            p.ID,
		Name:          p.Name,
		Phone:         p.Phone,
		Email:         p.Email,
		AadhaarNumber: p.AadhaarNumber,
		VoterID:       p.VoterID,
		HasVoted:      p.HasVoted,
	}
	if p.Constituency != nil {
		c := p.Constituency.ToDomain()
		out.Constituency = &c
	}
	return out
}

// Vote represents votes table. VoterID is UNIQUE: the index, not the
// application, guarantees one vote per voter.
type Vote struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	VoterID        string    `gorm:"uniqueIndex:idx_votes_voter_id;size:36;not null" json:"voter_id"`
	CandidateID    string    `gorm:"size:36;not null;index" json:"candidate_id"`
	ConstituencyID string    `gorm:"size:36;not null;index" json:"constituency_id"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`

	Voter        *Profile      `gorm:"foreignKey:VoterID" json:"-"`
	Candidate    *Candidate    `gorm:"foreignKey:CandidateID" json:"-"`
	Constituency *Constituency `gorm:"foreignKey:ConstituencyID" json:"-"`
}

func (Vote) TableName() string {
	return "votes"
}

func (v *Vote) ToDomain() domain.Vote {
	return domain.Vote{
		ID:             v.ID,
		VoterID:        v.VoterID,
		CandidateID:    v.CandidateID,
		ConstituencyID: v.ConstituencyID,
		CreatedAt:      v.CreatedAt,
	}
}

// ============================================================
// Identity provider tables
// ============================================================

// Identity represents auth_identities table (one row per phone or email that
// completed an OTP sign-in)
type Identity struct {
	ID           string     `gorm:"primaryKey;size:36" json:"id"`
	Phone        *string    `gorm:"uniqueIndex;size:20" json:"phone"`
	Email        *string    `gorm:"uniqueIndex;size:255" json:"email"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	LastSignInAt *time.Time `json:"last_sign_in_at"`
}

func (Identity) TableName() string {
	return "auth_identities"
}

// RefreshToken represents refresh_tokens table
type RefreshToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    string     `gorm:"size:36;index;not null" json:"user_id"`
	TokenHash string     `gorm:"size:255;not null;index" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	RevokedAt *time.Time `gorm:"index" json:"revoked_at"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

func (rt *RefreshToken) IsRevoked() bool {
	return rt.RevokedAt != nil
}

func (rt *RefreshToken) IsExpired() bool {
	return time.Now().After(rt.ExpiresAt)
}

// AutoMigrate creates or updates all tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Constituency{},
		&Candidate{},
		&Profile{},
		&Vote{},
		&Identity{},
		&RefreshToken{},
	)
}
