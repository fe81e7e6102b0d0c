package repositories

import (
	"context"
	"time"

	"votedesk/internal/adapters/persistence/models"
)

// ConstituencyRepository defines constituency repository interface
// Read-only from the application's point of view
type ConstituencyRepository interface {
	List(ctx context.Context) ([]*models.Constituency, error)
	ListWithTurnout(ctx context.Context) ([]*models.Constituency, error)
	GetByID(ctx context.Context, id string) (*models.Constituency, error)
	GetByName(ctx context.Context, name string) (*models.Constituency, error)
	Upsert(ctx context.Context, constituency *models.Constituency) error
}

// CandidateRepository defines candidate repository interface
type CandidateRepository interface {
	ListByConstituency(ctx context.Context, constituencyID string) ([]*models.Candidate, error)
	GetByID(ctx context.Context, id string) (*models.Candidate, error)
	Upsert(ctx context.Context, candidate *models.Candidate) error
}

// ProfileRepository defines profile repository interface
type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	GetWithConstituency(ctx context.Context, id string) (*models.Profile, error)
	CreateIfAbsent(ctx context.Context, profile *models.Profile) (*models.Profile, error)
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	ListVotedFlagMismatches(ctx context.Context, limit int) ([]string, error)
}

// VoteRepository defines vote repository interface
type VoteRepository interface {
	ExistsByVoterID(ctx context.Context, voterID string) (bool, error)
	CastAndMarkVoted(ctx context.Context, vote *models.Vote) error
	TallyByConstituency(ctx context.Context, constituencyID string) ([]*CandidateTally, error)
}

// IdentityRepository defines identity repository interface (identity provider)
type IdentityRepository interface {
	GetByID(ctx context.Context, id string) (*models.Identity, error)
	FindOrCreateByPhone(ctx context.Context, phone string) (*models.Identity, error)
	FindOrCreateByEmail(ctx context.Context, email string) (*models.Identity, error)
	TouchSignIn(ctx context.Context, id string, at time.Time) error
}

// RefreshTokenRepository defines refresh token repository interface
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, id uint) error
	RevokeByTokenHash(ctx context.Context, tokenHash string) error
	RevokeAllByUserID(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// CandidateTally is one aggregated row of a constituency result
type CandidateTally struct {
	CandidateID    string `gorm:"column:candidate_id"`
	ConstituencyID string `gorm:"column:constituency_id"`
	Name           string `gorm:"column:name"`
	Party          string `gorm:"column:party"`
	PartySymbol    string `gorm:"column:party_symbol"`
	Votes          int64  `gorm:"column:vote_count"`
}
