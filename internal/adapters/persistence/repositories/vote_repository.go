package repositories

import (
	"context"
	"errors"

	"votedesk/internal/adapters/persistence/models"
	"votedesk/internal/core/domain"

	"gorm.io/gorm"
)

// voteRepository implements VoteRepository interface
type voteRepository struct {
	db *gorm.DB
}

// NewVoteRepository creates a new vote repository
func NewVoteRepository(db *gorm.DB) VoteRepository {
	return &voteRepository{db: db}
}

// ExistsByVoterID checks if a vote row exists for the voter
func (r *voteRepository) ExistsByVoterID(ctx context.Context, voterID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Vote{}).Where("voter_id = ?", voterID).Count(&count).Error
	return count > 0, err
}

// CastAndMarkVoted inserts the vote and sets the voter's has_voted flag in one
// transaction. A racing second row for the same voter is rejected by the unique
// index and reported as domain.ErrAlreadyVoted.
func (r *voteRepository) CastAndMarkVoted(ctx context.Context, vote *models.Vote) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var profile models.Profile
		if err := tx.Select("id").Where("id = ?", vote.VoterID).First(&profile).Error; err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&models.Vote{}).Where("voter_id = ?", vote.VoterID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return domain.ErrAlreadyVoted
		}

		if err := translateVoteError(tx.Create(vote).Error); err != nil {
			return err
		}

		return tx.Model(&models.Profile{}).
			Where("id = ?", vote.VoterID).
			Update("has_voted", true).Error
	})
}

// TallyByConstituency counts votes per candidate, most votes first
func (r *voteRepository) TallyByConstituency(ctx context.Context, constituencyID string) ([]*CandidateTally, error) {
	var rows []*CandidateTally
	err := r.db.WithContext(ctx).
		Table("candidates").
		Select(`candidates.id AS candidate_id, candidates.constituency_id AS constituency_id,
			candidates.name AS name, candidates.party AS party, candidates.party_symbol AS party_symbol,
			COUNT(votes.id) AS vote_count`).
		Joins("LEFT JOIN votes ON votes.candidate_id = candidates.id").
		Where("candidates.constituency_id = ?", constituencyID).
		Group("candidates.id, candidates.constituency_id, candidates.name, candidates.party, candidates.party_symbol").
		Order("vote_count DESC, candidates.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func translateVoteError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrAlreadyVoted
	}
	return err
}
