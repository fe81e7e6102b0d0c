package repositories

import (
	"context"

	"votedesk/internal/adapters/persistence/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// candidateRepository implements CandidateRepository interface
type candidateRepository struct {
	db *gorm.DB
}

// NewCandidateRepository creates a new candidate repository
func NewCandidateRepository(db *gorm.DB) CandidateRepository {
	return &candidateRepository{db: db}
}

// ListByConstituency lists candidates standing in a constituency
func (r *candidateRepository) ListByConstituency(ctx context.Context, constituencyID string) ([]*models.Candidate, error) {
	var candidates []*models.Candidate
	err := r.db.WithContext(ctx).
		Where("constituency_id = ?", constituencyID).
		Order("name ASC").
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}
	return candidates, nil
}

// GetByID gets a candidate by ID
func (r *candidateRepository) GetByID(ctx context.Context, id string) (*models.Candidate, error) {
	var candidate models.Candidate
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&candidate).Error
	if err != nil {
		return nil, err
	}
	return &candidate, nil
}

// Upsert creates a candidate or refreshes its fields (seeding)
func (r *candidateRepository) Upsert(ctx context.Context, candidate *models.Candidate) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"constituency_id", "name", "party", "party_symbol"}),
	}).Create(candidate).Error
}
