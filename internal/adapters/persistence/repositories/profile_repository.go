package repositories

import (
	"context"

	"votedesk/internal/adapters/persistence/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// profileRepository implements ProfileRepository interface
type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

// GetByID gets a profile by ID
func (r *profileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetWithConstituency gets a profile joined with its constituency
func (r *profileRepository) GetWithConstituency(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.WithContext(ctx).
		Preload("Constituency").
		Where("id = ?", id).
		First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// CreateIfAbsent inserts the profile unless one with the same ID exists,
// then returns the stored row joined with its constituency
func (r *profileRepository) CreateIfAbsent(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(profile).Error
	if err != nil {
		return nil, err
	}
	return r.GetWithConstituency(ctx, profile.ID)
}

// Update updates the given columns of a profile
func (r *profileRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	// Some drivers report zero rows when nothing changed; only a missing row is an error
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListVotedFlagMismatches returns profiles that have a vote row but whose has_voted flag is still false
func (r *profileRepository) ListVotedFlagMismatches(ctx context.Context, limit int) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Joins("JOIN votes ON votes.voter_id = profiles.id").
		Where("profiles.has_voted = ?", false).
		Limit(limit).
		Pluck("profiles.id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
