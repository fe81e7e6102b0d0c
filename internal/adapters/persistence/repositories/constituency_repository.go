package repositories

import (
	"context"

	"votedesk/internal/adapters/persistence/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const turnoutSelect = "constituencies.*, COUNT(votes.id) AS votes_cast"

// constituencyRepository implements ConstituencyRepository interface
type constituencyRepository struct {
	db *gorm.DB
}

// NewConstituencyRepository creates a new constituency repository
func NewConstituencyRepository(db *gorm.DB) ConstituencyRepository {
	return &constituencyRepository{db: db}
}

// List lists all constituencies ordered by name
func (r *constituencyRepository) List(ctx context.Context) ([]*models.Constituency, error) {
	var constituencies []*models.Constituency
	err := r.db.WithContext(ctx).Order("name ASC").Find(&constituencies).Error
	if err != nil {
		return nil, err
	}
	return constituencies, nil
}

// ListWithTurnout lists all constituencies with the number of votes cast in each
func (r *constituencyRepository) ListWithTurnout(ctx context.Context) ([]*models.Constituency, error) {
	var constituencies []*models.Constituency
	err := r.withTurnout(ctx).
		Order("constituencies.name ASC").
		Find(&constituencies).Error
	if err != nil {
		return nil, err
	}
	return constituencies, nil
}

// GetByID gets a constituency (with votes cast) by ID
func (r *constituencyRepository) GetByID(ctx context.Context, id string) (*models.Constituency, error) {
	var constituency models.Constituency
	err := r.withTurnout(ctx).
		Where("constituencies.id = ?", id).
		First(&constituency).Error
	if err != nil {
		return nil, err
	}
	return &constituency, nil
}

// GetByName gets a constituency (with votes cast) by its unique name
func (r *constituencyRepository) GetByName(ctx context.Context, name string) (*models.Constituency, error) {
	var constituency models.Constituency
	err := r.withTurnout(ctx).
		Where("constituencies.name = ?", name).
		First(&constituency).Error
	if err != nil {
		return nil, err
	}
	return &constituency, nil
}

// Upsert creates a constituency or refreshes its fields (seeding)
func (r *constituencyRepository) Upsert(ctx context.Context, constituency *models.Constituency) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "state", "total_voters"}),
	}).Create(constituency).Error
}

func (r *constituencyRepository) withTurnout(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.Constituency{}).
		Select(turnoutSelect).
		Joins("LEFT JOIN votes ON votes.constituency_id = constituencies.id").
		Group("constituencies.id")
}
