package repositories

import (
	"context"
	"errors"
	"time"

	"votedesk/internal/adapters/persistence/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// identityRepository implements IdentityRepository interface
type identityRepository struct {
	db *gorm.DB
}

// NewIdentityRepository creates a new identity repository
func NewIdentityRepository(db *gorm.DB) IdentityRepository {
	return &identityRepository{db: db}
}

// GetByID gets an identity by ID
func (r *identityRepository) GetByID(ctx context.Context, id string) (*models.Identity, error) {
	var identity models.Identity
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&identity).Error
	if err != nil {
		return nil, err
	}
	return &identity, nil
}

// FindOrCreateByPhone returns the identity for a phone, creating it on first sign-in
func (r *identityRepository) FindOrCreateByPhone(ctx context.Context, phone string) (*models.Identity, error) {
	return r.findOrCreate(ctx, "phone", phone, func(id string) *models.Identity {
		return &models.Identity{ID: id, Phone: &phone}
	})
}

// FindOrCreateByEmail returns the identity for an email, creating it on first sign-in
func (r *identityRepository) FindOrCreateByEmail(ctx context.Context, email string) (*models.Identity, error) {
	return r.findOrCreate(ctx, "email", email, func(id string) *models.Identity {
		return &models.Identity{ID: id, Email: &email}
	})
}

// TouchSignIn records the last successful sign-in time
func (r *identityRepository) TouchSignIn(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Identity{}).
		Where("id = ?", id).
		Update("last_sign_in_at", at).Error
}

func (r *identityRepository) findOrCreate(ctx context.Context, column, value string, build func(id string) *models.Identity) (*models.Identity, error) {
	var identity models.Identity
	err := r.db.WithContext(ctx).Where(column+" = ?", value).First(&identity).Error
	if err == nil {
		return &identity, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	created := build(uuid.NewString())
	if err := r.db.WithContext(ctx).Create(created).Error; err != nil {
		// Lost a race with a concurrent first sign-in; the winner's row is the identity
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if err := r.db.WithContext(ctx).Where(column+" = ?", value).First(&identity).Error; err != nil {
				return nil, err
			}
			return &identity, nil
		}
		return nil, err
	}
	return created, nil
}
