package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/homefix-api/internal/models"
)

// ProfileRepository persists professional profiles, offered services and past work.
type ProfileRepository interface {
	Get(ctx context.Context, userID string) (models.ProfessionalProfile, error)
	Save(ctx context.Context, profile *models.ProfessionalProfile) error
	UpdatePhoto(ctx context.Context, userID, photoURL string) error
	ReplaceServices(ctx context.Context, userID string, services []models.ProfessionalService) error
	AddPastWork(ctx context.Context, item *models.PastWork) error
}

type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository constructs a profile repository backed by GORM.
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) Get(ctx context.Context, userID string) (models.ProfessionalProfile, error) {
	var profile models.ProfessionalProfile
	err := r.db.WithContext(ctx).
		Preload("Services", func(db *gorm.DB) *gorm.DB { return db.Order("service_id ASC") }).
		Preload("PastWork", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("user_id = ?", userID).
		First(&profile).Error
	if err != nil {
		return models.ProfessionalProfile{}, err
	}
	return profile, nil
}

// Save upserts the scalar profile fields; associations are managed separately.
func (r *profileRepository) Save(ctx context.Context, profile *models.ProfessionalProfile) error {
	return r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"headline", "bio", "city", "hourly_rate", "updated_at"}),
		}).
		Create(profile).Error
}

func (r *profileRepository) UpdatePhoto(ctx context.Context, userID, photoURL string) error {
	return r.db.WithContext(ctx).
		Model(&models.ProfessionalProfile{}).
		Where("user_id = ?", userID).
		Update("photo_url", photoURL).Error
}

func (r *profileRepository) ReplaceServices(ctx context.Context, userID string, services []models.ProfessionalService) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.ProfessionalService{}).Error; err != nil {
			return err
		}
		if len(services) == 0 {
			return nil
		}
		for i := range services {
			services[i].UserID = userID
		}
		return tx.Create(&services).Error
	})
}

func (r *profileRepository) AddPastWork(ctx context.Context, item *models.PastWork) error {
	return r.db.WithContext(ctx).Create(item).Error
}
