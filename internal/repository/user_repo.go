package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/homefix-api/internal/models"
)

// UserRepository reads and writes application user profiles.
type UserRepository interface {
	Get(ctx context.Context, id string) (models.UserProfile, error)
	GetMany(ctx context.Context, ids []string) ([]models.UserProfile, error)
	Upsert(ctx context.Context, user *models.UserProfile) error
	UpdateAvatar(ctx context.Context, id, avatarURL string) error
	UpdateDisplayName(ctx context.Context, id, displayName string) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository constructs a user repository backed by GORM.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Get(ctx context.Context, id string) (models.UserProfile, error) {
	var user models.UserProfile
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return models.UserProfile{}, err
	}
	return user, nil
}

func (r *userRepository) GetMany(ctx context.Context, ids []string) ([]models.UserProfile, error) {
	if len(ids) == 0 {
		return []models.UserProfile{}, nil
	}

	var users []models.UserProfile
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) Upsert(ctx context.Context, user *models.UserProfile) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"display_name", "avatar_url", "email", "role", "updated_at"}),
	}).Create(user).Error
}

func (r *userRepository) UpdateAvatar(ctx context.Context, id, avatarURL string) error {
	return r.updateColumn(ctx, id, "avatar_url", avatarURL)
}

func (r *userRepository) UpdateDisplayName(ctx context.Context, id, displayName string) error {
	return r.updateColumn(ctx, id, "display_name", displayName)
}

func (r *userRepository) updateColumn(ctx context.Context, id, column, value string) error {
	result := r.db.WithContext(ctx).Model(&models.UserProfile{}).Where("id = ?", id).Update(column, value)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
