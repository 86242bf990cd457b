package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/homefix-api/internal/models"
)

// CatalogRepository exposes categories and their services.
type CatalogRepository interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (models.Category, error)
	ServicesByIDs(ctx context.Context, ids []uint) ([]models.Service, error)
	UpsertCategory(ctx context.Context, category *models.Category) error
}

type catalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository constructs a catalog repository backed by GORM.
func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := r.db.WithContext(ctx).
		Preload("Services", orderServices).
		Order("position ASC").
		Order("name ASC").
		Find(&categories).Error
	if err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *catalogRepository) GetCategoryBySlug(ctx context.Context, slug string) (models.Category, error) {
	var category models.Category
	err := r.db.WithContext(ctx).
		Preload("Services", orderServices).
		Where("slug = ?", slug).
		First(&category).Error
	if err != nil {
		return models.Category{}, err
	}
	return category, nil
}

func (r *catalogRepository) ServicesByIDs(ctx context.Context, ids []uint) ([]models.Service, error) {
	if len(ids) == 0 {
		return []models.Service{}, nil
	}

	var services []models.Service
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&services).Error; err != nil {
		return nil, err
	}
	return services, nil
}

// UpsertCategory writes the category keyed by slug, then its services.
func (r *catalogRepository) UpsertCategory(ctx context.Context, category *models.Category) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		services := category.Services
		category.Services = nil

		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slug"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "description", "position", "updated_at"}),
		}).Create(category).Error
		if err != nil {
			return err
		}

		if category.ID == 0 {
			if err := tx.Where("slug = ?", category.Slug).First(category).Error; err != nil {
				return err
			}
		}

		for i := range services {
			services[i].CategoryID = category.ID
			var existing models.Service
			err := tx.Where("category_id = ? AND slug = ?", category.ID, services[i].Slug).First(&existing).Error
			switch {
			case err == nil:
				services[i].ID = existing.ID
				if err := tx.Model(&existing).Update("name", services[i].Name).Error; err != nil {
					return err
				}
			case errors.Is(err, gorm.ErrRecordNotFound):
				if err := tx.Create(&services[i]).Error; err != nil {
					return err
				}
			default:
				return err
			}
		}

		category.Services = services
		return nil
	})
}

func orderServices(db *gorm.DB) *gorm.DB {
	return db.Order("name ASC")
}
