package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/homefix-api/internal/models"
)

// ServiceRequestRepository persists service requests and the quotes answering them.
type ServiceRequestRepository interface {
	Create(ctx context.Context, request *models.ServiceRequest) error
	Get(ctx context.Context, id uint) (models.ServiceRequest, error)
	UpdateStatus(ctx context.Context, id uint, status string) error
	CreateQuote(ctx context.Context, quote *models.Quote) error
	ListQuotes(ctx context.Context, requestID uint) ([]models.Quote, error)
}

type serviceRequestRepository struct {
	db *gorm.DB
}

// NewServiceRequestRepository constructs a service request repository backed by GORM.
func NewServiceRequestRepository(db *gorm.DB) ServiceRequestRepository {
	return &serviceRequestRepository{db: db}
}

func (r *serviceRequestRepository) Create(ctx context.Context, request *models.ServiceRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *serviceRequestRepository) Get(ctx context.Context, id uint) (models.ServiceRequest, error) {
	var request models.ServiceRequest
	err := r.db.WithContext(ctx).
		Preload("Quotes", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&request, id).Error
	if err != nil {
		return models.ServiceRequest{}, err
	}
	return request, nil
}

func (r *serviceRequestRepository) UpdateStatus(ctx context.Context, id uint, status string) error {
	return r.db.WithContext(ctx).Model(&models.ServiceRequest{}).Where("id = ?", id).Update("status", status).Error
}

func (r *serviceRequestRepository) CreateQuote(ctx context.Context, quote *models.Quote) error {
	return r.db.WithContext(ctx).Create(quote).Error
}

func (r *serviceRequestRepository) ListQuotes(ctx context.Context, requestID uint) ([]models.Quote, error) {
	var quotes []models.Quote
	err := r.db.WithContext(ctx).
		Where("service_request_id = ?", requestID).
		Order("amount ASC").
		Order("created_at ASC").
		Find(&quotes).Error
	if err != nil {
		return nil, err
	}
	return quotes, nil
}
