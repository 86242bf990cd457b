package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/homefix-api/internal/dto"
	"github.com/noah-isme/homefix-api/internal/models"
	"github.com/noah-isme/homefix-api/internal/repository"
)

const defaultQuoteCurrency = "EUR"

var (
	// ErrServiceRequestNotFound indicates an unknown service request.
	ErrServiceRequestNotFound = errors.New("service request not found")
	// ErrServiceRequestClosed indicates the request no longer accepts quotes.
	ErrServiceRequestClosed = errors.New("service request is closed")
	// ErrServiceRequestForbidden indicates the caller may not read the request.
	ErrServiceRequestForbidden = errors.New("not allowed to access this service request")
	// ErrQuoteInvalid indicates a quote outside the accepted amount or currency range.
	ErrQuoteInvalid = errors.New("quote amount must be greater than 0 and at most 1000000")
)

// ServiceRequestService handles customer job requests and professional quotes.
type ServiceRequestService interface {
	Create(ctx context.Context, customerID string, req dto.ServiceRequestCreateRequest) (dto.ServiceRequestResponse, error)
	Get(ctx context.Context, id uint, viewerID, role string) (dto.ServiceRequestResponse, error)
	SubmitQuote(ctx context.Context, requestID uint, professionalID string, req dto.QuoteCreateRequest) (dto.QuoteResponse, error)
	ListQuotes(ctx context.Context, requestID uint, viewerID, role string) ([]dto.QuoteResponse, error)
}

type serviceRequestService struct {
	repo      repository.ServiceRequestRepository
	catalog   repository.CatalogRepository
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewServiceRequestService constructs the service request service.
func NewServiceRequestService(repo repository.ServiceRequestRepository, catalog repository.CatalogRepository, validate *validator.Validate, logger zerolog.Logger) ServiceRequestService {
	return &serviceRequestService{
		repo:      repo,
		catalog:   catalog,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "service_request_service").Logger(),
	}
}

func (s *serviceRequestService) Create(ctx context.Context, customerID string, req dto.ServiceRequestCreateRequest) (dto.ServiceRequestResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ServiceRequestResponse{}, err
	}

	if req.ServiceID != 0 {
		services, err := s.catalog.ServicesByIDs(ctx, []uint{req.ServiceID})
		if err != nil {
			return dto.ServiceRequestResponse{}, err
		}
		if len(services) == 0 || services[0].CategoryID != req.CategoryID {
			return dto.ServiceRequestResponse{}, ErrServiceNotInCategory
		}
	}

	model := models.ServiceRequest{
		CustomerID:  customerID,
		CategoryID:  req.CategoryID,
		ServiceID:   req.ServiceID,
		Description: plainText(s.sanitizer, req.Description),
		Answers:     req.Answers,
		Status:      models.ServiceRequestOpen,
	}
	if err := s.repo.Create(ctx, &model); err != nil {
		return dto.ServiceRequestResponse{}, err
	}

	s.logger.Info().Uint("request_id", model.ID).Str("customer_id", customerID).Msg("service request created")
	return dto.NewServiceRequestResponse(model), nil
}

func (s *serviceRequestService) Get(ctx context.Context, id uint, viewerID, role string) (dto.ServiceRequestResponse, error) {
	request, err := s.load(ctx, id)
	if err != nil {
		return dto.ServiceRequestResponse{}, err
	}
	if !canViewRequest(request, viewerID, role) {
		return dto.ServiceRequestResponse{}, ErrServiceRequestForbidden
	}
	return dto.NewServiceRequestResponse(request), nil
}

// SubmitQuote validates the amount before touching the store.
func (s *serviceRequestService) SubmitQuote(ctx context.Context, requestID uint, professionalID string, req dto.QuoteCreateRequest) (dto.QuoteResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.QuoteResponse{}, fmt.Errorf("%w: %v", ErrQuoteInvalid, err)
	}

	request, err := s.load(ctx, requestID)
	if err != nil {
		return dto.QuoteResponse{}, err
	}
	if request.Status == models.ServiceRequestClosed {
		return dto.QuoteResponse{}, ErrServiceRequestClosed
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = defaultQuoteCurrency
	}

	quote := models.Quote{
		ServiceRequestID: request.ID,
		ProfessionalID:   professionalID,
		Amount:           req.Amount,
		Currency:         currency,
		Message:          plainText(s.sanitizer, req.Message),
		Status:           models.QuoteStatusPending,
	}
	if err := s.repo.CreateQuote(ctx, &quote); err != nil {
		return dto.QuoteResponse{}, err
	}

	if request.Status == models.ServiceRequestOpen {
		if err := s.repo.UpdateStatus(ctx, request.ID, models.ServiceRequestQuoted); err != nil {
			s.logger.Warn().Err(err).Uint("request_id", request.ID).Msg("failed to mark request as quoted")
		}
	}

	return dto.NewQuoteResponse(quote), nil
}

func (s *serviceRequestService) ListQuotes(ctx context.Context, requestID uint, viewerID, role string) ([]dto.QuoteResponse, error) {
	request, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}

	quotes, err := s.repo.ListQuotes(ctx, request.ID)
	if err != nil {
		return nil, err
	}

	// Professionals only see their own offers.
	if role == models.RoleProfessional {
		own := make([]models.Quote, 0, len(quotes))
		for _, quote := range quotes {
			if quote.ProfessionalID == viewerID {
				own = append(own, quote)
			}
		}
		quotes = own
	} else if !canViewRequest(request, viewerID, role) {
		return nil, ErrServiceRequestForbidden
	}

	return dto.NewQuoteResponseSlice(quotes), nil
}

func (s *serviceRequestService) load(ctx context.Context, id uint) (models.ServiceRequest, error) {
	request, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ServiceRequest{}, ErrServiceRequestNotFound
		}
		return models.ServiceRequest{}, err
	}
	return request, nil
}

func canViewRequest(request models.ServiceRequest, viewerID, role string) bool {
	switch role {
	case models.RoleAdmin, models.RoleProfessional:
		return true
	default:
		return request.CustomerID == viewerID
	}
}
