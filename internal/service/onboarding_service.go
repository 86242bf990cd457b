package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/homefix-api/internal/dto"
	"github.com/noah-isme/homefix-api/internal/models"
	"github.com/noah-isme/homefix-api/internal/repository"
)

var (
	// ErrOnboardingIncomplete indicates no service has been selected yet.
	ErrOnboardingIncomplete = errors.New("select at least one service to continue")
	// ErrOnboardingUnavailable indicates the draft store is not configured.
	ErrOnboardingUnavailable = errors.New("onboarding drafts are unavailable")
	// ErrServiceNotInCategory indicates a selected service outside its category.
	ErrServiceNotInCategory = errors.New("selected service does not belong to the category")
)

// OnboardingService keeps the professional sign-up wizard selection between steps.
type OnboardingService interface {
	GetSelection(ctx context.Context, userID string) (dto.OnboardingSelectionResponse, error)
	SaveSelection(ctx context.Context, userID string, req dto.OnboardingSelectionRequest) (dto.OnboardingSelectionResponse, error)
	Complete(ctx context.Context, userID string) ([]dto.ProfileServiceResponse, error)
}

type onboardingService struct {
	drafts    *redis.Client
	ttl       time.Duration
	catalog   repository.CatalogRepository
	profiles  repository.ProfileRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewOnboardingService constructs the onboarding service.
func NewOnboardingService(drafts *redis.Client, ttl time.Duration, catalog repository.CatalogRepository, profiles repository.ProfileRepository, validate *validator.Validate, logger zerolog.Logger) OnboardingService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &onboardingService{
		drafts:    drafts,
		ttl:       ttl,
		catalog:   catalog,
		profiles:  profiles,
		validator: validate,
		logger:    logger.With().Str("component", "onboarding_service").Logger(),
	}
}

// SelectionCanProceed reports whether the wizard may advance: at least one
// service must be checked. A category with zero services never counts.
func SelectionCanProceed(servicesByCategory map[string][]uint) bool {
	for _, services := range servicesByCategory {
		if len(services) > 0 {
			return true
		}
	}
	return false
}

func onboardingDraftKey(userID string) string {
	return "onboarding:" + userID
}

func (s *onboardingService) GetSelection(ctx context.Context, userID string) (dto.OnboardingSelectionResponse, error) {
	if s.drafts == nil {
		return dto.OnboardingSelectionResponse{}, ErrOnboardingUnavailable
	}

	raw, err := s.drafts.Get(ctx, onboardingDraftKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return emptySelection(), nil
		}
		return dto.OnboardingSelectionResponse{}, err
	}

	var draft dto.OnboardingSelectionResponse
	if err := json.Unmarshal(raw, &draft); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("discarding unreadable onboarding draft")
		return emptySelection(), nil
	}
	draft.CanProceed = SelectionCanProceed(draft.SelectedServicesByCategory)
	return draft, nil
}

func (s *onboardingService) SaveSelection(ctx context.Context, userID string, req dto.OnboardingSelectionRequest) (dto.OnboardingSelectionResponse, error) {
	if s.drafts == nil {
		return dto.OnboardingSelectionResponse{}, ErrOnboardingUnavailable
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.OnboardingSelectionResponse{}, err
	}

	draft := normaliseSelection(req)
	draft.UpdatedAt = time.Now().UTC()

	payload, err := json.Marshal(draft)
	if err != nil {
		return dto.OnboardingSelectionResponse{}, err
	}
	if err := s.drafts.Set(ctx, onboardingDraftKey(userID), payload, s.ttl).Err(); err != nil {
		return dto.OnboardingSelectionResponse{}, err
	}

	return draft, nil
}

func (s *onboardingService) Complete(ctx context.Context, userID string) ([]dto.ProfileServiceResponse, error) {
	draft, err := s.GetSelection(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !draft.CanProceed {
		return nil, ErrOnboardingIncomplete
	}

	selected := make([]models.ProfessionalService, 0)
	for _, slug := range draft.SelectedCategories {
		serviceIDs := draft.SelectedServicesByCategory[slug]
		if len(serviceIDs) == 0 {
			continue
		}

		category, err := s.catalog.GetCategoryBySlug(ctx, slug)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%s: %w", slug, ErrCategoryNotFound)
			}
			return nil, err
		}

		offered := make(map[uint]struct{}, len(category.Services))
		for _, svc := range category.Services {
			offered[svc.ID] = struct{}{}
		}
		for _, id := range serviceIDs {
			if _, ok := offered[id]; !ok {
				return nil, fmt.Errorf("service %d in %s: %w", id, slug, ErrServiceNotInCategory)
			}
			selected = append(selected, models.ProfessionalService{ServiceID: id, CategoryID: category.ID})
		}
	}

	if _, err := s.profiles.Get(ctx, userID); err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		if err := s.profiles.Save(ctx, &models.ProfessionalProfile{UserID: userID}); err != nil {
			return nil, err
		}
	}

	if err := s.profiles.ReplaceServices(ctx, userID, selected); err != nil {
		return nil, err
	}

	if err := s.drafts.Del(ctx, onboardingDraftKey(userID)).Err(); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to clear onboarding draft")
	}

	out := make([]dto.ProfileServiceResponse, 0, len(selected))
	for _, svc := range selected {
		out = append(out, dto.ProfileServiceResponse{ServiceID: svc.ServiceID, CategoryID: svc.CategoryID})
	}
	return out, nil
}

func emptySelection() dto.OnboardingSelectionResponse {
	return dto.OnboardingSelectionResponse{
		SelectedCategories:         []string{},
		SelectedServicesByCategory: map[string][]uint{},
	}
}

// normaliseSelection trims and de-duplicates the request and drops services
// of categories that are no longer selected.
func normaliseSelection(req dto.OnboardingSelectionRequest) dto.OnboardingSelectionResponse {
	draft := emptySelection()

	seen := make(map[string]struct{}, len(req.SelectedCategories))
	for _, slug := range req.SelectedCategories {
		slug = strings.ToLower(strings.TrimSpace(slug))
		if slug == "" {
			continue
		}
		if _, ok := seen[slug]; ok {
			continue
		}
		seen[slug] = struct{}{}
		draft.SelectedCategories = append(draft.SelectedCategories, slug)
	}

	for rawSlug, ids := range req.SelectedServicesByCategory {
		slug := strings.ToLower(strings.TrimSpace(rawSlug))
		if _, ok := seen[slug]; !ok {
			continue
		}

		unique := make(map[uint]struct{}, len(ids))
		services := make([]uint, 0, len(ids))
		for _, id := range append(draft.SelectedServicesByCategory[slug], ids...) {
			if id == 0 {
				continue
			}
			if _, ok := unique[id]; ok {
				continue
			}
			unique[id] = struct{}{}
			services = append(services, id)
		}
		sort.Slice(services, func(i, j int) bool { return services[i] < services[j] })
		draft.SelectedServicesByCategory[slug] = services
	}

	draft.CanProceed = SelectionCanProceed(draft.SelectedServicesByCategory)
	return draft
}
