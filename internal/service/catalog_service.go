package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/homefix-api/internal/dto"
	"github.com/noah-isme/homefix-api/internal/models"
	"github.com/noah-isme/homefix-api/internal/observability"
	"github.com/noah-isme/homefix-api/internal/repository"
)

const catalogCacheKey = "catalog:categories"

// ErrCategoryNotFound indicates an unknown category slug.
var ErrCategoryNotFound = errors.New("category not found")

// CatalogService exposes the category and service catalog.
type CatalogService interface {
	ListCategories(ctx context.Context) ([]dto.CategoryResponse, error)
	GetCategory(ctx context.Context, slug string) (dto.CategoryResponse, error)
	Seed(ctx context.Context, categories []models.Category) (int, error)
}

type catalogService struct {
	repo   repository.CatalogRepository
	cache  *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCatalogService constructs the catalog service. cache may be nil.
func NewCatalogService(repo repository.CatalogRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) CatalogService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &catalogService{
		repo:   repo,
		cache:  cache,
		ttl:    ttl,
		logger: logger.With().Str("component", "catalog_service").Logger(),
	}
}

func (s *catalogService) ListCategories(ctx context.Context) ([]dto.CategoryResponse, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, catalogCacheKey).Result(); err == nil && cached != "" {
			var response []dto.CategoryResponse
			if err := json.Unmarshal([]byte(cached), &response); err == nil {
				observability.CacheLookups().WithLabelValues("catalog", "hit").Inc()
				return response, nil
			}
		}
	}

	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	response := dto.NewCategoryResponseSlice(categories)

	if s.cache != nil {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, catalogCacheKey, payload, s.ttl).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to cache categories")
			}
		}
	}
	observability.CacheLookups().WithLabelValues("catalog", "miss").Inc()

	return response, nil
}

func (s *catalogService) GetCategory(ctx context.Context, slug string) (dto.CategoryResponse, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return dto.CategoryResponse{}, ErrCategoryNotFound
	}

	category, err := s.repo.GetCategoryBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CategoryResponse{}, ErrCategoryNotFound
		}
		return dto.CategoryResponse{}, err
	}
	return dto.NewCategoryResponse(category), nil
}

// Seed upserts the given categories by slug and drops the cached list.
func (s *catalogService) Seed(ctx context.Context, categories []models.Category) (int, error) {
	for i := range categories {
		if err := s.repo.UpsertCategory(ctx, &categories[i]); err != nil {
			return i, err
		}
	}

	if s.cache != nil {
		if err := s.cache.Del(ctx, catalogCacheKey).Err(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drop catalog cache")
		}
	}
	return len(categories), nil
}
