package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/homefix-api/internal/models"
	"github.com/noah-isme/homefix-api/internal/repository"
)

func seedCatalog(t *testing.T, svc CatalogService) {
	t.Helper()
	_, err := svc.Seed(context.Background(), []models.Category{
		{Slug: "diy", Name: "DIY", Position: 1, Services: []models.Service{{Slug: "shelves", Name: "Shelves"}, {Slug: "painting", Name: "Painting"}}},
		{Slug: "cleaning", Name: "Cleaning", Position: 2, Services: []models.Service{{Slug: "windows", Name: "Windows"}}},
		{Slug: "childcare", Name: "Childcare", Position: 3},
	})
	require.NoError(t, err)
}

func TestCatalogServiceCachesCategoryList(t *testing.T) {
	db := setupServiceTestDB(t)
	cache := setupTestRedis(t)
	svc := NewCatalogService(repository.NewCatalogRepository(db), cache, 0, testLogger())
	seedCatalog(t, svc)
	ctx := context.Background()

	categories, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 3)
	require.Equal(t, "diy", categories[0].Slug)
	require.Len(t, categories[0].Services, 2)
	require.Empty(t, categories[2].Services)

	exists, err := cache.Exists(ctx, catalogCacheKey).Result()
	require.NoError(t, err)
	require.Equal(t, int64(1), exists)

	// Rows written behind the service stay invisible until the cache is dropped.
	require.NoError(t, db.Create(&models.Category{Slug: "garden", Name: "Garden", Position: 4}).Error)
	cached, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cached, 3)

	_, err = svc.Seed(ctx, nil)
	require.NoError(t, err)
	fresh, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, fresh, 4)
}

func TestCatalogServiceGetCategory(t *testing.T) {
	db := setupServiceTestDB(t)
	svc := NewCatalogService(repository.NewCatalogRepository(db), nil, 0, testLogger())
	seedCatalog(t, svc)

	category, err := svc.GetCategory(context.Background(), " DIY ")
	require.NoError(t, err)
	require.Equal(t, "DIY", category.Name)

	_, err = svc.GetCategory(context.Background(), "plumbing")
	require.ErrorIs(t, err, ErrCategoryNotFound)
}
