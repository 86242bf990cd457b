package dto

import "github.com/noah-isme/homefix-api/internal/models"

// ServiceResponse is a bookable sub-service.
type ServiceResponse struct {
	ID   uint   `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// CategoryResponse is a category with its services.
type CategoryResponse struct {
	ID          uint              `json:"id"`
	Slug        string            `json:"slug"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Services    []ServiceResponse `json:"services"`
}

// NewCategoryResponse converts a category model into a DTO.
func NewCategoryResponse(category models.Category) CategoryResponse {
	services := make([]ServiceResponse, 0, len(category.Services))
	for _, svc := range category.Services {
		services = append(services, ServiceResponse{ID: svc.ID, Slug: svc.Slug, Name: svc.Name})
	}

	return CategoryResponse{
		ID:          category.ID,
		Slug:        category.Slug,
		Name:        category.Name,
		Description: category.Description,
		Services:    services,
	}
}

// NewCategoryResponseSlice converts category models into DTOs.
func NewCategoryResponseSlice(categories []models.Category) []CategoryResponse {
	out := make([]CategoryResponse, 0, len(categories))
	for _, category := range categories {
		out = append(out, NewCategoryResponse(category))
	}
	return out
}
