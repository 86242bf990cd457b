package dto

import "time"

// OnboardingSelectionRequest replaces the wizard draft of a professional.
// Categories are keyed by slug; services by ID.
type OnboardingSelectionRequest struct {
	SelectedCategories         []string          `json:"selected_categories" validate:"max=50,dive,required,max=128"`
	SelectedServicesByCategory map[string][]uint `json:"selected_services_by_category" validate:"max=50"`
}

// OnboardingSelectionResponse is the stored draft plus whether "Next" is enabled.
type OnboardingSelectionResponse struct {
	SelectedCategories         []string          `json:"selected_categories"`
	SelectedServicesByCategory map[string][]uint `json:"selected_services_by_category"`
	CanProceed                 bool              `json:"can_proceed"`
	UpdatedAt                  time.Time         `json:"updated_at"`
}
