package dto

import (
	"time"

	"github.com/noah-isme/homefix-api/internal/models"
)

// ProfileUpdateRequest carries the text fields of a professional profile form.
type ProfileUpdateRequest struct {
	DisplayName string  `form:"display_name" json:"display_name" validate:"omitempty,max=255"`
	Headline    string  `form:"headline" json:"headline" validate:"omitempty,max=255"`
	Bio         string  `form:"bio" json:"bio" validate:"omitempty,max=4000"`
	City        string  `form:"city" json:"city" validate:"omitempty,max=128"`
	HourlyRate  float64 `form:"hourly_rate" json:"hourly_rate" validate:"gte=0,lte=10000"`
}

// ProfileServiceResponse is a service offered by a professional.
type ProfileServiceResponse struct {
	ServiceID  uint `json:"service_id"`
	CategoryID uint `json:"category_id"`
}

// PastWorkResponse is a portfolio entry.
type PastWorkResponse struct {
	ID        uint      `json:"id"`
	URL       string    `json:"url"`
	MimeType  string    `json:"mime_type"`
	FileName  string    `json:"file_name"`
	CreatedAt time.Time `json:"created_at"`
}

// ProfileResponse is the public professional profile.
type ProfileResponse struct {
	UserID      string                   `json:"user_id"`
	DisplayName string                   `json:"display_name"`
	Headline    string                   `json:"headline"`
	Bio         string                   `json:"bio"`
	City        string                   `json:"city"`
	HourlyRate  float64                  `json:"hourly_rate"`
	PhotoURL    string                   `json:"photo_url"`
	Services    []ProfileServiceResponse `json:"services"`
	PastWork    []PastWorkResponse       `json:"past_work"`
	UpdatedAt   time.Time                `json:"updated_at"`
}

// ProfileUpdateResponse reports the saved profile and any upload that failed.
type ProfileUpdateResponse struct {
	Profile  ProfileResponse `json:"profile"`
	Warnings []string        `json:"warnings"`
}

// NewProfileResponse combines the profile with the owner's display name.
func NewProfileResponse(profile models.ProfessionalProfile, user models.UserProfile) ProfileResponse {
	services := make([]ProfileServiceResponse, 0, len(profile.Services))
	for _, svc := range profile.Services {
		services = append(services, ProfileServiceResponse{ServiceID: svc.ServiceID, CategoryID: svc.CategoryID})
	}

	pastWork := make([]PastWorkResponse, 0, len(profile.PastWork))
	for _, item := range profile.PastWork {
		pastWork = append(pastWork, PastWorkResponse{
			ID:        item.ID,
			URL:       item.URL,
			MimeType:  item.MimeType,
			FileName:  item.FileName,
			CreatedAt: item.CreatedAt,
		})
	}

	return ProfileResponse{
		UserID:      profile.UserID,
		DisplayName: user.DisplayName,
		Headline:    profile.Headline,
		Bio:         profile.Bio,
		City:        profile.City,
		HourlyRate:  profile.HourlyRate,
		PhotoURL:    profile.PhotoURL,
		Services:    services,
		PastWork:    pastWork,
		UpdatedAt:   profile.UpdatedAt,
	}
}
