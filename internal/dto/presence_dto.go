package dto

import (
	"time"

	"github.com/noah-isme/homefix-api/internal/models"
)

// PresenceRecord is the public profile snapshot used for chat display.
type PresenceRecord struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url"`
	Role        string    `json:"role"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewPresenceRecord converts a user profile into a presence record.
func NewPresenceRecord(user models.UserProfile) PresenceRecord {
	return PresenceRecord{
		UserID:      user.ID,
		DisplayName: user.DisplayName,
		AvatarURL:   user.AvatarURL,
		Role:        user.Role,
		UpdatedAt:   user.UpdatedAt,
	}
}
