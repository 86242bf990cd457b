package models

import "time"

// User roles recognised by the API.
const (
	RoleCustomer     = "customer"
	RoleProfessional = "professional"
	RoleAdmin        = "admin"
)

// UserProfile is the application profile backing chat display names and avatars.
type UserProfile struct {
	ID          string    `gorm:"primaryKey;size:64" json:"id"`
	DisplayName string    `gorm:"size:255" json:"display_name"`
	AvatarURL   string    `gorm:"size:512" json:"avatar_url"`
	Email       string    `gorm:"size:255;index" json:"email"`
	Role        string    `gorm:"size:32;default:customer" json:"role"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName keeps the users table name stable.
func (UserProfile) TableName() string { return "users" }
