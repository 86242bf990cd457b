package models

import "time"

// ProfessionalProfile holds the public marketplace profile of a professional.
type ProfessionalProfile struct {
	UserID     string                `gorm:"primaryKey;size:64" json:"user_id"`
	Headline   string                `gorm:"size:255" json:"headline"`
	Bio        string                `gorm:"type:text" json:"bio"`
	City       string                `gorm:"size:128;index" json:"city"`
	HourlyRate float64               `json:"hourly_rate"`
	PhotoURL   string                `gorm:"size:512" json:"photo_url"`
	Services   []ProfessionalService `gorm:"foreignKey:UserID;references:UserID" json:"services"`
	PastWork   []PastWork            `gorm:"foreignKey:UserID;references:UserID" json:"past_work"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

// ProfessionalService links a professional to a service they offer.
type ProfessionalService struct {
	UserID     string    `gorm:"primaryKey;size:64" json:"user_id"`
	ServiceID  uint      `gorm:"primaryKey" json:"service_id"`
	CategoryID uint      `gorm:"index" json:"category_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// PastWork is a portfolio file attached to a professional profile.
type PastWork struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"size:64;index;not null" json:"user_id"`
	URL       string    `gorm:"size:512;not null" json:"url"`
	MimeType  string    `gorm:"size:128" json:"mime_type"`
	FileName  string    `gorm:"size:255" json:"file_name"`
	CreatedAt time.Time `json:"created_at"`
}
