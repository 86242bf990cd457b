package models

import (
	"time"

	"gorm.io/datatypes"
)

// Service request statuses.
const (
	ServiceRequestOpen   = "open"
	ServiceRequestQuoted = "quoted"
	ServiceRequestClosed = "closed"
)

// Quote statuses.
const (
	QuoteStatusPending  = "pending"
	QuoteStatusAccepted = "accepted"
	QuoteStatusDeclined = "declined"
)

// ServiceRequest is a customer's description of a job, answered with quotes.
type ServiceRequest struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	CustomerID  string            `gorm:"size:64;index;not null" json:"customer_id"`
	CategoryID  uint              `gorm:"index;not null" json:"category_id"`
	ServiceID   uint              `gorm:"index" json:"service_id"`
	Description string            `gorm:"type:text" json:"description"`
	Answers     datatypes.JSONMap `gorm:"type:json" json:"answers"`
	Status      string            `gorm:"size:32;default:open" json:"status"`
	Quotes      []Quote           `json:"quotes"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Quote is a professional's priced offer for a service request.
type Quote struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	ServiceRequestID uint      `gorm:"index;not null" json:"service_request_id"`
	ProfessionalID   string    `gorm:"size:64;index;not null" json:"professional_id"`
	Amount           float64   `gorm:"not null" json:"amount"`
	Currency         string    `gorm:"size:3;default:EUR" json:"currency"`
	Message          string    `gorm:"type:text" json:"message"`
	Status           string    `gorm:"size:32;default:pending" json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
