package dto

import (
	"time"

	"github.com/noah-isme/homefix-api/internal/models"
)

// ServiceRequestCreateRequest is a customer's job description.
type ServiceRequestCreateRequest struct {
	CategoryID  uint                   `json:"category_id" validate:"required"`
	ServiceID   uint                   `json:"service_id"`
	Description string                 `json:"description" validate:"required,min=3,max=4000"`
	Answers     map[string]interface{} `json:"answers"`
}

// QuoteCreateRequest is a professional's priced offer.
type QuoteCreateRequest struct {
	Amount   float64 `json:"amount" validate:"gt=0,lte=1000000"`
	Currency string  `json:"currency" validate:"omitempty,len=3,alpha"`
	Message  string  `json:"message" validate:"omitempty,max=2000"`
}

// QuoteResponse is the serialized representation of a quote.
type QuoteResponse struct {
	ID               uint      `json:"id"`
	ServiceRequestID uint      `json:"service_request_id"`
	ProfessionalID   string    `json:"professional_id"`
	Amount           float64   `json:"amount"`
	Currency         string    `json:"currency"`
	Message          string    `json:"message"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
}

// ServiceRequestResponse is the serialized representation of a service request.
type ServiceRequestResponse struct {
	ID          uint                   `json:"id"`
	CustomerID  string                 `json:"customer_id"`
	CategoryID  uint                   `json:"category_id"`
	ServiceID   uint                   `json:"service_id"`
	Description string                 `json:"description"`
	Answers     map[string]interface{} `json:"answers"`
	Status      string                 `json:"status"`
	QuoteCount  int                    `json:"quote_count"`
	CreatedAt   time.Time              `json:"created_at"`
}

// NewQuoteResponse converts a quote model into a DTO.
func NewQuoteResponse(quote models.Quote) QuoteResponse {
	return QuoteResponse{
		ID:               quote.ID,
		ServiceRequestID: quote.ServiceRequestID,
		ProfessionalID:   quote.ProfessionalID,
		Amount:           quote.Amount,
		Currency:         quote.Currency,
		Message:          quote.Message,
		Status:           quote.Status,
		CreatedAt:        quote.CreatedAt,
	}
}

// NewQuoteResponseSlice converts quote models into DTOs.
func NewQuoteResponseSlice(quotes []models.Quote) []QuoteResponse {
	out := make([]QuoteResponse, 0, len(quotes))
	for _, quote := range quotes {
		out = append(out, NewQuoteResponse(quote))
	}
	return out
}

// NewServiceRequestResponse converts a service request model into a DTO.
func NewServiceRequestResponse(request models.ServiceRequest) ServiceRequestResponse {
	answers := map[string]interface{}(request.Answers)
	if answers == nil {
		answers = map[string]interface{}{}
	}

	return ServiceRequestResponse{
		ID:          request.ID,
		CustomerID:  request.CustomerID,
		CategoryID:  request.CategoryID,
		ServiceID:   request.ServiceID,
		Description: request.Description,
		Answers:     answers,
		Status:      request.Status,
		QuoteCount:  len(request.Quotes),
		CreatedAt:   request.CreatedAt,
	}
}
