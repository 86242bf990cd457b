package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/homefix-api/internal/models"
)

func TestServiceRequestRepositoryQuotesOrderedByAmount(t *testing.T) {
	db := setupTestDB(t, &models.ServiceRequest{}, &models.Quote{})
	repo := NewServiceRequestRepository(db)
	ctx := context.Background()

	request := &models.ServiceRequest{
		CustomerID:  "cust-1",
		CategoryID:  1,
		Description: "Fix a leaking tap",
		Answers:     map[string]interface{}{"urgency": "this week"},
		Status:      models.ServiceRequestOpen,
	}
	require.NoError(t, repo.Create(ctx, request))

	require.NoError(t, repo.CreateQuote(ctx, &models.Quote{ServiceRequestID: request.ID, ProfessionalID: "pro-2", Amount: 120, Currency: "EUR", Status: models.QuoteStatusPending}))
	require.NoError(t, repo.CreateQuote(ctx, &models.Quote{ServiceRequestID: request.ID, ProfessionalID: "pro-1", Amount: 80, Currency: "EUR", Status: models.QuoteStatusPending}))
	require.NoError(t, repo.UpdateStatus(ctx, request.ID, models.ServiceRequestQuoted))

	quotes, err := repo.ListQuotes(ctx, request.ID)
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	require.Equal(t, "pro-1", quotes[0].ProfessionalID)

	stored, err := repo.Get(ctx, request.ID)
	require.NoError(t, err)
	require.Equal(t, models.ServiceRequestQuoted, stored.Status)
	require.Equal(t, "this week", stored.Answers["urgency"])
	require.Len(t, stored.Quotes, 2)
}
