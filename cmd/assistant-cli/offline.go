package main

import (
	"context"
	"time"

	"realestate-assistant/internal/assistant/dispatch"
	"realestate-assistant/internal/models"

	"github.com/google/uuid"
)

// offlineLookups answers every search with no rows so the guidance replies
// can be tried without a database.
type offlineLookups struct{}

func (offlineLookups) SearchCustomers(context.Context, dispatch.Query) ([]models.Customer, error) {
	return []models.Customer{}, nil
}

func (offlineLookups) SearchRequests(context.Context, dispatch.Query) ([]models.Request, error) {
	return []models.Request{}, nil
}

func (offlineLookups) SearchOffers(context.Context, dispatch.Query) ([]models.Offer, error) {
	return []models.Offer{}, nil
}

func (offlineLookups) CreateBusinessCard(_ context.Context, userID, displayName string) (*models.BusinessCard, error) {
	id := uuid.NewString()
	return &models.BusinessCard{
		ID:          id,
		UserID:      userID,
		DisplayName: displayName,
		ShareURL:    "offline://cards/" + id,
		CreatedAt:   time.Now().UTC(),
	}, nil
}
