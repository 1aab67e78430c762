package dispatch

import (
	"context"

	"realestate-assistant/internal/models"
)

// Query is the search input handed to a lookup collaborator.
type Query struct {
	// Text is the best single search term for the utterance.
	Text   string `json:"text"`
	Name   string `json:"name,omitempty"`
	Phone  string `json:"phone,omitempty"`
	Email  string `json:"email,omitempty"`
	Urgent bool   `json:"urgent,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

// Collaborators return an empty slice, never nil, when nothing matches and
// an error only on transport or storage failure.

type CustomerSearcher interface {
	SearchCustomers(ctx context.Context, q Query) ([]models.Customer, error)
}

type RequestSearcher interface {
	SearchRequests(ctx context.Context, q Query) ([]models.Request, error)
}

type OfferSearcher interface {
	SearchOffers(ctx context.Context, q Query) ([]models.Offer, error)
}

type BusinessCardCreator interface {
	CreateBusinessCard(ctx context.Context, userID, displayName string) (*models.BusinessCard, error)
}

// Collaborators groups the lookup ports. Nil members make the matching
// intents fail as lookup errors.
type Collaborators struct {
	Customers     CustomerSearcher
	Requests      RequestSearcher
	Offers        OfferSearcher
	BusinessCards BusinessCardCreator
}
