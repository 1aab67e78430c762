// Package dispatch invokes exactly one lookup collaborator for intents that
// need data and returns its result unmodified.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "realestate-assistant/internal/common/errors"
	"realestate-assistant/internal/common/logger"
	"realestate-assistant/internal/models"
)

var (
	ErrLookupFailed        = errors.New("LOOKUP_FAILED")
	ErrCollaboratorMissing = errors.New("COLLABORATOR_NOT_CONFIGURED")
)

const (
	collabCustomers     = "customers"
	collabRequests      = "requests"
	collabOffers        = "offers"
	collabBusinessCards = "business_cards"
)

// NeedsLookup reports whether an intent is served by a collaborator.
func NeedsLookup(intent models.Intent) bool {
	switch intent {
	case models.IntentSearchCustomers,
		models.IntentSearchRequests,
		models.IntentUrgentRequests,
		models.IntentSearchOffers,
		models.IntentCreateBusinessCard:
		return true
	}
	return false
}

type Config struct {
	// Timeout bounds a single collaborator call. Zero leaves the caller's
	// deadline in charge.
	Timeout time.Duration
	// MaxItems is the number of rows a reply lists. Searches ask for one
	// more so the reply can tell a full page from a cut one.
	MaxItems int
}

func (c *Config) fetchLimit() int {
	if c.MaxItems <= 0 {
		return 0
	}
	return c.MaxItems + 1
}

type Dispatcher struct {
	config *Config
	collab Collaborators
	logger logger.Logger
}

func NewDispatcher(config *Config, collab Collaborators, log logger.Logger) *Dispatcher {
	if config == nil {
		config = &Config{}
	}
	return &Dispatcher{
		config: config,
		collab: collab,
		logger: logger.ForComponent(log, "dispatch"),
	}
}

// Dispatch returns (nil, nil) for intents that need no data. Every
// collaborator failure, including a panic, comes back wrapping
// ErrLookupFailed.
func (d *Dispatcher) Dispatch(ctx context.Context, a models.Analysis, u models.Utterance) (payload models.Payload, err error) {
	if !NeedsLookup(a.Intent) {
		return nil, nil
	}

	collaborator := collaboratorFor(a.Intent)
	defer func() {
		if r := recover(); r != nil {
			payload = nil
			err = lookupError(collaborator, fmt.Errorf("panic: %v", r))
		}
	}()

	if d.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	payload, err = d.invoke(ctx, a, u)
	if err != nil {
		d.logger.Warn("lookup failed", map[string]interface{}{
			"intent":       string(a.Intent),
			"collaborator": collaborator,
			"userId":       u.UserID,
			"error":        err.Error(),
			"durationMs":   time.Since(start).Milliseconds(),
		})
		return nil, lookupError(collaborator, err)
	}

	d.logger.Debug("lookup completed", map[string]interface{}{
		"intent":       string(a.Intent),
		"collaborator": collaborator,
		"empty":        models.IsEmptyResult(payload),
		"durationMs":   time.Since(start).Milliseconds(),
	})
	return payload, nil
}

func (d *Dispatcher) invoke(ctx context.Context, a models.Analysis, u models.Utterance) (models.Payload, error) {
	q := BuildQuery(a, u.Text, d.config.fetchLimit())

	switch a.Intent {
	case models.IntentSearchCustomers:
		if d.collab.Customers == nil {
			return nil, ErrCollaboratorMissing
		}
		rows, err := d.collab.Customers.SearchCustomers(ctx, q)
		if err != nil {
			return nil, err
		}
		return models.CustomerResults(rows), nil

	case models.IntentSearchRequests, models.IntentUrgentRequests:
		if d.collab.Requests == nil {
			return nil, ErrCollaboratorMissing
		}
		if a.Intent == models.IntentUrgentRequests {
			q = Query{Urgent: true, Limit: d.config.fetchLimit()}
		}
		rows, err := d.collab.Requests.SearchRequests(ctx, q)
		if err != nil {
			return nil, err
		}
		return models.RequestResults(rows), nil

	case models.IntentSearchOffers:
		if d.collab.Offers == nil {
			return nil, ErrCollaboratorMissing
		}
		rows, err := d.collab.Offers.SearchOffers(ctx, q)
		if err != nil {
			return nil, err
		}
		return models.OfferResults(rows), nil

	case models.IntentCreateBusinessCard:
		if d.collab.BusinessCards == nil {
			return nil, ErrCollaboratorMissing
		}
		card, err := d.collab.BusinessCards.CreateBusinessCard(ctx, u.UserID, DisplayName(a, u))
		if err != nil {
			return nil, err
		}
		if card == nil {
			return nil, errors.New("collaborator returned no business card")
		}
		return models.BusinessCardResult{BusinessCard: *card}, nil
	}

	return nil, nil
}

func lookupError(collaborator string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewLookupTimeoutError(collaborator).Wrap(fmt.Errorf("%w: %w", ErrLookupFailed, err))
	}
	return apperrors.NewLookupFailedError(collaborator, fmt.Errorf("%w: %w", ErrLookupFailed, err))
}

func collaboratorFor(intent models.Intent) string {
	switch intent {
	case models.IntentSearchCustomers:
		return collabCustomers
	case models.IntentSearchRequests, models.IntentUrgentRequests:
		return collabRequests
	case models.IntentSearchOffers:
		return collabOffers
	case models.IntentCreateBusinessCard:
		return collabBusinessCards
	}
	return "none"
}
