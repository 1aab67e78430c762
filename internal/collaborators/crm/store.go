// Package crm implements the Postgres-backed lookup collaborators: customer
// and request search, business card creation and appointment persistence.
package crm

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"realestate-assistant/internal/assistant/dispatch"
	apperrors "realestate-assistant/internal/common/errors"
	"realestate-assistant/internal/common/logger"
	"realestate-assistant/internal/models"

	"github.com/google/uuid"
)

const defaultLimit = 20

type Config struct {
	// ShareBaseURL prefixes the public link of a business card.
	ShareBaseURL string
	MaxLimit     int
}

type Store struct {
	db     *sql.DB
	config Config
	logger logger.Logger
	now    func() time.Time
	newID  func() string
}

func NewStore(db *sql.DB, config Config, log logger.Logger) *Store {
	if config.MaxLimit <= 0 {
		config.MaxLimit = 100
	}
	return &Store{
		db:     db,
		config: config,
		logger: logger.ForComponent(log, "crm"),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

func (s *Store) limit(q dispatch.Query) int {
	switch {
	case q.Limit <= 0:
		return defaultLimit
	case q.Limit > s.config.MaxLimit:
		return s.config.MaxLimit
	}
	return q.Limit
}

// SearchCustomers matches by phone, then email, then a name fragment. An
// empty query lists the newest customers.
func (s *Store) SearchCustomers(ctx context.Context, q dispatch.Query) ([]models.Customer, error) {
	var (
		where string
		args  []interface{}
	)
	switch {
	case q.Phone != "":
		where, args = "WHERE phone = $1", []interface{}{q.Phone}
	case q.Email != "":
		where, args = "WHERE LOWER(email) = LOWER($1)", []interface{}{q.Email}
	case strings.TrimSpace(q.Text) != "":
		where, args = "WHERE name ILIKE $1", []interface{}{likePattern(q.Text)}
	}
	args = append(args, s.limit(q))

	query := fmt.Sprintf(`
		SELECT id, name, phone, COALESCE(email, ''), COALESCE(city, ''), created_at
		FROM customers
		%s
		ORDER BY created_at DESC
		LIMIT $%d`, where, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewDatabaseQueryFailedError("search_customers", err)
	}
	defer rows.Close()

	customers := []models.Customer{}
	for rows.Next() {
		var c models.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.City, &c.CreatedAt); err != nil {
			return nil, apperrors.NewDatabaseQueryFailedError("search_customers", err)
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseQueryFailedError("search_customers", err)
	}
	return customers, nil
}

// SearchRequests lists open urgent requests for urgent queries and matches
// title or customer name otherwise.
func (s *Store) SearchRequests(ctx context.Context, q dispatch.Query) ([]models.Request, error) {
	var (
		where string
		args  []interface{}
	)
	switch {
	case q.Urgent:
		where = "WHERE urgent = TRUE AND status <> 'closed'"
	case strings.TrimSpace(q.Text) != "":
		where, args = "WHERE title ILIKE $1 OR customer_name ILIKE $1", []interface{}{likePattern(q.Text)}
	}
	args = append(args, s.limit(q))

	query := fmt.Sprintf(`
		SELECT id, title, customer_name, COALESCE(property_type, ''), COALESCE(city, ''),
		       COALESCE(budget, 0), status, urgent, created_at
		FROM property_requests
		%s
		ORDER BY created_at DESC
		LIMIT $%d`, where, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewDatabaseQueryFailedError("search_requests", err)
	}
	defer rows.Close()

	requests := []models.Request{}
	for rows.Next() {
		var r models.Request
		if err := rows.Scan(&r.ID, &r.Title, &r.CustomerName, &r.PropertyType, &r.City,
			&r.Budget, &r.Status, &r.Urgent, &r.CreatedAt); err != nil {
			return nil, apperrors.NewDatabaseQueryFailedError("search_requests", err)
		}
		requests = append(requests, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseQueryFailedError("search_requests", err)
	}
	return requests, nil
}

// CreateBusinessCard stores a new card and returns it with its share link.
func (s *Store) CreateBusinessCard(ctx context.Context, userID, displayName string) (*models.BusinessCard, error) {
	id := s.newID()
	card := &models.BusinessCard{
		ID:          id,
		UserID:      userID,
		DisplayName: displayName,
		ShareURL:    strings.TrimRight(s.config.ShareBaseURL, "/") + "/" + id,
		CreatedAt:   s.now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO business_cards (id, user_id, display_name, share_url, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		card.ID, card.UserID, card.DisplayName, card.ShareURL, card.CreatedAt)
	if err != nil {
		return nil, apperrors.NewDatabaseInsertFailedError("business_cards", err)
	}

	s.logger.Info("business card created", map[string]interface{}{
		"cardId": card.ID,
		"userId": userID,
	})
	return card, nil
}

// SaveAppointment persists an appointment produced by the dialogue flow.
func (s *Store) SaveAppointment(ctx context.Context, appt models.Appointment) error {
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = s.now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO appointments (id, user_id, type, date, time, purpose, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`,
		appt.ID, appt.UserID, appt.Type, appt.Date, appt.Time, appt.Purpose, appt.CreatedAt)
	if err != nil {
		return apperrors.NewDatabaseInsertFailedError("appointments", err)
	}
	return nil
}

func likePattern(text string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.TrimSpace(text)) + "%"
}
