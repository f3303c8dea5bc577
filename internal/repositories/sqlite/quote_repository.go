package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lumicab/api/internal/domain"
	"github.com/lumicab/api/internal/repositories"
)

// QuoteRepository stores quotes in SQLite. Structured fields that never need
// relational queries are kept as JSON columns.
type QuoteRepository struct {
	db *sql.DB
}

// NewQuoteRepository wraps the database handle.
func NewQuoteRepository(db *sql.DB) (*QuoteRepository, error) {
	if db == nil {
		return nil, errors.New("quote repository: db handle is required")
	}
	return &QuoteRepository{db: db}, nil
}

// Ping implements repositories.HealthChecker.
func (r *QuoteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Insert stores a new quote. A session that already holds a quote yields ErrQuoteExists.
func (r *QuoteRepository) Insert(ctx context.Context, quote domain.Quote) error {
	row, err := encodeQuote(quote)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO quotes (
			id, session_id, status, customer_json, event_date, event_address_json,
			selection_json, total_ht, total_ttc, deposit_ttc, invoicing_json,
			crm_quotation_id, checkout_session_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		row.id, row.sessionID, row.status, row.customerJSON, row.eventDate, row.eventAddressJSON,
		row.selectionJSON, row.totalHT, row.totalTTC, row.depositTTC, row.invoicingJSON,
		row.crmQuotationID, row.checkoutSessionID, row.createdAt, row.updatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repositories.ErrQuoteExists
		}
		return fmt.Errorf("quote repository: insert: %w", err)
	}
	return nil
}

// Update rewrites a stored quote in place.
func (r *QuoteRepository) Update(ctx context.Context, quote domain.Quote) error {
	row, err := encodeQuote(quote)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE quotes SET
			session_id = ?, status = ?, customer_json = ?, event_date = ?,
			event_address_json = ?, selection_json = ?, total_ht = ?, total_ttc = ?,
			deposit_ttc = ?, invoicing_json = ?, crm_quotation_id = ?,
			checkout_session_id = ?, updated_at = ?
		WHERE id = ?
	`,
		row.sessionID, row.status, row.customerJSON, row.eventDate,
		row.eventAddressJSON, row.selectionJSON, row.totalHT, row.totalTTC,
		row.depositTTC, row.invoicingJSON, row.crmQuotationID,
		row.checkoutSessionID, row.updatedAt, row.id,
	)
	if err != nil {
		return fmt.Errorf("quote repository: update: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("quote repository: update rows affected: %w", err)
	}
	if affected == 0 {
		return repositories.ErrQuoteNotFound
	}
	return nil
}

// FindByID loads a quote by its identifier.
func (r *QuoteRepository) FindByID(ctx context.Context, quoteID string) (domain.Quote, error) {
	return r.findOne(ctx, "id = ?", quoteID)
}

// FindBySessionID loads the quote frozen for a wizard session.
func (r *QuoteRepository) FindBySessionID(ctx context.Context, sessionID string) (domain.Quote, error) {
	return r.findOne(ctx, "session_id = ?", sessionID)
}

func (r *QuoteRepository) findOne(ctx context.Context, where string, arg string) (domain.Quote, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, session_id, status, customer_json, event_date, event_address_json,
			selection_json, total_ht, total_ttc, deposit_ttc, invoicing_json,
			crm_quotation_id, checkout_session_id, created_at, updated_at
		FROM quotes WHERE `+where,
		arg,
	)

	var stored quoteRow
	err := row.Scan(
		&stored.id, &stored.sessionID, &stored.status, &stored.customerJSON,
		&stored.eventDate, &stored.eventAddressJSON, &stored.selectionJSON,
		&stored.totalHT, &stored.totalTTC, &stored.depositTTC, &stored.invoicingJSON,
		&stored.crmQuotationID, &stored.checkoutSessionID, &stored.createdAt, &stored.updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Quote{}, repositories.ErrQuoteNotFound
	}
	if err != nil {
		return domain.Quote{}, fmt.Errorf("quote repository: scan: %w", err)
	}

	return decodeQuote(stored)
}

type quoteRow struct {
	id                string
	sessionID         string
	status            string
	customerJSON      string
	eventDate         string
	eventAddressJSON  string
	selectionJSON     string
	totalHT           float64
	totalTTC          float64
	depositTTC        float64
	invoicingJSON     string
	crmQuotationID    string
	checkoutSessionID string
	createdAt         string
	updatedAt         string
}

func encodeQuote(quote domain.Quote) (quoteRow, error) {
	if strings.TrimSpace(quote.ID) == "" {
		return quoteRow{}, errors.New("quote repository: quote id is required")
	}

	customerJSON, err := json.Marshal(quote.Customer)
	if err != nil {
		return quoteRow{}, fmt.Errorf("quote repository: encode customer: %w", err)
	}
	addressJSON, err := json.Marshal(quote.EventAddress)
	if err != nil {
		return quoteRow{}, fmt.Errorf("quote repository: encode address: %w", err)
	}
	selectionJSON, err := json.Marshal(quote.Selection)
	if err != nil {
		return quoteRow{}, fmt.Errorf("quote repository: encode selection: %w", err)
	}
	invoicingJSON, err := json.Marshal(quote.Invoicing)
	if err != nil {
		return quoteRow{}, fmt.Errorf("quote repository: encode invoicing: %w", err)
	}

	return quoteRow{
		id:                quote.ID,
		sessionID:         quote.SessionID,
		status:            string(quote.Status),
		customerJSON:      string(customerJSON),
		eventDate:         quote.EventDate.UTC().Format(time.RFC3339),
		eventAddressJSON:  string(addressJSON),
		selectionJSON:     string(selectionJSON),
		totalHT:           quote.TotalHT,
		totalTTC:          quote.TotalTTC,
		depositTTC:        quote.DepositTTC,
		invoicingJSON:     string(invoicingJSON),
		crmQuotationID:    quote.CRMQuotationID,
		checkoutSessionID: quote.CheckoutSessionID,
		createdAt:         quote.CreatedAt.UTC().Format(time.RFC3339Nano),
		updatedAt:         quote.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}, nil
}

func decodeQuote(stored quoteRow) (domain.Quote, error) {
	quote := domain.Quote{
		ID:                stored.id,
		SessionID:         stored.sessionID,
		Status:            domain.QuoteStatus(stored.status),
		TotalHT:           stored.totalHT,
		TotalTTC:          stored.totalTTC,
		DepositTTC:        stored.depositTTC,
		CRMQuotationID:    stored.crmQuotationID,
		CheckoutSessionID: stored.checkoutSessionID,
	}

	if err := json.Unmarshal([]byte(stored.customerJSON), &quote.Customer); err != nil {
		return domain.Quote{}, fmt.Errorf("quote repository: decode customer: %w", err)
	}
	if err := json.Unmarshal([]byte(stored.eventAddressJSON), &quote.EventAddress); err != nil {
		return domain.Quote{}, fmt.Errorf("quote repository: decode address: %w", err)
	}
	if err := json.Unmarshal([]byte(stored.selectionJSON), &quote.Selection); err != nil {
		return domain.Quote{}, fmt.Errorf("quote repository: decode selection: %w", err)
	}
	if err := json.Unmarshal([]byte(stored.invoicingJSON), &quote.Invoicing); err != nil {
		return domain.Quote{}, fmt.Errorf("quote repository: decode invoicing: %w", err)
	}

	eventDate, err := time.Parse(time.RFC3339, stored.eventDate)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("quote repository: decode event date: %w", err)
	}
	quote.EventDate = eventDate

	if createdAt, err := time.Parse(time.RFC3339Nano, stored.createdAt); err == nil {
		quote.CreatedAt = createdAt
	}
	if updatedAt, err := time.Parse(time.RFC3339Nano, stored.updatedAt); err == nil {
		quote.UpdatedAt = updatedAt
	}

	return quote, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "constraint failed")
}
