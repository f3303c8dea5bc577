package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/lumicab/api/internal/domain"
	"github.com/lumicab/api/internal/repositories"
	"github.com/lumicab/api/internal/webhooks"
)

var (
	// ErrQuoteInvalidInput indicates the submission payload is incomplete or inconsistent.
	ErrQuoteInvalidInput = errors.New("quote: invalid input")
	// ErrQuoteNotFound indicates no quote exists for the requested identifier.
	ErrQuoteNotFound = errors.New("quote: not found")
	// ErrQuoteAlreadySubmitted indicates the session already froze a quote.
	ErrQuoteAlreadySubmitted = errors.New("quote: session already submitted")
	// ErrQuoteUnavailable indicates quote dependencies are currently unavailable.
	ErrQuoteUnavailable = errors.New("quote: unavailable")
)

// crmMirror abstracts crm.Client for easier testing.
type crmMirror interface {
	MirrorQuote(ctx context.Context, quote domain.Quote, result domain.PricingResult) (string, error)
}

// eventDispatcher abstracts webhooks.Dispatcher for easier testing.
type eventDispatcher interface {
	Dispatch(ctx context.Context, eventType string, quote domain.Quote)
}

// QuoteServiceDeps wires the dependencies required by the quote service.
type QuoteServiceDeps struct {
	Quotes   repositories.QuoteRepository
	Pricing  *PricingEngine
	CRM      crmMirror
	Webhooks eventDispatcher
	IDGen    func() string
	Clock    func() time.Time
	Logger   func(ctx context.Context, event string, fields map[string]any)
}

type quoteService struct {
	quotes   repositories.QuoteRepository
	pricing  *PricingEngine
	crm      crmMirror
	webhooks eventDispatcher
	idGen    func() string
	now      func() time.Time
	logger   func(ctx context.Context, event string, fields map[string]any)
}

// NewQuoteService constructs a QuoteService validating required dependencies.
// CRM and webhook targets are optional: submission still succeeds without them.
func NewQuoteService(deps QuoteServiceDeps) (QuoteService, error) {
	if deps.Quotes == nil {
		return nil, errors.New("quote service: quote repository is required")
	}
	if deps.Pricing == nil {
		return nil, errors.New("quote service: pricing engine is required")
	}

	idGen := deps.IDGen
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &quoteService{
		quotes:   deps.Quotes,
		pricing:  deps.Pricing,
		crm:      deps.CRM,
		webhooks: deps.Webhooks,
		idGen:    idGen,
		now:      clock,
		logger:   logger,
	}, nil
}

// SubmitQuote recomputes the price server-side, freezes the result, stores it,
// and mirrors it to the CRM. The stored snapshot is immutable per session.
func (s *quoteService) SubmitQuote(ctx context.Context, input SubmitQuoteInput) (domain.Quote, error) {
	if err := validateSubmission(input); err != nil {
		return domain.Quote{}, err
	}

	if existing, err := s.quotes.FindBySessionID(ctx, input.SessionID); err == nil {
		s.logger(ctx, "quote.submit.duplicate", map[string]any{
			"sessionId": input.SessionID,
			"quoteId":   existing.ID,
		})
		return existing, ErrQuoteAlreadySubmitted
	} else if !errors.Is(err, repositories.ErrQuoteNotFound) {
		return domain.Quote{}, fmt.Errorf("%w: %v", ErrQuoteUnavailable, err)
	}

	result, err := s.pricing.Compute(input.Selection)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("%w: %v", ErrQuoteInvalidInput, err)
	}

	now := s.now().UTC()
	totalTTC := domain.Round2(result.TotalHT * domain.VATRate)
	quote := domain.Quote{
		ID:           s.idGen(),
		SessionID:    input.SessionID,
		Status:       domain.QuoteStatusDraft,
		Customer:     input.Customer,
		EventDate:    input.EventDate,
		EventAddress: input.EventAddress,
		Selection:    input.Selection.Normalized(),
		TotalHT:      result.TotalHT,
		TotalTTC:     totalTTC,
		Invoicing:    result.InvoicingPayload,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.quotes.Insert(ctx, quote); err != nil {
		if errors.Is(err, repositories.ErrQuoteExists) {
			return domain.Quote{}, ErrQuoteAlreadySubmitted
		}
		return domain.Quote{}, fmt.Errorf("%w: %v", ErrQuoteUnavailable, err)
	}

	s.logger(ctx, "quote.submitted", map[string]any{
		"quoteId":   quote.ID,
		"sessionId": quote.SessionID,
		"totalHT":   quote.TotalHT,
	})

	if s.crm != nil {
		quotationID, err := s.crm.MirrorQuote(ctx, quote, result)
		if err != nil {
			// The quote stays in draft; a later reconciliation run can retry.
			s.logger(ctx, "quote.crm.mirror_failed", map[string]any{
				"quoteId": quote.ID,
				"error":   err.Error(),
			})
		} else {
			quote.CRMQuotationID = quotationID
			quote.Status = domain.QuoteStatusSubmitted
			quote.UpdatedAt = s.now().UTC()
			if err := s.quotes.Update(ctx, quote); err != nil {
				s.logger(ctx, "quote.crm.link_failed", map[string]any{
					"quoteId": quote.ID,
					"error":   err.Error(),
				})
			}
		}
	} else {
		quote.Status = domain.QuoteStatusSubmitted
		quote.UpdatedAt = s.now().UTC()
		if err := s.quotes.Update(ctx, quote); err != nil {
			s.logger(ctx, "quote.status.update_failed", map[string]any{
				"quoteId": quote.ID,
				"error":   err.Error(),
			})
		}
	}

	if s.webhooks != nil {
		s.webhooks.Dispatch(ctx, webhooks.EventQuoteSubmitted, quote)
	}

	return quote, nil
}

// GetQuote loads a stored quote by identifier.
func (s *quoteService) GetQuote(ctx context.Context, quoteID string) (domain.Quote, error) {
	quoteID = strings.TrimSpace(quoteID)
	if quoteID == "" {
		return domain.Quote{}, fmt.Errorf("%w: quote id is required", ErrQuoteInvalidInput)
	}

	quote, err := s.quotes.FindByID(ctx, quoteID)
	if errors.Is(err, repositories.ErrQuoteNotFound) {
		return domain.Quote{}, ErrQuoteNotFound
	}
	if err != nil {
		return domain.Quote{}, fmt.Errorf("%w: %v", ErrQuoteUnavailable, err)
	}
	return quote, nil
}

func validateSubmission(input SubmitQuoteInput) error {
	if strings.TrimSpace(input.SessionID) == "" {
		return fmt.Errorf("%w: session id is required", ErrQuoteInvalidInput)
	}
	if strings.TrimSpace(input.Customer.Email) == "" {
		return fmt.Errorf("%w: customer email is required", ErrQuoteInvalidInput)
	}
	if strings.TrimSpace(input.Customer.LastName) == "" {
		return fmt.Errorf("%w: customer name is required", ErrQuoteInvalidInput)
	}
	if input.EventDate.IsZero() {
		return fmt.Errorf("%w: event date is required", ErrQuoteInvalidInput)
	}
	if input.Selection.PackageID == "" {
		return fmt.Errorf("%w: package selection is required", ErrQuoteInvalidInput)
	}
	if input.Selection.IsBusinessCustomer && strings.TrimSpace(input.Customer.CompanyName) == "" {
		return fmt.Errorf("%w: company name is required for business customers", ErrQuoteInvalidInput)
	}
	return nil
}
