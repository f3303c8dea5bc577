package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/lumicab/api/internal/domain"
	"github.com/lumicab/api/internal/payments"
	"github.com/lumicab/api/internal/repositories"
	"github.com/lumicab/api/internal/webhooks"
)

const defaultDepositPercent = 30

var (
	// ErrCheckoutInvalidInput indicates the caller supplied invalid input parameters.
	ErrCheckoutInvalidInput = errors.New("checkout: invalid input")
	// ErrCheckoutQuoteNotFound indicates the quote to pay does not exist.
	ErrCheckoutQuoteNotFound = errors.New("checkout: quote not found")
	// ErrCheckoutNotStarted indicates payment status was requested before a session was created.
	ErrCheckoutNotStarted = errors.New("checkout: no payment session for quote")
	// ErrCheckoutPaymentFailed indicates the PSP session could not be created.
	ErrCheckoutPaymentFailed = errors.New("checkout: payment failed")
	// ErrCheckoutUnavailable indicates checkout dependencies are currently unavailable.
	ErrCheckoutUnavailable = errors.New("checkout: unavailable")
)

// checkoutPaymentManager abstracts payments.Manager for easier testing.
type checkoutPaymentManager interface {
	CreateCheckoutSession(ctx context.Context, preferred string, req payments.CheckoutSessionRequest) (payments.CheckoutSession, error)
	LookupPayment(ctx context.Context, preferred string, req payments.LookupRequest) (payments.PaymentDetails, error)
}

// CheckoutServiceDeps wires the dependencies required by the checkout service.
type CheckoutServiceDeps struct {
	Quotes         repositories.QuoteRepository
	Payments       checkoutPaymentManager
	Webhooks       eventDispatcher
	SuccessURL     string
	CancelURL      string
	DepositPercent int
	Clock          func() time.Time
	Logger         func(ctx context.Context, event string, fields map[string]any)
}

type checkoutService struct {
	quotes         repositories.QuoteRepository
	payments       checkoutPaymentManager
	webhooks       eventDispatcher
	successURL     string
	cancelURL      string
	depositPercent int
	now            func() time.Time
	logger         func(ctx context.Context, event string, fields map[string]any)
}

// NewCheckoutService constructs a CheckoutService validating required dependencies.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	if deps.Quotes == nil {
		return nil, errors.New("checkout service: quote repository is required")
	}
	if deps.Payments == nil {
		return nil, errors.New("checkout service: payment manager is required")
	}

	percent := deps.DepositPercent
	if percent <= 0 || percent > 100 {
		percent = defaultDepositPercent
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &checkoutService{
		quotes:         deps.Quotes,
		payments:       deps.Payments,
		webhooks:       deps.Webhooks,
		successURL:     strings.TrimSpace(deps.SuccessURL),
		cancelURL:      strings.TrimSpace(deps.CancelURL),
		depositPercent: percent,
		now:            clock,
		logger:         logger,
	}, nil
}

// StartCheckout creates a PSP session for the deposit on a stored quote.
// The deposit is a percentage of the VAT-inclusive total.
func (s *checkoutService) StartCheckout(ctx context.Context, quoteID string) (CheckoutResult, error) {
	quoteID = strings.TrimSpace(quoteID)
	if quoteID == "" {
		return CheckoutResult{}, fmt.Errorf("%w: quote id is required", ErrCheckoutInvalidInput)
	}

	quote, err := s.quotes.FindByID(ctx, quoteID)
	if errors.Is(err, repositories.ErrQuoteNotFound) {
		return CheckoutResult{}, ErrCheckoutQuoteNotFound
	}
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("%w: %v", ErrCheckoutUnavailable, err)
	}
	if quote.TotalTTC <= 0 {
		return CheckoutResult{}, fmt.Errorf("%w: quote has no payable total", ErrCheckoutInvalidInput)
	}

	deposit := domain.Round2(quote.TotalTTC * float64(s.depositPercent) / 100)
	depositCents := int64(math.Round(deposit * 100))

	session, err := s.payments.CreateCheckoutSession(ctx, "", payments.CheckoutSessionRequest{
		Amount:        depositCents,
		Currency:      "EUR",
		Description:   fmt.Sprintf("Acompte %d%% devis %s", s.depositPercent, quote.ID),
		CustomerEmail: quote.Customer.Email,
		SuccessURL:    s.successURL,
		CancelURL:     s.cancelURL,
		Locale:        "fr",
		Metadata: map[string]string{
			"quoteId": quote.ID,
		},
		IdempotencyKey: "checkout-" + quote.ID,
	})
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("%w: %v", ErrCheckoutPaymentFailed, err)
	}

	quote.DepositTTC = deposit
	quote.CheckoutSessionID = session.ID
	quote.UpdatedAt = s.now().UTC()
	if err := s.quotes.Update(ctx, quote); err != nil {
		return CheckoutResult{}, fmt.Errorf("%w: %v", ErrCheckoutUnavailable, err)
	}

	s.logger(ctx, "checkout.session.created", map[string]any{
		"quoteId":    quote.ID,
		"sessionId":  session.ID,
		"depositTTC": deposit,
	})

	return CheckoutResult{
		QuoteID:     quote.ID,
		SessionID:   session.ID,
		RedirectURL: session.RedirectURL,
		DepositTTC:  deposit,
		ExpiresAt:   session.ExpiresAt,
	}, nil
}

// PaymentStatus polls the PSP for the deposit state and promotes the quote to
// paid when the PSP reports success.
func (s *checkoutService) PaymentStatus(ctx context.Context, quoteID string) (PaymentState, error) {
	quoteID = strings.TrimSpace(quoteID)
	if quoteID == "" {
		return PaymentState{}, fmt.Errorf("%w: quote id is required", ErrCheckoutInvalidInput)
	}

	quote, err := s.quotes.FindByID(ctx, quoteID)
	if errors.Is(err, repositories.ErrQuoteNotFound) {
		return PaymentState{}, ErrCheckoutQuoteNotFound
	}
	if err != nil {
		return PaymentState{}, fmt.Errorf("%w: %v", ErrCheckoutUnavailable, err)
	}
	if quote.CheckoutSessionID == "" {
		return PaymentState{}, ErrCheckoutNotStarted
	}

	details, err := s.payments.LookupPayment(ctx, "", payments.LookupRequest{SessionID: quote.CheckoutSessionID})
	if err != nil {
		return PaymentState{}, fmt.Errorf("%w: %v", ErrCheckoutUnavailable, err)
	}

	if details.Status == payments.StatusSucceeded && quote.Status != domain.QuoteStatusPaid {
		quote.Status = domain.QuoteStatusPaid
		quote.UpdatedAt = s.now().UTC()
		if err := s.quotes.Update(ctx, quote); err != nil {
			s.logger(ctx, "checkout.paid.update_failed", map[string]any{
				"quoteId": quote.ID,
				"error":   err.Error(),
			})
		} else {
			s.logger(ctx, "checkout.paid", map[string]any{
				"quoteId":   quote.ID,
				"sessionId": quote.CheckoutSessionID,
			})
			if s.webhooks != nil {
				s.webhooks.Dispatch(ctx, webhooks.EventQuotePaid, quote)
			}
		}
	}

	return PaymentState{
		QuoteID: quote.ID,
		Status:  string(details.Status),
		PaidAt:  details.PaidAt,
	}, nil
}
