package services

import (
	"context"
	"time"

	"github.com/lumicab/api/internal/domain"
)

// SubmitQuoteInput carries the wizard state frozen at submission time.
type SubmitQuoteInput struct {
	SessionID    string
	Customer     domain.Customer
	EventDate    time.Time
	EventAddress domain.EventAddress
	Selection    domain.Selection
}

// QuoteService freezes wizard selections into stored quotes and mirrors them to the CRM.
type QuoteService interface {
	SubmitQuote(ctx context.Context, input SubmitQuoteInput) (domain.Quote, error)
	GetQuote(ctx context.Context, quoteID string) (domain.Quote, error)
}

// CheckoutResult is the deposit payment session returned on checkout.
type CheckoutResult struct {
	QuoteID     string
	SessionID   string
	RedirectURL string
	DepositTTC  float64
	ExpiresAt   time.Time
}

// PaymentState reflects the deposit status of a stored quote.
type PaymentState struct {
	QuoteID string
	Status  string
	PaidAt  *time.Time
}

// CheckoutService creates deposit checkout sessions and reconciles their payment state.
type CheckoutService interface {
	StartCheckout(ctx context.Context, quoteID string) (CheckoutResult, error)
	PaymentStatus(ctx context.Context, quoteID string) (PaymentState, error)
}
