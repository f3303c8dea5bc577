package payments

import (
	"context"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v78"
)

type stubSessions struct {
	session *stripe.CheckoutSession
	err     error
}

func (s stubSessions) New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.session != nil {
		return s.session, nil
	}
	return &stripe.CheckoutSession{ID: "cs_stub", URL: "https://checkout.stripe.com/cs_stub"}, nil
}

func (s stubSessions) Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.session != nil {
		return s.session, nil
	}
	return &stripe.CheckoutSession{ID: id}, nil
}

func TestStripeProviderRejectsNonPositiveDeposit(t *testing.T) {
	provider, err := NewStripeProvider(StripeProviderConfig{Sessions: stubSessions{}})
	if err != nil {
		t.Fatalf("NewStripeProvider returned error: %v", err)
	}

	if _, err := provider.CreateCheckoutSession(context.Background(), CheckoutSessionRequest{Amount: 0}); err == nil {
		t.Fatal("expected error for zero deposit")
	}
}

func TestStripeProviderCreatesSession(t *testing.T) {
	stub := stubSessions{session: &stripe.CheckoutSession{
		ID:        "cs_42",
		URL:       "https://checkout.stripe.com/cs_42",
		ExpiresAt: time.Date(2026, time.April, 10, 10, 0, 0, 0, time.UTC).Unix(),
	}}
	provider, err := NewStripeProvider(StripeProviderConfig{Sessions: stub})
	if err != nil {
		t.Fatalf("NewStripeProvider returned error: %v", err)
	}

	session, err := provider.CreateCheckoutSession(context.Background(), CheckoutSessionRequest{
		Amount:        34020,
		Currency:      "EUR",
		Description:   "Acompte devis LC-01",
		CustomerEmail: "marie@example.fr",
		SuccessURL:    "https://lumicab.fr/merci",
		CancelURL:     "https://lumicab.fr/devis",
	})
	if err != nil {
		t.Fatalf("CreateCheckoutSession returned error: %v", err)
	}
	if session.ID != "cs_42" {
		t.Errorf("unexpected session id: %s", session.ID)
	}
	if session.RedirectURL != "https://checkout.stripe.com/cs_42" {
		t.Errorf("unexpected redirect url: %s", session.RedirectURL)
	}
	if !session.ExpiresAt.Equal(time.Date(2026, time.April, 10, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected expiry: %s", session.ExpiresAt)
	}
}

func TestStripeProviderLookupNormalisesPaidSession(t *testing.T) {
	stub := stubSessions{session: &stripe.CheckoutSession{
		ID:            "cs_paid",
		PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
		AmountTotal:   34020,
		Currency:      stripe.CurrencyEUR,
		PaymentIntent: &stripe.PaymentIntent{ID: "pi_1", Created: time.Date(2026, time.April, 10, 9, 30, 0, 0, time.UTC).Unix()},
	}}
	provider, err := NewStripeProvider(StripeProviderConfig{Sessions: stub})
	if err != nil {
		t.Fatalf("NewStripeProvider returned error: %v", err)
	}

	details, err := provider.LookupPayment(context.Background(), LookupRequest{SessionID: "cs_paid"})
	if err != nil {
		t.Fatalf("LookupPayment returned error: %v", err)
	}
	if details.Status != StatusSucceeded {
		t.Errorf("unexpected status: %s", details.Status)
	}
	if details.Amount != 34020 || details.Currency != "EUR" {
		t.Errorf("unexpected amount/currency: %d %s", details.Amount, details.Currency)
	}
	if details.PaidAt == nil || !details.PaidAt.Equal(time.Date(2026, time.April, 10, 9, 30, 0, 0, time.UTC)) {
		t.Errorf("unexpected paid at: %v", details.PaidAt)
	}
	if details.IntentID != "pi_1" {
		t.Errorf("unexpected intent id: %s", details.IntentID)
	}
}

func TestStripeProviderLookupExpiredSessionFails(t *testing.T) {
	stub := stubSessions{session: &stripe.CheckoutSession{
		ID:            "cs_expired",
		PaymentStatus: stripe.CheckoutSessionPaymentStatusUnpaid,
		Status:        stripe.CheckoutSessionStatusExpired,
	}}
	provider, err := NewStripeProvider(StripeProviderConfig{Sessions: stub})
	if err != nil {
		t.Fatalf("NewStripeProvider returned error: %v", err)
	}

	details, err := provider.LookupPayment(context.Background(), LookupRequest{SessionID: "cs_expired"})
	if err != nil {
		t.Fatalf("LookupPayment returned error: %v", err)
	}
	if details.Status != StatusFailed {
		t.Errorf("expected failed status, got %s", details.Status)
	}
}
