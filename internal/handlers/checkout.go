package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lumicab/api/internal/platform/httpx"
	"github.com/lumicab/api/internal/services"
)

const maxCheckoutRequestBody = 8 * 1024

// CheckoutHandlers exposes deposit checkout endpoints.
type CheckoutHandlers struct {
	checkout services.CheckoutService
}

// NewCheckoutHandlers constructs checkout handlers around the checkout service.
func NewCheckoutHandlers(checkout services.CheckoutService) *CheckoutHandlers {
	return &CheckoutHandlers{checkout: checkout}
}

// Routes registers checkout endpoints under the provided router.
func (h *CheckoutHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/session", h.createSession)
	r.Get("/session/{quoteId}", h.paymentStatus)
}

type checkoutSessionRequest struct {
	QuoteID string `json:"quoteId"`
}

type checkoutSessionResponse struct {
	QuoteID    string  `json:"quoteId"`
	SessionID  string  `json:"sessionId"`
	URL        string  `json:"url"`
	DepositTTC float64 `json:"depositTTC"`
	ExpiresAt  string  `json:"expiresAt,omitempty"`
}

type paymentStatusResponse struct {
	QuoteID string `json:"quoteId"`
	Status  string `json:"status"`
	PaidAt  string `json:"paidAt,omitempty"`
}

func (h *CheckoutHandlers) createSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "checkout service unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxCheckoutRequestBody)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, errBodyTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), status))
		return
	}

	var req checkoutSessionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	quoteID := strings.TrimSpace(req.QuoteID)
	if quoteID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "quoteId is required", http.StatusBadRequest))
		return
	}

	result, err := h.checkout.StartCheckout(ctx, quoteID)
	if err != nil {
		h.writeCheckoutError(ctx, w, err)
		return
	}

	payload := checkoutSessionResponse{
		QuoteID:    result.QuoteID,
		SessionID:  result.SessionID,
		URL:        result.RedirectURL,
		DepositTTC: result.DepositTTC,
	}
	if !result.ExpiresAt.IsZero() {
		payload.ExpiresAt = result.ExpiresAt.UTC().Format(time.RFC3339Nano)
	}

	writeJSONResponse(w, http.StatusOK, payload)
}

func (h *CheckoutHandlers) paymentStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "checkout service unavailable", http.StatusServiceUnavailable))
		return
	}

	quoteID := strings.TrimSpace(chi.URLParam(r, "quoteId"))
	if quoteID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "quoteId is required", http.StatusBadRequest))
		return
	}

	state, err := h.checkout.PaymentStatus(ctx, quoteID)
	if err != nil {
		h.writeCheckoutError(ctx, w, err)
		return
	}

	payload := paymentStatusResponse{
		QuoteID: state.QuoteID,
		Status:  state.Status,
	}
	if state.PaidAt != nil {
		payload.PaidAt = state.PaidAt.UTC().Format(time.RFC3339Nano)
	}

	writeJSONResponse(w, http.StatusOK, payload)
}

func (h *CheckoutHandlers) writeCheckoutError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCheckoutInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCheckoutQuoteNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("quote_not_found", "quote not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCheckoutNotStarted):
		httpx.WriteError(ctx, w, httpx.NewError("checkout_not_started", "no checkout session exists for this quote", http.StatusConflict))
	case errors.Is(err, services.ErrCheckoutPaymentFailed):
		httpx.WriteError(ctx, w, httpx.NewError("payment_failed", "payment could not be completed", http.StatusBadGateway))
	case errors.Is(err, services.ErrCheckoutUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "checkout service unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("checkout_error", "failed to process checkout request", http.StatusInternalServerError))
	}
}
