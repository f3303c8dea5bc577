package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lumicab/api/internal/domain"
	"github.com/lumicab/api/internal/platform/httpx"
	"github.com/lumicab/api/internal/services"
)

const maxQuoteRequestBody = 32 * 1024

// QuoteHandlers exposes quote submission and retrieval endpoints.
type QuoteHandlers struct {
	quotes services.QuoteService
}

// NewQuoteHandlers constructs quote handlers around the quote service.
func NewQuoteHandlers(quotes services.QuoteService) *QuoteHandlers {
	return &QuoteHandlers{quotes: quotes}
}

// Routes registers quote endpoints under the provided router.
func (h *QuoteHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.submitQuote)
	r.Get("/{quoteId}", h.getQuote)
}

type submitQuoteRequest struct {
	SessionID    string              `json:"sessionId"`
	Customer     domain.Customer     `json:"customer"`
	EventDate    string              `json:"eventDate"`
	EventAddress domain.EventAddress `json:"eventAddress"`
	Selection    domain.Selection    `json:"selection"`
}

func (h *QuoteHandlers) submitQuote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.quotes == nil {
		httpx.WriteError(ctx, w, httpx.NewError("quotes_unavailable", "quote service unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxQuoteRequestBody)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, errBodyTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), status))
		return
	}

	var req submitQuoteRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	eventDate, err := parseEventDate(req.EventDate)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "eventDate must be an ISO date", http.StatusBadRequest))
		return
	}

	applyPartnerSession(ctx, &req.Selection)

	input := services.SubmitQuoteInput{
		SessionID:    strings.TrimSpace(req.SessionID),
		Customer:     req.Customer,
		EventDate:    eventDate,
		EventAddress: req.EventAddress,
		Selection:    req.Selection,
	}

	quote, err := h.quotes.SubmitQuote(ctx, input)
	if err != nil {
		if errors.Is(err, services.ErrQuoteAlreadySubmitted) {
			httpx.WriteError(ctx, w, httpx.NewError("quote_already_submitted", "this session already submitted a quote", http.StatusConflict).
				WithDetails(map[string]any{"quoteId": quote.ID}))
			return
		}
		h.writeQuoteError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, quote)
}

func (h *QuoteHandlers) getQuote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.quotes == nil {
		httpx.WriteError(ctx, w, httpx.NewError("quotes_unavailable", "quote service unavailable", http.StatusServiceUnavailable))
		return
	}

	quoteID := strings.TrimSpace(chi.URLParam(r, "quoteId"))
	if quoteID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "quoteId is required", http.StatusBadRequest))
		return
	}

	quote, err := h.quotes.GetQuote(ctx, quoteID)
	if err != nil {
		h.writeQuoteError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, quote)
}

func (h *QuoteHandlers) writeQuoteError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrQuoteInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrQuoteNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("quote_not_found", "quote not found", http.StatusNotFound))
	case errors.Is(err, services.ErrQuoteUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("quotes_unavailable", "quote service unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("quote_error", "failed to process quote request", http.StatusInternalServerError))
	}
}

func parseEventDate(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, errors.New("eventDate is required")
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}
