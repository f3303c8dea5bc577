package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lumicab/api/internal/catalog"
	"github.com/lumicab/api/internal/domain"
	"github.com/lumicab/api/internal/i18n"
	"github.com/lumicab/api/internal/platform/httpx"
	"github.com/lumicab/api/internal/platform/requestctx"
	"github.com/lumicab/api/internal/services"
)

const maxPricingRequestBody = 16 * 1024

// PricingHandlers exposes the live quote computation and the public catalog.
type PricingHandlers struct {
	engine *services.PricingEngine
}

// NewPricingHandlers constructs pricing handlers around the computation engine.
func NewPricingHandlers(engine *services.PricingEngine) *PricingHandlers {
	return &PricingHandlers{engine: engine}
}

// Routes registers pricing endpoints under the provided router.
func (h *PricingHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/quote", h.computeQuote)
	r.Get("/catalog", h.catalog)
}

type catalogResponse struct {
	Packages      map[domain.PackageID]domain.ResolvedRates `json:"packages"`
	DisplaySuffix domain.TaxSuffix                          `json:"displaySuffix"`
}

func (h *PricingHandlers) computeQuote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.engine == nil {
		httpx.WriteError(ctx, w, httpx.NewError("pricing_unavailable", "pricing engine unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxPricingRequestBody)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, errBodyTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), status))
		return
	}

	var sel domain.Selection
	if err := json.Unmarshal(body, &sel); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}
	if sel.PackageID != "" {
		id, ok := domain.ParsePackageID(string(sel.PackageID))
		if !ok {
			httpx.WriteError(ctx, w, httpx.NewError("unknown_package", "unknown package identifier", http.StatusBadRequest))
			return
		}
		sel.PackageID = id
	}

	applyPartnerSession(ctx, &sel)

	result, err := h.localizedEngine(r).Compute(sel)
	if err != nil {
		h.writePricingError(r, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, result)
}

func (h *PricingHandlers) catalog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.engine == nil {
		httpx.WriteError(ctx, w, httpx.NewError("pricing_unavailable", "pricing engine unavailable", http.StatusServiceUnavailable))
		return
	}

	sel := domain.Selection{
		IsBusinessCustomer: r.URL.Query().Get("audience") == "business",
	}
	applyPartnerSession(ctx, &sel)

	result, err := h.localizedEngine(r).Compute(sel)
	if err != nil {
		h.writePricingError(r, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, catalogResponse{
		Packages:      result.UnitaryPrices,
		DisplaySuffix: result.DisplaySuffix,
	})
}

func (h *PricingHandlers) localizedEngine(r *http.Request) *services.PricingEngine {
	bundle := i18n.Match(r.Header.Get("Accept-Language"))
	return h.engine.WithLabels(bundle.Label)
}

func (h *PricingHandlers) writePricingError(r *http.Request, w http.ResponseWriter, err error) {
	ctx := r.Context()
	if errors.Is(err, catalog.ErrUnknownPackage) {
		httpx.WriteError(ctx, w, httpx.NewError("unknown_package", "unknown package identifier", http.StatusBadRequest))
		return
	}
	httpx.WriteError(ctx, w, httpx.NewError("pricing_error", "failed to compute pricing", http.StatusInternalServerError))
}

// applyPartnerSession overrides the caller-supplied partner fields with the
// verified session so clients cannot claim partner rates by request body.
func applyPartnerSession(ctx context.Context, sel *domain.Selection) {
	sel.PartnerMode = false
	sel.PartnerID = ""
	if partner, ok := requestctx.PartnerFromContext(ctx); ok {
		sel.PartnerMode = true
		sel.PartnerID = partner.ID
	}
}
