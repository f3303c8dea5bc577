package services

import (
	"errors"
	"fmt"
	"math"

	"github.com/lumicab/api/internal/catalog"
	"github.com/lumicab/api/internal/domain"
	"github.com/lumicab/api/internal/geo"
	"github.com/lumicab/api/internal/i18n"
)

// PricingEngine turns a wizard selection into an itemised price breakdown.
// It is pure and stateless: safe to invoke on every selection change.
type PricingEngine struct {
	catalog   catalog.Table
	overrides catalog.OverrideTable
	depot     geo.Point
	labels    func(key string) string
}

// PricingEngineDeps wires the data the engine resolves prices from.
type PricingEngineDeps struct {
	Catalog   catalog.Table
	Overrides catalog.OverrideTable
	Depot     geo.Point
	Labels    func(key string) string
}

// NewPricingEngine validates the catalog once so per-call resolution can
// treat missing entries as programmer error.
func NewPricingEngine(deps PricingEngineDeps) (*PricingEngine, error) {
	if deps.Catalog == nil {
		return nil, errors.New("pricing engine: catalog is required")
	}
	if err := deps.Catalog.Validate(); err != nil {
		return nil, err
	}
	labels := deps.Labels
	if labels == nil {
		labels = i18n.Default().Label
	}
	overrides := deps.Overrides
	if overrides == nil {
		overrides = catalog.OverrideTable{}
	}
	return &PricingEngine{
		catalog:   deps.Catalog,
		overrides: overrides,
		depot:     deps.Depot,
		labels:    labels,
	}, nil
}

// WithLabels returns a copy of the engine rendering labels through the given
// lookup, typically a locale bundle matched from Accept-Language.
func (e *PricingEngine) WithLabels(labels func(key string) string) *PricingEngine {
	if labels == nil {
		return e
	}
	clone := *e
	clone.labels = labels
	return &clone
}

// DegressiveTotal converts a per-day recurring price into the total for the
// given number of days. The 0.9^days decay rewards longer rentals while the
// floor price bounds the average daily cost from below; the ×10 factor is a
// fixed calibration constant of this tariff, not a parameter. The result is
// truncated toward zero, matching the audited production behaviour.
func DegressiveTotal(baseDailyHT, floorDailyHT float64, days int) float64 {
	if days <= 1 {
		// The decay term reduces to the base price algebraically for one
		// day, but not in floats; truncation would then lose a full euro.
		return math.Trunc(baseDailyHT)
	}
	decay := 1 - math.Pow(0.9, float64(days))
	return math.Trunc((baseDailyHT-floorDailyHT)*10*decay + floorDailyHT*float64(days))
}

// Compute prices the selection against the resolved catalog rates.
//
// An unset package is a valid pre-selection state and yields an empty result
// with unitary prices only; a package missing from the catalog propagates as
// catalog.ErrUnknownPackage.
func (e *PricingEngine) Compute(sel domain.Selection) (domain.PricingResult, error) {
	sel = sel.Normalized()

	unitary := make(map[domain.PackageID]domain.ResolvedRates, len(e.catalog))
	for _, id := range domain.PackageIDs() {
		rates, err := e.catalog.Resolve(id, e.overrides, sel.PartnerID, sel.PartnerMode)
		if err != nil {
			return domain.PricingResult{}, err
		}
		unitary[id] = rates
	}

	_, suffix := domain.DisplayAmount(0, sel.IsBusinessCustomer)
	result := domain.PricingResult{
		DisplaySuffix: suffix,
		UnitaryPrices: unitary,
	}

	if sel.PackageID == "" {
		return result, nil
	}
	rates, ok := unitary[sel.PackageID]
	if !ok {
		return domain.PricingResult{}, fmt.Errorf("%w: %s", catalog.ErrUnknownPackage, sel.PackageID)
	}

	days := sel.DurationDays
	payload := domain.InvoicingPayload{
		PackageID:              sel.PackageID,
		PackageName:            rates.Name,
		BaseDailyPriceResolved: rates.BaseDailyHT,
		DaysCount:              days,
		PrintsPerShot:          sel.PrintsPerShot,
		AnimationHours:         sel.AnimationHours,
	}

	emit := func(label string, amountHT float64, recurring bool) {
		display, _ := domain.DisplayAmount(amountHT, sel.IsBusinessCustomer)
		result.LineItems = append(result.LineItems, domain.LineItem{
			Label:            label,
			AmountHT:         amountHT,
			IsRecurringDaily: recurring,
			DisplayAmount:    display,
		})
	}

	// 1. Degressive recurring total for the package itself.
	recurring := DegressiveTotal(rates.BaseDailyHT, rates.FloorDailyHT, days)
	payload.RecurringTotalResolved = recurring
	emit(fmt.Sprintf(e.labels(i18n.KeyLinePackage), rates.Name, days), recurring, true)

	// 2. Template tool: free for consumers, priced for business customers.
	if sel.TemplateTool && sel.PackageID.SupportsTemplateTool() {
		amount := 0.0
		if sel.IsBusinessCustomer {
			amount = rates.TemplateHT
		}
		payload.TemplateEnabled = true
		payload.TemplateAmount = amount
		emit(e.labels(i18n.KeyLineTemplate), amount, false)
	}

	// 3. Delivery (or pickup), then the distance surcharge when any.
	if sel.DeliveryRequested {
		delivery := rates.DeliveryHT
		if sel.PackageID == domain.PackageSignature && sel.AnimationHours >= 1 && sel.AnimationHours <= 3 {
			// Short Signature animations are run by the delivery technician.
			delivery = delivery / 2
		}
		payload.DeliveryRequested = true
		payload.DeliveryAmount = delivery
		emit(e.labels(i18n.KeyLineDelivery), delivery, false)

		if sel.DeliveryCoords != nil {
			distance := geo.DistanceKm(e.depot, geo.Point{Lat: sel.DeliveryCoords.Lat, Lng: sel.DeliveryCoords.Lng})
			payload.DistanceKm = domain.Round2(distance)
			if surcharge := geo.Surcharge(distance); surcharge > 0 {
				payload.DistanceSurchargeAmount = surcharge
				emit(fmt.Sprintf(e.labels(i18n.KeyLineDistance), distance), surcharge, false)
			}
		}
	} else {
		// Informational only: pickup never carries a price.
		emit(e.labels(i18n.KeyLinePickup), 0, false)
	}

	// 4. Extra print copies, linear across days.
	if sel.PrintsPerShot > 1 {
		amount := rates.ExtraPrintCopyHT * float64(sel.PrintsPerShot-1) * float64(days)
		payload.ExtraPrintsAmount = amount
		emit(fmt.Sprintf(e.labels(i18n.KeyLineExtraPrints), sel.PrintsPerShot), amount, false)
	}

	// 5. Paid animation hours; the first 3 hours are included on Immersive 360.
	paidHours := sel.AnimationHours
	if sel.PackageID == domain.PackageImmersive360 {
		paidHours = sel.AnimationHours - 3
		if paidHours < 0 {
			paidHours = 0
		}
	}
	if paidHours > 0 {
		amount := rates.AnimationHourHT * float64(paidHours)
		payload.AnimationAmount = amount
		emit(fmt.Sprintf(e.labels(i18n.KeyLineAnimation), sel.AnimationHours), amount, false)
	}

	aiPrice, gdprPrice := catalog.OptionPrices()

	// 6. AI backgrounds, premium packages only.
	if sel.AIBackground && sel.PackageID.SupportsPremiumOptions() {
		payload.AIBackgroundAmount = aiPrice
		emit(e.labels(i18n.KeyLineAIBackground), aiPrice, false)
	}

	// 7. GDPR pack, premium packages only.
	if sel.GDPRPack && sel.PackageID.SupportsPremiumOptions() {
		payload.GDPRAmount = gdprPrice
		emit(e.labels(i18n.KeyLineGDPR), gdprPrice, false)
	}

	// 8. Speaker, Immersive 360 only.
	if sel.Speaker && sel.PackageID.SupportsSpeaker() {
		payload.SpeakerAmount = rates.SpeakerHT
		emit(e.labels(i18n.KeyLineSpeaker), rates.SpeakerHT, false)
	}

	var total float64
	for _, item := range result.LineItems {
		total += item.AmountHT
	}
	result.TotalHT = domain.Round2(total)
	result.InvoicingPayload = payload
	return result, nil
}
