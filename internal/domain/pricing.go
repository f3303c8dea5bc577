package domain

import (
	"fmt"
	"math"
)

// VATRate is the fixed tax multiplier applied when rendering consumer (TTC) prices.
const VATRate = 1.20

// TaxSuffix labels the tax display mode of formatted amounts.
type TaxSuffix string

const (
	// SuffixHT marks tax-exclusive display (business customers).
	SuffixHT TaxSuffix = "HT"
	// SuffixTTC marks tax-inclusive display (consumer customers).
	SuffixTTC TaxSuffix = "TTC"
)

// LineItem is one priced component of a quote.
type LineItem struct {
	Label            string  `json:"label"`
	AmountHT         float64 `json:"amountHT"`
	IsRecurringDaily bool    `json:"isRecurringDaily"`
	DisplayAmount    string  `json:"displayAmount"`
}

// ResolvedRates holds the effective catalog values after partner overrides.
type ResolvedRates struct {
	Name             string  `json:"name"`
	BaseDailyHT      float64 `json:"baseDailyPriceHT"`
	FloorDailyHT     float64 `json:"floorDailyPriceHT"`
	DeliveryHT       float64 `json:"deliveryPriceHT"`
	AnimationHourHT  float64 `json:"animationHourlyPriceHT"`
	SpeakerHT        float64 `json:"speakerPriceHT"`
	TemplateHT       float64 `json:"templatePriceHT"`
	ExtraPrintCopyHT float64 `json:"extraPrintCopyPriceHT"`
}

// InvoicingPayload mirrors the line-item breakdown with raw numeric fields for
// the CRM quotation body.
type InvoicingPayload struct {
	PackageID               PackageID `json:"packageId"`
	PackageName             string    `json:"packageName"`
	BaseDailyPriceResolved  float64   `json:"baseDailyPriceResolved"`
	DaysCount               int       `json:"daysCount"`
	RecurringTotalResolved  float64   `json:"recurringTotalResolved"`
	DeliveryRequested       bool      `json:"deliveryRequested"`
	DeliveryAmount          float64   `json:"deliveryAmount"`
	DistanceKm              float64   `json:"distanceKm"`
	DistanceSurchargeAmount float64   `json:"distanceSurchargeAmount"`
	TemplateEnabled         bool      `json:"templateEnabled"`
	TemplateAmount          float64   `json:"templateAmount"`
	PrintsPerShot           int       `json:"printsPerShot"`
	ExtraPrintsAmount       float64   `json:"extraPrintsAmount"`
	AnimationHours          int       `json:"animationHours"`
	AnimationAmount         float64   `json:"animationAmount"`
	AIBackgroundAmount      float64   `json:"aiBackgroundAmount"`
	GDPRAmount              float64   `json:"gdprAmount"`
	SpeakerAmount           float64   `json:"speakerAmount"`
}

// PricingResult is the full engine output, recomputed on every selection change.
type PricingResult struct {
	TotalHT          float64                     `json:"totalHT"`
	DisplaySuffix    TaxSuffix                   `json:"displaySuffix"`
	LineItems        []LineItem                  `json:"lineItems"`
	UnitaryPrices    map[PackageID]ResolvedRates `json:"unitaryPrices"`
	InvoicingPayload InvoicingPayload            `json:"invoicingPayload"`
}

// Empty reports whether the result represents the "no package selected" state.
func (r PricingResult) Empty() bool {
	return len(r.LineItems) == 0 && r.TotalHT == 0
}

// Round2 rounds a monetary amount to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// DisplayAmount applies the tax display transform for the given mode and
// formats the amount with its currency suffix. It is derived from the HT
// amount, never the other way around.
func DisplayAmount(amountHT float64, business bool) (string, TaxSuffix) {
	factor := VATRate
	suffix := SuffixTTC
	if business {
		factor = 1
		suffix = SuffixHT
	}
	return fmt.Sprintf("%.0f€ %s", amountHT*factor, suffix), suffix
}
