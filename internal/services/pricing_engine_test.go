package services

import (
	"testing"

	"github.com/lumicab/api/internal/catalog"
	"github.com/lumicab/api/internal/domain"
	"github.com/lumicab/api/internal/geo"
)

func newEngine(t *testing.T, overrides catalog.OverrideTable) *PricingEngine {
	t.Helper()
	engine, err := NewPricingEngine(PricingEngineDeps{
		Catalog:   catalog.Default(),
		Overrides: overrides,
		Depot:     geo.Point{Lat: 48.8666, Lng: 2.3333},
	})
	if err != nil {
		t.Fatalf("failed to build pricing engine: %v", err)
	}
	return engine
}

func TestDegressiveTotalSingleDayIdentity(t *testing.T) {
	table := catalog.Default()
	for _, id := range domain.PackageIDs() {
		rates, err := table.Resolve(id, nil, "", false)
		if err != nil {
			t.Fatalf("resolve %s: %v", id, err)
		}
		got := DegressiveTotal(rates.BaseDailyHT, rates.FloorDailyHT, 1)
		if got != rates.BaseDailyHT {
			t.Errorf("package %s: one day priced %v, want base %v", id, got, rates.BaseDailyHT)
		}
	}
}

func TestDegressiveTotalNoDiscountWhenFloorEqualsBase(t *testing.T) {
	for _, days := range []int{1, 2, 5, 30} {
		got := DegressiveTotal(100, 100, days)
		want := float64(100 * days)
		if got != want {
			t.Errorf("days=%d: got %v, want %v", days, got, want)
		}
	}
}

func TestDegressiveTotalAverageDailyCostNeverIncreases(t *testing.T) {
	prev := DegressiveTotal(412, 61.8, 1)
	for days := 2; days <= 30; days++ {
		total := DegressiveTotal(412, 61.8, days)
		if total/float64(days) > prev/float64(days-1)+1e-9 {
			t.Fatalf("average daily cost increased at %d days: %v vs %v", days, total/float64(days), prev/float64(days-1))
		}
		prev = total
	}
}

func TestDegressiveTotalTruncatesTowardZero(t *testing.T) {
	// decay for 2 days is 0.19, so 10.5*10*0.19 = 19.95 and must become 19.
	if got := DegressiveTotal(10.5, 0, 2); got != 19 {
		t.Fatalf("expected truncation to 19, got %v", got)
	}
}

func TestComputeScenarioUnlimitedProThreeDays(t *testing.T) {
	engine := newEngine(t, nil)

	result, err := engine.Compute(domain.Selection{
		PackageID:          domain.PackageUnlimitedPro,
		DurationDays:       3,
		IsBusinessCustomer: true,
	})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	// trunc((412-61.8)*10*(1-0.9^3) + 61.8*3) = 1134
	if result.TotalHT != 1134 {
		t.Fatalf("expected total 1134, got %v", result.TotalHT)
	}
	if result.DisplaySuffix != domain.SuffixHT {
		t.Fatalf("expected HT display, got %v", result.DisplaySuffix)
	}
	if result.InvoicingPayload.RecurringTotalResolved != 1134 {
		t.Fatalf("expected recurring total 1134, got %v", result.InvoicingPayload.RecurringTotalResolved)
	}
}

func TestComputeEmptySelectionReturnsCatalogOnly(t *testing.T) {
	engine := newEngine(t, nil)

	result, err := engine.Compute(domain.Selection{})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if !result.Empty() {
		t.Fatalf("expected empty result, got %+v", result)
	}
	if len(result.UnitaryPrices) != len(domain.PackageIDs()) {
		t.Fatalf("expected unitary prices for every package, got %d", len(result.UnitaryPrices))
	}
	if result.DisplaySuffix != domain.SuffixTTC {
		t.Fatalf("expected consumer TTC display, got %v", result.DisplaySuffix)
	}
}

func TestComputeSignatureShortAnimationHalvesDelivery(t *testing.T) {
	engine := newEngine(t, nil)

	result, err := engine.Compute(domain.Selection{
		PackageID:      domain.PackageSignature,
		DurationDays:   1,
		AnimationHours: 2,
	})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	// Signature always delivers; a 1-3h animation is handled by the
	// delivery technician so delivery drops from 120 to 60.
	if result.InvoicingPayload.DeliveryAmount != 60 {
		t.Fatalf("expected halved delivery 60, got %v", result.InvoicingPayload.DeliveryAmount)
	}

	long, err := engine.Compute(domain.Selection{
		PackageID:      domain.PackageSignature,
		DurationDays:   1,
		AnimationHours: 4,
	})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if long.InvoicingPayload.DeliveryAmount != 120 {
		t.Fatalf("expected full delivery 120 for long animation, got %v", long.InvoicingPayload.DeliveryAmount)
	}
}

func TestComputeImmersiveIncludesThreeAnimationHours(t *testing.T) {
	engine := newEngine(t, nil)

	included, err := engine.Compute(domain.Selection{
		PackageID:      domain.PackageImmersive360,
		DurationDays:   1,
		AnimationHours: 3,
	})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if included.InvoicingPayload.AnimationAmount != 0 {
		t.Fatalf("expected first 3 hours included, got %v", included.InvoicingPayload.AnimationAmount)
	}

	extra, err := engine.Compute(domain.Selection{
		PackageID:      domain.PackageImmersive360,
		DurationDays:   1,
		AnimationHours: 5,
	})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if extra.InvoicingPayload.AnimationAmount != 150 {
		t.Fatalf("expected 2 paid hours at 75, got %v", extra.InvoicingPayload.AnimationAmount)
	}
}

func TestComputeTemplateFreeForConsumers(t *testing.T) {
	engine := newEngine(t, nil)

	consumer, err := engine.Compute(domain.Selection{
		PackageID:    domain.PackagePrint150,
		DurationDays: 1,
		TemplateTool: true,
	})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if consumer.InvoicingPayload.TemplateAmount != 0 {
		t.Fatalf("expected free template for consumers, got %v", consumer.InvoicingPayload.TemplateAmount)
	}

	business, err := engine.Compute(domain.Selection{
		PackageID:          domain.PackagePrint150,
		DurationDays:       1,
		IsBusinessCustomer: true,
		TemplateTool:       true,
	})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if business.InvoicingPayload.TemplateAmount != 49 {
		t.Fatalf("expected 49 template price for business, got %v", business.InvoicingPayload.TemplateAmount)
	}
}

func TestComputeIgnoresPremiumOptionsOnBasicPackages(t *testing.T) {
	engine := newEngine(t, nil)

	result, err := engine.Compute(domain.Selection{
		PackageID:    domain.PackageDigitalCompact,
		DurationDays: 1,
		AIBackground: true,
		GDPRPack:     true,
		Speaker:      true,
	})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	p := result.InvoicingPayload
	if p.AIBackgroundAmount != 0 || p.GDPRAmount != 0 || p.SpeakerAmount != 0 {
		t.Fatalf("expected premium options ignored, got %+v", p)
	}
}

func TestComputeDistanceSurchargeBeyondFreeRadius(t *testing.T) {
	engine := newEngine(t, nil)

	near, err := engine.Compute(domain.Selection{
		PackageID:         domain.PackagePrint300,
		DurationDays:      1,
		DeliveryRequested: true,
		DeliveryCoords:    &domain.LatLng{Lat: 48.8666 + 0.05, Lng: 2.3333},
	})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if near.InvoicingPayload.DistanceSurchargeAmount != 0 {
		t.Fatalf("expected no surcharge within free radius, got %v", near.InvoicingPayload.DistanceSurchargeAmount)
	}

	// 0.3 degrees of latitude is about 33.36 km, so 18 km beyond the free
	// radius at 1.8/km.
	far, err := engine.Compute(domain.Selection{
		PackageID:         domain.PackagePrint300,
		DurationDays:      1,
		DeliveryRequested: true,
		DeliveryCoords:    &domain.LatLng{Lat: 48.8666 + 0.3, Lng: 2.3333},
	})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if far.InvoicingPayload.DistanceSurchargeAmount != 32.4 {
		t.Fatalf("expected surcharge 32.4, got %v", far.InvoicingPayload.DistanceSurchargeAmount)
	}
}

func TestComputeExtraPrintsScaleWithDays(t *testing.T) {
	engine := newEngine(t, nil)

	result, err := engine.Compute(domain.Selection{
		PackageID:     domain.PackagePrint150,
		DurationDays:  2,
		PrintsPerShot: 3,
	})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	// 2 extra copies x 19 x 2 days
	if result.InvoicingPayload.ExtraPrintsAmount != 76 {
		t.Fatalf("expected extra prints 76, got %v", result.InvoicingPayload.ExtraPrintsAmount)
	}
}

func TestComputePartnerOverrideReplacesBase(t *testing.T) {
	base := 300.0
	engine := newEngine(t, catalog.OverrideTable{
		"evt-club": {Packages: map[domain.PackageID]catalog.PackageOverride{
			domain.PackageUnlimitedPro: {BaseDailyHT: &base},
		}},
	})

	partner, err := engine.Compute(domain.Selection{
		PackageID:          domain.PackageUnlimitedPro,
		DurationDays:       3,
		IsBusinessCustomer: true,
		PartnerID:          "evt-club",
		PartnerMode:        true,
	})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	// trunc((300-45)*10*(1-0.9^3) + 45*3) = 826
	if partner.TotalHT != 826 {
		t.Fatalf("expected partner total 826, got %v", partner.TotalHT)
	}

	consumer, err := engine.Compute(domain.Selection{
		PackageID:          domain.PackageUnlimitedPro,
		DurationDays:       3,
		IsBusinessCustomer: true,
		PartnerID:          "evt-club",
	})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if consumer.TotalHT != 1134 {
		t.Fatalf("expected catalog total 1134 without partner mode, got %v", consumer.TotalHT)
	}
}

func TestComputeTaxDisplayTransform(t *testing.T) {
	engine := newEngine(t, nil)

	consumer, err := engine.Compute(domain.Selection{
		PackageID:    domain.PackagePrint150,
		DurationDays: 1,
	})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if consumer.LineItems[0].AmountHT != 189 {
		t.Fatalf("expected HT amount 189, got %v", consumer.LineItems[0].AmountHT)
	}
	// 189 x 1.20 = 226.8, rendered without decimals.
	if consumer.LineItems[0].DisplayAmount != "227€ TTC" {
		t.Fatalf("expected consumer display 227€ TTC, got %q", consumer.LineItems[0].DisplayAmount)
	}

	business, err := engine.Compute(domain.Selection{
		PackageID:          domain.PackagePrint150,
		DurationDays:       1,
		IsBusinessCustomer: true,
	})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if business.LineItems[0].AmountHT != 189 {
		t.Fatalf("expected identical HT amount 189, got %v", business.LineItems[0].AmountHT)
	}
	if business.LineItems[0].DisplayAmount != "189€ HT" {
		t.Fatalf("expected business display 189€ HT, got %q", business.LineItems[0].DisplayAmount)
	}
}

func TestComputeScenarioSignatureShortAnimation(t *testing.T) {
	engine := newEngine(t, nil)

	result, err := engine.Compute(domain.Selection{
		PackageID:          domain.PackageSignature,
		DurationDays:       1,
		IsBusinessCustomer: true,
		AnimationHours:     2,
		PrintsPerShot:      2,
	})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	p := result.InvoicingPayload
	if p.DeliveryAmount != 60 {
		t.Fatalf("expected halved delivery 60, got %v", p.DeliveryAmount)
	}
	if p.ExtraPrintsAmount != 19 {
		t.Fatalf("expected extra prints 19, got %v", p.ExtraPrintsAmount)
	}
	if p.AnimationAmount != 130 {
		t.Fatalf("expected 2 animation hours at 65, got %v", p.AnimationAmount)
	}
	// 549 recurring + 60 delivery + 19 prints + 130 animation
	if result.TotalHT != 758 {
		t.Fatalf("expected total 758, got %v", result.TotalHT)
	}

	var sum float64
	for _, item := range result.LineItems {
		sum += item.AmountHT
	}
	if domain.Round2(sum) != result.TotalHT {
		t.Fatalf("total %v does not match line item sum %v", result.TotalHT, sum)
	}
}

func TestComputeForcedDeliveryPackages(t *testing.T) {
	engine := newEngine(t, nil)

	result, err := engine.Compute(domain.Selection{
		PackageID:    domain.PackageImmersive360,
		DurationDays: 1,
	})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if !result.InvoicingPayload.DeliveryRequested {
		t.Fatalf("expected forced delivery for immersive 360")
	}
	if result.InvoicingPayload.DeliveryAmount != 140 {
		t.Fatalf("expected delivery 140, got %v", result.InvoicingPayload.DeliveryAmount)
	}
}
