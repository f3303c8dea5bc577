package catalog

import (
	"errors"
	"testing"

	"github.com/lumicab/api/internal/domain"
)

func TestDefaultTableValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default catalog must validate: %v", err)
	}
}

func TestValidateRejectsMissingPackage(t *testing.T) {
	table := Default()
	delete(table, domain.PackageSignature)

	if err := table.Validate(); !errors.Is(err, ErrUnknownPackage) {
		t.Fatalf("expected ErrUnknownPackage, got %v", err)
	}
}

func TestValidateRejectsNonPositiveBase(t *testing.T) {
	table := Default()
	entry := table[domain.PackagePrint150]
	entry.BaseDailyHT = 0
	table[domain.PackagePrint150] = entry

	if err := table.Validate(); err == nil {
		t.Fatalf("expected validation error for zero base price")
	}
}

func TestEffectiveFloorDefaultsToRatio(t *testing.T) {
	entry := Entry{BaseDailyHT: 412}
	if got := entry.EffectiveFloor(); got != 61.8 {
		t.Fatalf("expected default floor 61.8, got %v", got)
	}

	pinned := Entry{BaseDailyHT: 412, FloorDailyHT: 100}
	if got := pinned.EffectiveFloor(); got != 100 {
		t.Fatalf("expected pinned floor 100, got %v", got)
	}
}

func TestResolveUnknownPackage(t *testing.T) {
	_, err := Default().Resolve("hologram", nil, "", false)
	if !errors.Is(err, ErrUnknownPackage) {
		t.Fatalf("expected ErrUnknownPackage, got %v", err)
	}
}

func TestResolveIgnoresOverridesOutsidePartnerMode(t *testing.T) {
	base := 300.0
	overrides := OverrideTable{
		"evt-club": {Packages: map[domain.PackageID]PackageOverride{
			domain.PackageUnlimitedPro: {BaseDailyHT: &base},
		}},
	}

	rates, err := Default().Resolve(domain.PackageUnlimitedPro, overrides, "evt-club", false)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if rates.BaseDailyHT != 412 {
		t.Fatalf("expected catalog base 412, got %v", rates.BaseDailyHT)
	}
}

func TestResolveAppliesPartnerOverrides(t *testing.T) {
	base := 300.0
	delivery := 50.0
	template := 29.0
	overrides := OverrideTable{
		"evt-club": {
			Packages: map[domain.PackageID]PackageOverride{
				domain.PackageUnlimitedPro: {BaseDailyHT: &base, DeliveryHT: &delivery},
			},
			TemplateHT: &template,
		},
	}

	rates, err := Default().Resolve(domain.PackageUnlimitedPro, overrides, "evt-club", true)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if rates.BaseDailyHT != 300 {
		t.Fatalf("expected overridden base 300, got %v", rates.BaseDailyHT)
	}
	if rates.FloorDailyHT != 45 {
		t.Fatalf("expected floor recomputed from override, got %v", rates.FloorDailyHT)
	}
	if rates.DeliveryHT != 50 {
		t.Fatalf("expected overridden delivery 50, got %v", rates.DeliveryHT)
	}
	if rates.TemplateHT != 29 {
		t.Fatalf("expected overridden template 29, got %v", rates.TemplateHT)
	}
}

func TestResolveUnknownPartnerFallsBack(t *testing.T) {
	rates, err := Default().Resolve(domain.PackageUnlimitedPro, OverrideTable{}, "nobody", true)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if rates.BaseDailyHT != 412 {
		t.Fatalf("expected catalog base for unknown partner, got %v", rates.BaseDailyHT)
	}
}
