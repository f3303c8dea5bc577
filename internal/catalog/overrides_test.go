package catalog

import (
	"testing"

	"github.com/lumicab/api/internal/domain"
)

func TestParseOverridesBareNumbers(t *testing.T) {
	data := []byte(`{
		"evt-club": {
			"packages": {
				"unlimited_pro": {"baseDailyPriceHT": 300, "deliveryPriceHT": 50}
			},
			"templatePriceHT": 29
		}
	}`)

	table, err := ParseOverrides(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	partner, ok := table["evt-club"]
	if !ok {
		t.Fatalf("expected evt-club partner sheet")
	}
	pkg := partner.Packages[domain.PackageUnlimitedPro]
	if pkg.BaseDailyHT == nil || *pkg.BaseDailyHT != 300 {
		t.Fatalf("expected base 300, got %v", pkg.BaseDailyHT)
	}
	if pkg.DeliveryHT == nil || *pkg.DeliveryHT != 50 {
		t.Fatalf("expected delivery 50, got %v", pkg.DeliveryHT)
	}
	if partner.TemplateHT == nil || *partner.TemplateHT != 29 {
		t.Fatalf("expected template 29, got %v", partner.TemplateHT)
	}
}

func TestParseOverridesWrappedObjects(t *testing.T) {
	data := []byte(`{
		"evt-club": {
			"packages": {
				"signature": {"baseDailyPriceHT": {"priceHT": 480}}
			},
			"templatePriceHT": {"priceHT": 0}
		}
	}`)

	table, err := ParseOverrides(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	pkg := table["evt-club"].Packages[domain.PackageSignature]
	if pkg.BaseDailyHT == nil || *pkg.BaseDailyHT != 480 {
		t.Fatalf("expected base 480 from wrapped value, got %v", pkg.BaseDailyHT)
	}
	tmpl := table["evt-club"].TemplateHT
	if tmpl == nil || *tmpl != 0 {
		t.Fatalf("expected explicit zero template price, got %v", tmpl)
	}
}

func TestParseOverridesEmptyInput(t *testing.T) {
	table, err := ParseOverrides(nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(table) != 0 {
		t.Fatalf("expected empty table, got %v", table)
	}
}

func TestParseOverridesRejectsMalformedValue(t *testing.T) {
	data := []byte(`{"evt-club": {"packages": {"signature": {"baseDailyPriceHT": "cheap"}}}}`)
	if _, err := ParseOverrides(data); err == nil {
		t.Fatalf("expected error for non-numeric override")
	}
}
