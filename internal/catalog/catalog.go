// Package catalog holds the static pricing table and the partner override
// layer the quoting engine resolves effective rates from.
package catalog

import (
	"errors"
	"fmt"

	"github.com/lumicab/api/internal/domain"
)

// ErrUnknownPackage signals a catalog lookup for a package the table does not
// carry. With a closed enumeration this is a configuration error, not a user
// error, so callers should fail fast.
var ErrUnknownPackage = errors.New("catalog: unknown package")

// Default floor price ratio when an entry does not pin an explicit floor.
const defaultFloorRatio = 0.15

// Shared option prices, identical across packages (EUR HT).
const (
	templatePriceHT       = 49
	extraPrintCopyPriceHT = 19
	aiBackgroundPriceHT   = 75
	gdprPackPriceHT       = 59
)

// Entry is the immutable price card of one rental package (all values EUR HT).
type Entry struct {
	Name            string
	BaseDailyHT     float64
	FloorDailyHT    float64
	DeliveryHT      float64
	AnimationHourHT float64
	SpeakerHT       float64
}

// Table maps every known package to its price card.
type Table map[domain.PackageID]Entry

// Default returns the production price table.
func Default() Table {
	return Table{
		domain.PackageDigitalCompact: {Name: "Compact Digital", BaseDailyHT: 139, DeliveryHT: 60, AnimationHourHT: 45},
		domain.PackagePrint150:       {Name: "Print 150", BaseDailyHT: 189, DeliveryHT: 60, AnimationHourHT: 45},
		domain.PackagePrint300:       {Name: "Print 300", BaseDailyHT: 249, DeliveryHT: 60, AnimationHourHT: 45},
		domain.PackageUnlimitedPro:   {Name: "Unlimited Pro", BaseDailyHT: 412, DeliveryHT: 80, AnimationHourHT: 55},
		domain.PackageSignature:      {Name: "Signature", BaseDailyHT: 549, DeliveryHT: 120, AnimationHourHT: 65},
		domain.PackageImmersive360:   {Name: "Immersive 360", BaseDailyHT: 690, DeliveryHT: 140, AnimationHourHT: 75, SpeakerHT: 90},
	}
}

// Validate checks the table covers the full package enumeration with sane
// values. Run once at process start.
func (t Table) Validate() error {
	for _, id := range domain.PackageIDs() {
		entry, ok := t[id]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownPackage, id)
		}
		if entry.BaseDailyHT <= 0 {
			return fmt.Errorf("catalog: package %s has non-positive base price", id)
		}
		floor := entry.EffectiveFloor()
		if floor < 0 || floor > entry.BaseDailyHT {
			return fmt.Errorf("catalog: package %s floor price out of range", id)
		}
	}
	return nil
}

// EffectiveFloor returns the explicit floor price or the default ratio of base.
func (e Entry) EffectiveFloor() float64 {
	if e.FloorDailyHT > 0 {
		return e.FloorDailyHT
	}
	return e.BaseDailyHT * defaultFloorRatio
}

// Resolve produces the effective rates for a package, layering partner
// overrides on top of the table when the session runs in partner mode.
// Overrides never change the floor ratio, only the overridable price fields.
func (t Table) Resolve(id domain.PackageID, overrides OverrideTable, partnerID string, partnerMode bool) (domain.ResolvedRates, error) {
	entry, ok := t[id]
	if !ok {
		return domain.ResolvedRates{}, fmt.Errorf("%w: %s", ErrUnknownPackage, id)
	}

	rates := domain.ResolvedRates{
		Name:             entry.Name,
		BaseDailyHT:      entry.BaseDailyHT,
		FloorDailyHT:     entry.EffectiveFloor(),
		DeliveryHT:       entry.DeliveryHT,
		AnimationHourHT:  entry.AnimationHourHT,
		SpeakerHT:        entry.SpeakerHT,
		TemplateHT:       templatePriceHT,
		ExtraPrintCopyHT: extraPrintCopyPriceHT,
	}

	if !partnerMode || partnerID == "" {
		return rates, nil
	}
	partner, ok := overrides[partnerID]
	if !ok {
		return rates, nil
	}
	pkg, ok := partner.Packages[id]
	if !ok {
		pkg = PackageOverride{}
	}
	if pkg.BaseDailyHT != nil {
		rates.BaseDailyHT = *pkg.BaseDailyHT
		rates.FloorDailyHT = rates.BaseDailyHT * defaultFloorRatio
		if entry.FloorDailyHT > 0 && entry.FloorDailyHT <= rates.BaseDailyHT {
			rates.FloorDailyHT = entry.FloorDailyHT
		}
	}
	if pkg.DeliveryHT != nil {
		rates.DeliveryHT = *pkg.DeliveryHT
	}
	if pkg.SpeakerHT != nil {
		rates.SpeakerHT = *pkg.SpeakerHT
	}
	if partner.TemplateHT != nil {
		rates.TemplateHT = *partner.TemplateHT
	}
	return rates, nil
}

// OptionPrices exposes the flat option surcharges (EUR HT).
func OptionPrices() (aiBackground, gdprPack float64) {
	return aiBackgroundPriceHT, gdprPackPriceHT
}
