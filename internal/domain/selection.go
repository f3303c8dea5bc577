package domain

import "strings"

// PackageID identifies one of the fixed rental offering tiers.
type PackageID string

const (
	// PackageDigitalCompact is the entry-level digital-only booth.
	PackageDigitalCompact PackageID = "digital_compact"
	// PackagePrint150 bundles 150 prints per rental day.
	PackagePrint150 PackageID = "print_150"
	// PackagePrint300 bundles 300 prints per rental day.
	PackagePrint300 PackageID = "print_300"
	// PackageUnlimitedPro offers unlimited prints with pro hardware.
	PackageUnlimitedPro PackageID = "unlimited_pro"
	// PackageSignature is the staffed premium booth, always delivered.
	PackageSignature PackageID = "signature"
	// PackageImmersive360 is the 360° platform, always delivered.
	PackageImmersive360 PackageID = "immersive_360"
)

// PackageIDs lists every known package in catalog display order.
func PackageIDs() []PackageID {
	return []PackageID{
		PackageDigitalCompact,
		PackagePrint150,
		PackagePrint300,
		PackageUnlimitedPro,
		PackageSignature,
		PackageImmersive360,
	}
}

// ParsePackageID normalises a raw identifier, returning false for unknown values.
func ParsePackageID(raw string) (PackageID, bool) {
	id := PackageID(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range PackageIDs() {
		if id == known {
			return id, true
		}
	}
	return "", false
}

// ForcesDelivery reports whether the package always ships with delivery and setup.
func (p PackageID) ForcesDelivery() bool {
	return p == PackageSignature || p == PackageImmersive360
}

// SupportsTemplateTool reports whether the custom print template tool is available.
func (p PackageID) SupportsTemplateTool() bool {
	return p != PackageImmersive360 && p != ""
}

// SupportsPremiumOptions reports whether AI background and GDPR pack can be added.
func (p PackageID) SupportsPremiumOptions() bool {
	return p == PackageSignature || p == PackageUnlimitedPro
}

// SupportsSpeaker reports whether the speaker add-on is available.
func (p PackageID) SupportsSpeaker() bool {
	return p == PackageImmersive360
}

// LatLng is a WGS84 coordinate pair supplied by the address autocomplete widget.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Selection is the caller-owned wizard state priced by the engine. Fields left
// at their zero value mean "feature disabled" so the engine stays total under
// partial input.
type Selection struct {
	PackageID          PackageID `json:"packageId"`
	DurationDays       int       `json:"durationDays"`
	IsBusinessCustomer bool      `json:"isBusinessCustomer"`
	DeliveryRequested  bool      `json:"deliveryRequested"`
	AnimationHours     int       `json:"animationHours"`
	PrintsPerShot      int       `json:"printsPerShot"`
	TemplateTool       bool      `json:"templateToolEnabled"`
	AIBackground       bool      `json:"aiBackgroundEnabled"`
	GDPRPack           bool      `json:"gdprPackEnabled"`
	Speaker            bool      `json:"speakerEnabled"`
	DeliveryCoords     *LatLng   `json:"deliveryCoordinates,omitempty"`
	PartnerID          string    `json:"partnerId,omitempty"`
	PartnerMode        bool      `json:"-"`
}

// Normalized clamps out-of-range counts instead of erroring so the engine can
// be invoked on every keystroke without a validation round-trip.
func (s Selection) Normalized() Selection {
	if s.DurationDays < 1 {
		s.DurationDays = 1
	}
	if s.AnimationHours < 0 {
		s.AnimationHours = 0
	}
	if s.PrintsPerShot < 1 {
		s.PrintsPerShot = 1
	}
	s.PartnerID = strings.TrimSpace(s.PartnerID)
	if s.PackageID.ForcesDelivery() {
		s.DeliveryRequested = true
	}
	return s
}
