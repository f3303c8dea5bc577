package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/lumicab/api/internal/domain"
)

// PackageOverride substitutes negotiated prices for one package. Nil fields
// fall back to the catalog default.
type PackageOverride struct {
	BaseDailyHT *float64 `json:"baseDailyPriceHT,omitempty"`
	DeliveryHT  *float64 `json:"deliveryPriceHT,omitempty"`
	SpeakerHT   *float64 `json:"speakerPriceHT,omitempty"`
}

// PartnerOverride is the per-partner negotiated price sheet.
type PartnerOverride struct {
	Packages   map[domain.PackageID]PackageOverride `json:"packages"`
	TemplateHT *float64                             `json:"templatePriceHT,omitempty"`
}

// OverrideTable maps partner ids to their negotiated prices.
type OverrideTable map[string]PartnerOverride

// overridePrice accepts the two historical wire shapes for an override value:
// a bare number, or an object {"priceHT": n}. The ambiguity is normalised here
// so the engine only ever sees plain numbers.
type overridePrice struct {
	value *float64
}

func (p *overridePrice) UnmarshalJSON(data []byte) error {
	var bare float64
	if err := json.Unmarshal(data, &bare); err == nil {
		p.value = &bare
		return nil
	}
	var wrapped struct {
		PriceHT *float64 `json:"priceHT"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return fmt.Errorf("catalog: override price must be a number or {priceHT}: %w", err)
	}
	p.value = wrapped.PriceHT
	return nil
}

// UnmarshalJSON normalises the dual-shape override values at the table boundary.
func (o *PackageOverride) UnmarshalJSON(data []byte) error {
	var raw struct {
		BaseDailyHT *overridePrice `json:"baseDailyPriceHT"`
		DeliveryHT  *overridePrice `json:"deliveryPriceHT"`
		SpeakerHT   *overridePrice `json:"speakerPriceHT"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.BaseDailyHT != nil {
		o.BaseDailyHT = raw.BaseDailyHT.value
	}
	if raw.DeliveryHT != nil {
		o.DeliveryHT = raw.DeliveryHT.value
	}
	if raw.SpeakerHT != nil {
		o.SpeakerHT = raw.SpeakerHT.value
	}
	return nil
}

// UnmarshalJSON normalises the partner sheet, accepting the template price in
// either wire shape as well.
func (o *PartnerOverride) UnmarshalJSON(data []byte) error {
	var raw struct {
		Packages   map[domain.PackageID]PackageOverride `json:"packages"`
		TemplateHT *overridePrice                       `json:"templatePriceHT"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	o.Packages = raw.Packages
	if raw.TemplateHT != nil {
		o.TemplateHT = raw.TemplateHT.value
	}
	return nil
}

// ParseOverrides decodes a partner override table from its JSON document.
func ParseOverrides(data []byte) (OverrideTable, error) {
	if len(data) == 0 {
		return OverrideTable{}, nil
	}
	var table OverrideTable
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("catalog: parse partner overrides: %w", err)
	}
	return table, nil
}
