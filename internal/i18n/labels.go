// Package i18n resolves user-facing line-item labels for the locales the
// wizard ships in.
package i18n

import "golang.org/x/text/language"

// Label keys the pricing engine and handlers render.
const (
	KeyLinePackage      = "line.package"
	KeyLineTemplate     = "line.template"
	KeyLineDelivery     = "line.delivery"
	KeyLinePickup       = "line.pickup"
	KeyLineDistance     = "line.distance"
	KeyLineExtraPrints  = "line.extra_prints"
	KeyLineAnimation    = "line.animation"
	KeyLineAIBackground = "line.ai_background"
	KeyLineGDPR         = "line.gdpr"
	KeyLineSpeaker      = "line.speaker"
)

var supported = []language.Tag{
	language.French, // default
	language.English,
}

var matcher = language.NewMatcher(supported)

var labels = map[language.Tag]map[string]string{
	language.French: {
		KeyLinePackage:      "Location %s — %d jour(s)",
		KeyLineTemplate:     "Outil de personnalisation des impressions",
		KeyLineDelivery:     "Livraison, installation et reprise",
		KeyLinePickup:       "Retrait sur place",
		KeyLineDistance:     "Supplément kilométrique (%.0f km)",
		KeyLineExtraPrints:  "Tirages supplémentaires (×%d par prise)",
		KeyLineAnimation:    "Animation sur place (%d h)",
		KeyLineAIBackground: "Fonds IA personnalisés",
		KeyLineGDPR:         "Pack conformité RGPD",
		KeyLineSpeaker:      "Enceinte son",
	},
	language.English: {
		KeyLinePackage:      "%s rental — %d day(s)",
		KeyLineTemplate:     "Print template customisation tool",
		KeyLineDelivery:     "Delivery, setup and teardown",
		KeyLinePickup:       "Customer pickup",
		KeyLineDistance:     "Distance surcharge (%.0f km)",
		KeyLineExtraPrints:  "Extra print copies (×%d per shot)",
		KeyLineAnimation:    "On-site animation (%d h)",
		KeyLineAIBackground: "Custom AI backgrounds",
		KeyLineGDPR:         "GDPR compliance pack",
		KeyLineSpeaker:      "Speaker add-on",
	},
}

// Bundle resolves labels for one matched locale.
type Bundle struct {
	tag language.Tag
}

// Match picks the best supported locale for an Accept-Language value,
// defaulting to French when nothing matches.
func Match(acceptLanguage string) Bundle {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return Bundle{tag: language.French}
	}
	_, index, _ := matcher.Match(tags...)
	return Bundle{tag: supported[index]}
}

// Default returns the French bundle.
func Default() Bundle {
	return Bundle{tag: language.French}
}

// Label returns the format string registered for key, falling back to French
// and finally to the key itself so missing entries stay visible.
func (b Bundle) Label(key string) string {
	if set, ok := labels[b.tag]; ok {
		if label, ok := set[key]; ok {
			return label
		}
	}
	if label, ok := labels[language.French][key]; ok {
		return label
	}
	return key
}
