package i18n

import "testing"

func TestMatchDefaultsToFrench(t *testing.T) {
	for _, accept := range []string{"", "de-DE", "zh"} {
		bundle := Match(accept)
		if got := bundle.Label(KeyLineDelivery); got != "Livraison, installation et reprise" {
			t.Errorf("accept %q: expected French delivery label, got %q", accept, got)
		}
	}
}

func TestMatchPicksEnglish(t *testing.T) {
	bundle := Match("en-GB,en;q=0.9,fr;q=0.4")
	if got := bundle.Label(KeyLineDelivery); got != "Delivery, setup and teardown" {
		t.Fatalf("expected English delivery label, got %q", got)
	}
}

func TestLabelFallsBackToKey(t *testing.T) {
	bundle := Default()
	if got := bundle.Label("line.unknown"); got != "line.unknown" {
		t.Fatalf("expected key passthrough for missing label, got %q", got)
	}
}

func TestAllKeysPresentInEveryLocale(t *testing.T) {
	keys := []string{
		KeyLinePackage, KeyLineTemplate, KeyLineDelivery, KeyLinePickup,
		KeyLineDistance, KeyLineExtraPrints, KeyLineAnimation,
		KeyLineAIBackground, KeyLineGDPR, KeyLineSpeaker,
	}
	for tag, set := range labels {
		for _, key := range keys {
			if _, ok := set[key]; !ok {
				t.Errorf("locale %v missing label %s", tag, key)
			}
		}
	}
}
