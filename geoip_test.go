package flagcore

import "testing"

func TestNopGeoLookupNeverResolves(t *testing.T) {
	var g NopGeoLookup
	if _, ok := g.LookupCountry("1.2.3.4"); ok {
		t.Fatalf("expected NopGeoLookup to never resolve a country")
	}
}
