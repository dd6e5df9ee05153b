package flagcore

import (
	countrylookup "github.com/statsig-io/ip3country-go"
)

// GeoLookup resolves an IP address to a country code. It backs the
// ip_based condition's fallback path (§4.2): when a field isn't
// present directly on the user, "country" is derived from IPAddress.
type GeoLookup interface {
	LookupCountry(ip string) (string, bool)
}

// countryLookupAdapter wraps the ip3country-go database lookup.
type countryLookupAdapter struct {
	lookup *countrylookup.CountryLookup
}

// NewGeoLookup loads the bundled IP-to-country database. It is safe
// to share across goroutines.
func NewGeoLookup() GeoLookup {
	return &countryLookupAdapter{lookup: countrylookup.New()}
}

func (c *countryLookupAdapter) LookupCountry(ip string) (string, bool) {
	if ip == "" {
		return "", false
	}
	return c.lookup.LookupIp(ip)
}

// NopGeoLookup never resolves anything. Useful when IP geolocation is
// disabled or the database can't be loaded.
type NopGeoLookup struct{}

func (NopGeoLookup) LookupCountry(string) (string, bool) { return "", false }
