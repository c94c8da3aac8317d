package locale

import (
	"strings"
	"time"
)

const (
	DefaultTimezone = "UTC"
	DefaultRegion   = "US"
)

type Country struct {
	Code            string // ISO 3166-1 alpha-2
	Name            string
	DefaultTimezone string
	TimeZones       []string
}

var Countries = map[string]Country{
	"US": {Code: "US", Name: "United States", DefaultTimezone: "America/New_York",
		TimeZones: []string{"America/New_York", "America/Chicago", "America/Denver", "America/Phoenix", "America/Los_Angeles", "America/Anchorage", "Pacific/Honolulu", "US/Eastern", "US/Central", "US/Mountain", "US/Pacific"}},
	"CA": {Code: "CA", Name: "Canada", DefaultTimezone: "America/Toronto",
		TimeZones: []string{"America/Toronto", "America/Vancouver", "America/Edmonton", "America/Winnipeg", "America/Halifax", "America/Montreal"}},
	"GB": {Code: "GB", Name: "United Kingdom", DefaultTimezone: "Europe/London",
		TimeZones: []string{"Europe/London", "GB"}},
	"IE": {Code: "IE", Name: "Ireland", DefaultTimezone: "Europe/Dublin",
		TimeZones: []string{"Europe/Dublin"}},
	"DE": {Code: "DE", Name: "Germany", DefaultTimezone: "Europe/Berlin",
		TimeZones: []string{"Europe/Berlin"}},
	"FR": {Code: "FR", Name: "France", DefaultTimezone: "Europe/Paris",
		TimeZones: []string{"Europe/Paris"}},
	"ES": {Code: "ES", Name: "Spain", DefaultTimezone: "Europe/Madrid",
		TimeZones: []string{"Europe/Madrid"}},
	"NL": {Code: "NL", Name: "Netherlands", DefaultTimezone: "Europe/Amsterdam",
		TimeZones: []string{"Europe/Amsterdam"}},
	"IL": {Code: "IL", Name: "Israel", DefaultTimezone: "Asia/Jerusalem",
		TimeZones: []string{"Asia/Jerusalem", "Asia/Tel_Aviv", "Israel"}},
	"IN": {Code: "IN", Name: "India", DefaultTimezone: "Asia/Kolkata",
		TimeZones: []string{"Asia/Kolkata", "Asia/Calcutta"}},
	"AU": {Code: "AU", Name: "Australia", DefaultTimezone: "Australia/Sydney",
		TimeZones: []string{"Australia/Sydney", "Australia/Melbourne", "Australia/Brisbane", "Australia/Perth", "Australia/Adelaide"}},
	"BR": {Code: "BR", Name: "Brazil", DefaultTimezone: "America/Sao_Paulo",
		TimeZones: []string{"America/Sao_Paulo"}},
	"JP": {Code: "JP", Name: "Japan", DefaultTimezone: "Asia/Tokyo",
		TimeZones: []string{"Asia/Tokyo", "Japan"}},
}

// RegionForTimezone maps an IANA zone to the region used as the default when
// parsing phone numbers written without a country code.
func RegionForTimezone(tz string) string {
	for code, country := range Countries {
		for _, z := range country.TimeZones {
			if strings.EqualFold(tz, z) {
				return code
			}
		}
	}
	return DefaultRegion
}

// IsValidTimezone reports whether tz names a zone in the tz database.
// "Local" is rejected since it depends on the server.
func IsValidTimezone(tz string) bool {
	if tz == "" || strings.EqualFold(tz, "local") {
		return false
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}

// Location loads tz, falling back to UTC.
func Location(tz string) *time.Location {
	if loc, err := time.LoadLocation(tz); err == nil && tz != "" {
		return loc
	}
	return time.UTC
}
