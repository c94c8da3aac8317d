package sanitizer

import (
	"strings"

	"gatherly/pkg/locale"

	"github.com/nyaruka/phonenumbers"
)

// NormalizePhone formats phone as E.164. Numbers without a country code are
// read in defaultRegion. Unparseable or invalid numbers return "".
func NormalizePhone(phone, defaultRegion string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}
	if defaultRegion == "" {
		defaultRegion = locale.DefaultRegion
	}

	if !strings.HasPrefix(phone, "+") {
		if parsed, err := phonenumbers.Parse("+"+phone, ""); err == nil && phonenumbers.IsValidNumber(parsed) {
			return phonenumbers.Format(parsed, phonenumbers.E164)
		}
	}

	parsed, err := phonenumbers.Parse(phone, defaultRegion)
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		return ""
	}
	return phonenumbers.Format(parsed, phonenumbers.E164)
}
