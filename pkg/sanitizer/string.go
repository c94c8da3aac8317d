package sanitizer

import (
	"regexp"
	"strings"
	"unicode"
)

func TrimAndNormalize(s string) string {
	s = strings.TrimSpace(s)

	if s == "" {
		return ""
	}

	var result strings.Builder
	var lastWasSpace bool

	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		} else if unicode.IsControl(r) {
			continue
		} else {
			result.WriteRune(r)
			lastWasSpace = false
		}
	}

	return result.String()
}

func NormalizeName(name string) string {
	return TrimAndNormalize(name)
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var (
	reSlugInvalid = regexp.MustCompile(`[^a-z0-9]+`)
	rePromoStrip  = regexp.MustCompile(`[^A-Z0-9_-]+`)
)

// Slugify turns a display name into a URL-safe identifier.
func Slugify(s string) string {
	s = strings.ToLower(TrimAndNormalize(s))
	s = reSlugInvalid.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// NormalizePromoCode uppercases the code and drops characters outside
// A-Z, 0-9, '-' and '_'. Inner whitespace is removed, so "summer 24" becomes
// "SUMMER24".
func NormalizePromoCode(code string) string {
	return rePromoStrip.ReplaceAllString(strings.ToUpper(strings.TrimSpace(code)), "")
}

// NormalizeTicketType trims a ticket type name; comparisons elsewhere are
// case-insensitive.
func NormalizeTicketType(name string) string {
	return TrimAndNormalize(name)
}
