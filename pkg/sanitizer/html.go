package sanitizer

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	richTextPolicy = newRichTextPolicy()
	plainPolicy    = bluemonday.StrictPolicy()
)

func newRichTextPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.AllowURLSchemes("http", "https", "mailto")
	return p
}

// SanitizeRichText keeps basic formatting (paragraphs, lists, links, emphasis)
// and strips scripts, styles and event handlers. Used for event descriptions.
func SanitizeRichText(s string) string {
	return strings.TrimSpace(richTextPolicy.Sanitize(s))
}

// StripHTML removes all markup and returns plain text with whitespace
// collapsed. Used for notes and notification text.
func StripHTML(s string) string {
	return TrimAndNormalize(html.UnescapeString(plainPolicy.Sanitize(s)))
}
