package notifier

import (
	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

const (
	msgGuestsImported = "%d guests were imported to %s."
	msgOrderAdded     = "Order %s registered %d guests for %s."
	msgPromoUsage     = "Used %d times."
	msgPromoUsageOf   = "Used %d of %d times."
)

func newPrinter() *message.Printer {
	b := catalog.NewBuilder()
	_ = b.Set(language.English, msgGuestsImported,
		plural.Selectf(1, "%d",
			plural.One, "1 guest was imported to %[2]s.",
			plural.Other, "%[1]d guests were imported to %[2]s."))
	_ = b.Set(language.English, msgOrderAdded,
		plural.Selectf(2, "%d",
			plural.One, "Order %[1]s registered 1 guest for %[3]s.",
			plural.Other, "Order %[1]s registered %[2]d guests for %[3]s."))
	_ = b.Set(language.English, msgPromoUsage,
		plural.Selectf(1, "%d",
			plural.One, "Used once.",
			plural.Other, "Used %[1]d times."))
	_ = b.Set(language.English, msgPromoUsageOf,
		plural.Selectf(1, "%d",
			plural.One, "Used 1 of %[2]d times.",
			plural.Other, "Used %[1]d of %[2]d times."))
	return message.NewPrinter(language.English, message.Catalog(b))
}
