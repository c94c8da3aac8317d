// Package sanitizer normalizes user input before validation and storage.
//
// All functions are idempotent and never fail: input that cannot be
// normalized comes back empty so the validator can reject it with a proper
// message.
//
//   - Text: trim and collapse whitespace
//   - Emails: trim and lowercase
//   - Phones: E.164 via libphonenumber, with a default region for local numbers
//   - HTML: event descriptions keep safe formatting, everything else is stripped
//   - Promo codes: uppercase A-Z, 0-9, '-' and '_'
//   - Slices: normalized, deduplicated, empties dropped
package sanitizer
