package errors

import "errors"

var (
	ErrNotFound = errors.New("promo code not found")

	ErrInvalidID = errors.New("invalid promo code ID format")

	ErrDuplicateCode = errors.New("promo code already exists for this event")

	// ErrUnavailable is returned when a conditional redemption matched no
	// document: the code was deactivated or its uses ran out concurrently.
	ErrUnavailable = errors.New("promo code is no longer available")
)

// Reasons a code cannot be applied, reported by Evaluate.
var (
	ErrInactive      = errors.New("promo code is not active")
	ErrNotStarted    = errors.New("promo code is not valid yet")
	ErrExpired       = errors.New("promo code has expired")
	ErrExhausted     = errors.New("promo code has no uses left")
	ErrNotApplicable = errors.New("promo code does not apply to this ticket type")
)
