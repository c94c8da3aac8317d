package errors

import "errors"

var (
	ErrNotFound = errors.New("guest not found")

	ErrInvalidID = errors.New("invalid guest ID format")

	ErrDuplicateEmail = errors.New("guest email already registered for this event")

	// ErrCheckInUnchanged is returned when a guest is already in the requested
	// check-in state.
	ErrCheckInUnchanged = errors.New("guest check-in state unchanged")

	ErrRegistrationLocked = errors.New("event registration is locked")
)
