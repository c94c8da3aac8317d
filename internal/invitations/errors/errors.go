package errors

import "errors"

var (
	ErrNotFound = errors.New("invitation not found")

	ErrInvalidID = errors.New("invalid invitation ID format")

	// ErrStatusChanged means a conditional status transition matched nothing
	// because another request moved the invitation first.
	ErrStatusChanged = errors.New("invitation status changed")
)
