package errors

import "errors"

var (
	ErrNotFound = errors.New("organization not found")

	ErrInvalidID = errors.New("invalid organization ID format")

	ErrRoleNotFound = errors.New("role not found")

	ErrDuplicateRole = errors.New("role name already exists")

	ErrMemberNotFound = errors.New("member not found")

	ErrDuplicateMember = errors.New("user is already a member")
)
