package repository

import "errors"

var (
	// ErrNotFound indicates an entity was not located.
	ErrNotFound = errors.New("repository: not found")

	// ErrDuplicateMembership indicates a membership already exists for
	// the (user, scope) pair. A single role per user per scope is an
	// invariant; hitting this means a bug in the calling path.
	ErrDuplicateMembership = errors.New("repository: duplicate membership")

	// ErrDuplicateEmail indicates a user row already exists for the
	// email address.
	ErrDuplicateEmail = errors.New("repository: duplicate email")
)
