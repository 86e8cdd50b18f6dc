package store

import "errors"

var (
	// ErrNotFound is returned when a lookup by id or email matches no row.
	ErrNotFound = errors.New("user not found")

	// ErrDuplicate is returned when an insert or update trips the unique
	// constraint on email or phone. The database constraint is the
	// authoritative uniqueness check; pre-insert lookups only exist to
	// produce friendlier messages.
	ErrDuplicate = errors.New("duplicate user")
)
