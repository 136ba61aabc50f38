package userprofile

import "errors"

// Predefined errors for the userprofile package.
var (
	// ErrProfileNotFound indicates no profile is stored for the user id.
	ErrProfileNotFound = errors.New("user profile not found")

	// ErrEmptyUserID indicates a lookup or save with an empty user id.
	ErrEmptyUserID = errors.New("empty user id")

	// ErrStoreUnavailable wraps backend failures (e.g. Redis connectivity).
	// Callers log it and proceed without caching.
	ErrStoreUnavailable = errors.New("profile store unavailable")

	// ErrClientNil is returned when a nil Redis client is provided.
	ErrClientNil = errors.New("redis client cannot be nil")
)
