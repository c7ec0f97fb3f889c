package rate

import "errors"

var (
	// ErrLimited is returned when the identity has used its whole window.
	ErrLimited = errors.New("rate limited")
	// ErrStoreUnavailable is returned when the counter store cannot be consulted.
	ErrStoreUnavailable = errors.New("counter store unavailable")
)
