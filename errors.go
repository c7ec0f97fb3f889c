package fitauth

import "errors"

var (
	// ErrMissingCredential is returned when a required credential is absent from the request.
	ErrMissingCredential = errors.New("credential missing")
	// ErrTamperedCredential is returned when a credential's signature does not verify.
	ErrTamperedCredential = errors.New("credential invalid")
	// ErrExpiredCredential is returned when a correctly signed credential is past its expiry.
	ErrExpiredCredential = errors.New("credential expired")
	// ErrUnknownAuth is returned when the codec fails in a way not covered above,
	// such as a credential that is not decodable at all.
	ErrUnknownAuth = errors.New("unknown authentication error")
	// ErrRequestLimitExceeded is returned when admission control rejects a request.
	ErrRequestLimitExceeded = errors.New("request limit exceeded")
	// ErrCounterStoreUnavailable is returned when admission control cannot reach its store.
	ErrCounterStoreUnavailable = errors.New("counter store unavailable")
	// ErrInvalidLogin is returned by login collaborators for unknown users or wrong passwords.
	ErrInvalidLogin = errors.New("invalid credentials")
	// ErrEngineNotReady is returned when an Engine method is called on a nil or unbuilt engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
