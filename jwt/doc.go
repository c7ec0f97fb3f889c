// Package jwt encodes and verifies the compact signed credentials carried by
// fitauth: short-lived session credentials and longer-lived refresh credentials.
//
// Each credential class is signed with its own symmetric secret, so a leaked
// session secret cannot mint refresh credentials and vice versa. Encoding and
// decoding are pure functions of their inputs plus the configured secrets; the
// caller always supplies the instant used for expiry math.
//
// # Time granularity
//
// Expiry travels as a standard NumericDate at whole-second precision, so the
// embedded expiry is now+ttl truncated to the second. A credential issued at
// a fractional second therefore expires up to one second before now+ttl.
// It is valid while the decode instant is strictly before the embedded
// expiry. Callers that report an expiry instant should truncate the same way.
package jwt
