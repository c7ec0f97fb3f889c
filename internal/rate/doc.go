// Package rate implements the fixed-window admission algorithm on top of a
// [store.CounterStore].
//
// # Window semantics
//
// One counter per client identity under "<prefix>:<identity>". The first hit
// creates the counter with the window as TTL; hits are admitted while the
// count is below MaxRequests; the window resets only when the key expires.
// A client can therefore burst up to 2×MaxRequests across a window boundary.
//
// # What this package must NOT do
//
//   - Know about HTTP or how identities are derived (middleware owns that).
//   - Retry store failures; they surface as ErrStoreUnavailable.
package rate
