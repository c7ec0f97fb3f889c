// Package fitauth is the authentication session lifecycle and request
// admission-control core of the FitTude API.
//
// It issues, validates and renews two credential classes: a short-lived
// session credential sent as a bearer token, and a longer-lived refresh
// credential held in an http-only cookie. It also bounds the request rate of
// each client through a fixed-window counter shared across instances.
//
// Engine methods are safe to call from multiple goroutines after
// [Builder.Build]. The engine keeps no per-session state in memory; every
// instance configured with the same secrets validates and renews credentials
// minted by any other.
//
// # Architecture boundaries
//
// fitauth is the public surface: [Engine], [Builder], [Config], the error
// sentinels, audit and metrics types. Signing lives in jwt/, the counter
// primitive in store/, the admission algorithm in internal/rate, and HTTP
// composition in middleware/ and httpapi/.
//
// # Revocation
//
// Logout clears the client's refresh cookie only. A refresh credential
// captured before logout stays valid until its own expiry; there is no
// server-side denylist.
package fitauth
