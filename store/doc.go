// Package store provides the shared counter store consulted by the admission
// controller: a keyed counter whose lifetime is fixed when the key is first
// created.
//
// # Implementations
//
//   - [Redis] shares counters across every service instance. The whole
//     check-and-increment runs as one Lua script, so concurrent requests for
//     the same key are serialized by Redis itself.
//   - [Memory] keeps counters in process, expiring them against a
//     [clock.Clock]. It suits single-instance deployments and tests.
//
// Neither implementation extends a key's TTL after creation and neither runs a
// background cleanup task; expiry alone resets a window.
package store
