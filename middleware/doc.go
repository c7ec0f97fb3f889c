// Package middleware adapts [fitauth.Engine] to net/http.
//
// # Chain
//
//   - [RequestID] tags every request with an X-Request-ID.
//   - [AccessLog] writes one zerolog line per request.
//   - [Admission] runs the per-client request limit before any handler.
//   - [Guard] requires a valid Bearer session credential and binds its subject.
//
// [StatusCode] and [WriteError] are the single mapping from fitauth errors to
// HTTP status codes and response bodies.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does not parse
// credentials or touch the counter store itself.
package middleware
