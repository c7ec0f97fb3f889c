// Package prometheus exposes fitauth engine counters through
// prometheus/client_golang.
//
// [Collector] registers on any registry; [Collector.Handler] builds a private
// registry and serves it with promhttp. Counter names are fitauth_*_total and
// the single histogram is fitauth_validate_latency_seconds.
package prometheus
