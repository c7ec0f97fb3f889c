// Package otel bridges fitauth engine counters into an OpenTelemetry meter.
//
// The exporter registers observable instruments with the same names the
// Prometheus collector uses and reads one engine snapshot per collection.
package otel
