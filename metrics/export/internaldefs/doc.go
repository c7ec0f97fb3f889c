// Package internaldefs holds the metric names and bucket layout shared by the
// Prometheus and OTel exporters, so both publish identical series.
package internaldefs
