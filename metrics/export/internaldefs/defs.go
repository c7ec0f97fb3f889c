package internaldefs

import (
	"github.com/fittude/fitauth"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   fitauth.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for exporters.
type HistogramDef struct {
	ID   fitauth.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: fitauth.MetricSessionIssued, Name: "fitauth_session_issued_total", Help: "Session credentials minted."},
	{ID: fitauth.MetricRefreshIssued, Name: "fitauth_refresh_issued_total", Help: "Refresh credentials minted."},
	{ID: fitauth.MetricRenewSuccess, Name: "fitauth_renew_success_total", Help: "Refresh credentials exchanged for a session credential."},
	{ID: fitauth.MetricRenewFailure, Name: "fitauth_renew_failure_total", Help: "Rejected renew attempts."},
	{ID: fitauth.MetricValidateSuccess, Name: "fitauth_validate_success_total", Help: "Session credentials accepted."},
	{ID: fitauth.MetricValidateExpired, Name: "fitauth_validate_expired_total", Help: "Credentials rejected as expired."},
	{ID: fitauth.MetricValidateTampered, Name: "fitauth_validate_tampered_total", Help: "Credentials rejected for signature or class mismatch."},
	{ID: fitauth.MetricValidateUnknown, Name: "fitauth_validate_unknown_total", Help: "Credentials that could not be decoded."},
	{ID: fitauth.MetricMissingCredential, Name: "fitauth_missing_credential_total", Help: "Requests without a required credential."},
	{ID: fitauth.MetricAdmitted, Name: "fitauth_admitted_total", Help: "Requests passed by admission control."},
	{ID: fitauth.MetricRateLimited, Name: "fitauth_rate_limited_total", Help: "Requests rejected by admission control."},
	{ID: fitauth.MetricCounterStoreError, Name: "fitauth_counter_store_error_total", Help: "Admission checks that could not reach the counter store."},
	{ID: fitauth.MetricLogout, Name: "fitauth_logout_total", Help: "Refresh cookie deletions."},
	{ID: fitauth.MetricAuditDropped, Name: AuditDroppedName, Help: "Audit events dropped on a full dispatcher buffer or an ended context."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: fitauth.MetricValidateLatency, Name: "fitauth_validate_latency_seconds", Help: "Session credential validation latency."},
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const AuditDroppedName = "fitauth_audit_dropped_total"

// BucketCount is the number of histogram buckets including +Inf.
const BucketCount = 8

// UpperBounds returns the finite bucket bounds in seconds.
func UpperBounds() []float64 {
	bounds := fitauth.HistogramBounds()
	out := make([]float64, len(bounds))
	for i, d := range bounds {
		out[i] = d.Seconds()
	}
	return out
}

// BoundSuffix names each bucket in instrument names, +Inf last.
var BoundSuffix = [BucketCount]string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates raw to BucketCount entries.
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	copy(out[:], raw)
	return out
}

// CumulativeBuckets converts per-bucket counts to running totals.
func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i, v := range raw {
		running += v
		out[i] = running
	}
	return out
}
