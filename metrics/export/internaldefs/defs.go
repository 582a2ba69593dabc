package internaldefs

import (
	"strconv"

	"github.com/MrEthical07/idrelay"
)

// CounterDef names one relay counter for export.
type CounterDef struct {
	ID   idrelay.MetricID
	Name string
	Help string
}

// HistogramDef names one relay histogram for export.
type HistogramDef struct {
	ID   idrelay.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: idrelay.MetricLoginSuccess, Name: "idrelay_login_success_total", Help: "Completed logins."},
	{ID: idrelay.MetricLoginFailure, Name: "idrelay_login_failure_total", Help: "Rejected login callbacks."},
	{ID: idrelay.MetricLoginRateLimited, Name: "idrelay_login_rate_limited_total", Help: "Login callbacks refused by the attempt limiter."},
	{ID: idrelay.MetricCredentialIssued, Name: "idrelay_credential_issued_total", Help: "Signed session credentials."},
	{ID: idrelay.MetricVerifySuccess, Name: "idrelay_verify_success_total", Help: "Accepted credentials."},
	{ID: idrelay.MetricVerifyAbsent, Name: "idrelay_verify_absent_total", Help: "Requests without a credential cookie."},
	{ID: idrelay.MetricVerifyMalformed, Name: "idrelay_verify_malformed_total", Help: "Malformed credentials."},
	{ID: idrelay.MetricVerifyBadSignature, Name: "idrelay_verify_bad_signature_total", Help: "Credentials with a bad signature or algorithm."},
	{ID: idrelay.MetricVerifyExpired, Name: "idrelay_verify_expired_total", Help: "Expired credentials."},
	{ID: idrelay.MetricVerifyRevoked, Name: "idrelay_verify_revoked_total", Help: "Denylisted credentials."},
	{ID: idrelay.MetricLogout, Name: "idrelay_logout_total", Help: "Logouts."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: idrelay.MetricVerifyLatency, Name: "idrelay_verify_latency_seconds", Help: "Authenticate latency."},
}

const (
	AuditDroppedName = "idrelay_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

// UpperBounds are the finite bucket bounds in seconds. The eighth bucket is +Inf.
var UpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// BucketLabels holds the "le" value of each bucket, +Inf included.
var BucketLabels = bucketLabels()

func bucketLabels() []string {
	out := make([]string, 0, len(UpperBounds)+1)
	for _, b := range UpperBounds {
		out = append(out, strconv.FormatFloat(b, 'g', -1, 64))
	}
	return append(out, "+Inf")
}

// NormalizeBuckets copies raw into a fixed array, zero filling.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
