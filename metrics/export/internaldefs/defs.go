package internaldefs

import (
	"strconv"
	"strings"

	goSession "github.com/MrEthical07/goSession"
)

const Namespace = "gosession"

// CounterDef maps an engine counter to its exported series.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef maps an engine histogram to its exported series.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: goSession.MetricLoginSuccess, Name: "gosession_login_success_total", Help: "Successful logins."},
	{ID: goSession.MetricLoginFailure, Name: "gosession_login_failure_total", Help: "Failed logins."},
	{ID: goSession.MetricSessionIssued, Name: "gosession_session_issued_total", Help: "Sessions issued."},
	{ID: goSession.MetricRefreshSuccess, Name: "gosession_refresh_success_total", Help: "Successful refresh token rotations."},
	{ID: goSession.MetricRefreshFailure, Name: "gosession_refresh_failure_total", Help: "Rejected or failed refresh token rotations."},
	{ID: goSession.MetricRefreshSuperseded, Name: "gosession_refresh_superseded_total", Help: "Strict rotations that lost a race to a concurrent rotation."},
	{ID: goSession.MetricSessionEnded, Name: "gosession_session_ended_total", Help: "Sessions ended by logout."},
	{ID: goSession.MetricAuthorizeSuccess, Name: "gosession_authorize_success_total", Help: "Authorized requests."},
	{ID: goSession.MetricAuthorizeFailure, Name: "gosession_authorize_failure_total", Help: "Rejected requests."},
	{ID: goSession.MetricAuthorizeRevoked, Name: "gosession_authorize_revoked_total", Help: "Requests rejected because the access token was revoked."},
	{ID: goSession.MetricStoreError, Name: "gosession_store_error_total", Help: "Operations failed because the token store was unavailable."},
}

var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricAuthorizeLatency, Name: "gosession_authorize_latency_seconds", Help: "Authorize latency."},
}

const (
	AuditDroppedName = "gosession_audit_dropped_total"
	AuditDroppedHelp = "Audit events dropped due to dispatcher backpressure."
)

// BucketCount is the number of histogram slots including the overflow bucket.
const BucketCount = len(goSession.HistogramBucketBounds) + 1

// UpperBounds returns the finite bucket bounds in seconds.
func UpperBounds() []float64 {
	out := make([]float64, len(goSession.HistogramBucketBounds))
	for i, b := range goSession.HistogramBucketBounds {
		out[i] = b.Seconds()
	}
	return out
}

// BoundSuffix renders a bound for use in an instrument name: 0.005 -> "0_005".
func BoundSuffix(i int) string {
	bounds := UpperBounds()
	if i >= len(bounds) {
		return "inf"
	}
	return strings.ReplaceAll(strconv.FormatFloat(bounds[i], 'f', -1, 64), ".", "_")
}

// NormalizeBuckets copies raw into a slice of exactly BucketCount slots.
func NormalizeBuckets(raw []uint64) []uint64 {
	out := make([]uint64, BucketCount)
	copy(out, raw)
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals. The last element is the
// sample count.
func CumulativeBuckets(raw []uint64) []uint64 {
	out := make([]uint64, len(raw))
	var running uint64
	for i, v := range raw {
		running += v
		out[i] = running
	}
	return out
}
