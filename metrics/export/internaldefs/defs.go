package internaldefs

import (
	"github.com/MrEthical07/ledgergate/internal/metrics"
)

// CounterDef names one gateway counter for export.
type CounterDef struct {
	ID   metrics.ID
	Name string
	Help string
}

// HistogramDef names one gateway histogram for export.
type HistogramDef struct {
	ID   metrics.ID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: metrics.DecodeFailure, Name: "ledgergate_decode_failure_total", Help: "Requests that did not decode."},
	{ID: metrics.UnknownOperation, Name: "ledgergate_unknown_operation_total", Help: "Requests naming an unregistered operation."},
	{ID: metrics.AuthenticationFailure, Name: "ledgergate_authentication_failure_total", Help: "Requests denied for a wrong user or password."},
	{ID: metrics.AuthorizationFailure, Name: "ledgergate_authorization_failure_total", Help: "Requests denied for insufficient permission."},
	{ID: metrics.SessionNotFound, Name: "ledgergate_session_not_found_total", Help: "Requests with a missing or unknown session key."},
	{ID: metrics.SessionNotOwned, Name: "ledgergate_session_not_owned_total", Help: "Requests presenting another user's session."},
	{ID: metrics.SessionExpired, Name: "ledgergate_session_expired_total", Help: "Requests presenting an expired session."},
	{ID: metrics.GuardStoreError, Name: "ledgergate_guard_store_error_total", Help: "Store failures during credential or session checks."},
	{ID: metrics.Authorized, Name: "ledgergate_authorized_total", Help: "Restricted requests that passed every check."},
	{ID: metrics.Dispatched, Name: "ledgergate_dispatched_total", Help: "Handler invocations that completed without error."},
	{ID: metrics.HandlerFailure, Name: "ledgergate_handler_failure_total", Help: "Handler invocations that failed."},
	{ID: metrics.HandlerPanic, Name: "ledgergate_handler_panic_total", Help: "Handler invocations that panicked."},
	{ID: metrics.SessionCreated, Name: "ledgergate_session_created_total", Help: "Sessions created."},
	{ID: metrics.SessionIDCollision, Name: "ledgergate_session_id_collision_total", Help: "Session id collisions retried."},
	{ID: metrics.UserCreated, Name: "ledgergate_user_created_total", Help: "Users created."},
	{ID: metrics.UserCreationRejected, Name: "ledgergate_user_creation_rejected_total", Help: "Rejected user creations."},
	{ID: metrics.PasswordChanged, Name: "ledgergate_password_changed_total", Help: "Password changes committed."},
	{ID: metrics.PasswordRehashed, Name: "ledgergate_password_rehashed_total", Help: "Stored hashes upgraded during login."},
	{ID: metrics.RateLimited, Name: "ledgergate_rate_limited_total", Help: "Requests rejected by the transport rate limiter."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: metrics.DispatchLatency, Name: "ledgergate_dispatch_latency_seconds", Help: "Time from request bytes to response."},
}

// AuditDroppedName is the counter of audit events lost to backpressure.
const AuditDroppedName = "ledgergate_audit_dropped_total"

// AuditDroppedHelp describes AuditDroppedName.
const AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."

// UpperBounds are the finite bucket bounds in seconds. The last bucket of a
// snapshot is +Inf.
var UpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, +Inf included, for exporters that
// publish one instrument per bucket.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed-size array, padding with zeros.
func NormalizeBuckets(raw []uint64) [metrics.BucketCount]uint64 {
	var out [metrics.BucketCount]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [metrics.BucketCount]uint64) [metrics.BucketCount]uint64 {
	var out [metrics.BucketCount]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
