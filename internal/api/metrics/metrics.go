// Package metrics defines the Prometheus metrics for the marketing access
// layer. It is the single place metric names, labels and help strings live.
//
// Metrics register with the default registry on package init via promauto.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "marketing_access"

// ── Authentication ────────────────────────────────────────────────────────────

// LoginAttemptsTotal counts login submissions.
// Label:
//   - result: "success", "invalid_input", "rejected", "timeout", "unreachable", "malformed" or "session_error"
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// LogoutsTotal counts logouts.
// Label:
//   - remote: "ok" when the authority acknowledged the token invalidation, "failed" otherwise
var LogoutsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logouts_total",
		Help:      "Total number of logouts, by remote invalidation outcome.",
	},
	[]string{"remote"},
)

// SessionsInvalidTotal counts requests whose session carried a token but no usable user.
var SessionsInvalidTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_invalid_total",
		Help:      "Total number of sessions rejected for missing identity data.",
	},
)

// ── Authorization ─────────────────────────────────────────────────────────────

// PermissionDecisionsTotal counts guard outcomes.
// Labels:
//   - mode: "one", "any" or "all"
//   - decision: "granted", "denied" or "unknown"
var PermissionDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "permission_decisions_total",
		Help:      "Total number of permission guard decisions.",
	},
	[]string{"mode", "decision"},
)

// ── Authority ─────────────────────────────────────────────────────────────────

// AuthorityRequestDuration measures round trips to the RBAC authority.
// Labels:
//   - op: "login", "check-permission", "check-permissions", "user-info" or "logout"
//   - outcome: "ok", "rejected", "timeout" or "unreachable"
var AuthorityRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "authority_request_duration_seconds",
		Help:      "Duration of calls to the RBAC authority.",
		Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	},
	[]string{"op", "outcome"},
)

// ObserveAuthority matches the rbac client observer signature.
func ObserveAuthority(op, outcome string, elapsed time.Duration) {
	AuthorityRequestDuration.WithLabelValues(op, outcome).Observe(elapsed.Seconds())
}
