// Package metrics exposes Prometheus counters for security-relevant
// failure channels that must not interrupt the primary operation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuditWriteFailures counts audit log writes that failed. The triggering
	// operation proceeds regardless, so this counter is the durable signal.
	AuditWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "credcore_audit_write_failures_total",
		Help: "Number of audit event writes that failed.",
	})

	// RateLimitRejections counts throttled requests by action.
	RateLimitRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "credcore_rate_limit_rejections_total",
		Help: "Number of requests rejected by the rate limiter.",
	}, []string{"action"})

	// LoginLockouts counts accounts temporarily locked after repeated
	// failed logins.
	LoginLockouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "credcore_login_lockouts_total",
		Help: "Number of login attempts rejected due to account lockout.",
	})
)
