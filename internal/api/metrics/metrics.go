// Package metrics defines the custom Prometheus metrics of the user service.
// It is the single source of truth for metric names, labels, and help strings.
//
// All collectors register with the default registry at package init; HTTP
// request metrics come from the echoprometheus middleware.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/wareable/user-service/internal/core/ports"
	"github.com/wareable/user-service/internal/infrastructure/logsink"
)

const namespace = "usersvc"

// ── Authentication ───────────────────────────────────────────────────────────

// SigninTotal counts signin attempts.
// Label:
//   - result: "success", "invalid", "invalid_credentials", "locked", "error"
var SigninTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signin_total",
		Help:      "Total number of signin attempts, by result.",
	},
	[]string{"result"},
)

// SignupTotal counts signup attempts.
// Label:
//   - result: "created", "conflict", "invalid", "error"
var SignupTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signup_total",
		Help:      "Total number of signup attempts, by result.",
	},
	[]string{"result"},
)

// TokenValidationsTotal counts bearer token checks.
// Label:
//   - result: "valid", "missing", "expired", "invalid"
var TokenValidationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_validations_total",
		Help:      "Total number of session token validations, by result.",
	},
	[]string{"result"},
)

// PasswordHashDuration measures bcrypt work.
// Label:
//   - op: "hash", "verify", "burn"
var PasswordHashDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "password_hash_duration_seconds",
		Help:      "Duration of password hashing and verification.",
		Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1},
	},
	[]string{"op"},
)

// ── Authorization ────────────────────────────────────────────────────────────

// PermissionChecksTotal counts policy decisions.
// Label:
//   - result: "allowed" or "denied"
var PermissionChecksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "permission_checks_total",
		Help:      "Total number of permission checks, by decision.",
	},
	[]string{"result"},
)

// PermissionResult returns the label value for a policy decision.
func PermissionResult(allowed bool) string {
	if allowed {
		return "allowed"
	}
	return "denied"
}

// ── Log shipping ─────────────────────────────────────────────────────────────

var registerLogSink sync.Once

// RegisterLogSink exposes the shipper counters as
// usersvc_logsink_entries_total{result}. Only the first call registers.
func RegisterLogSink(s *logsink.Shipper) {
	registerLogSink.Do(func() {
		results := map[string]func(logsink.Stats) int64{
			"shipped": func(st logsink.Stats) int64 { return st.Shipped },
			"dropped": func(st logsink.Stats) int64 { return st.Dropped },
			"failed":  func(st logsink.Stats) int64 { return st.Failed },
		}
		for result, pick := range results {
			promauto.NewCounterFunc(
				prometheus.CounterOpts{
					Namespace:   namespace,
					Name:        "logsink_entries_total",
					Help:        "Total number of audit log entries, by shipping outcome.",
					ConstLabels: prometheus.Labels{"result": result},
				},
				func() float64 { return float64(pick(s.Stats())) },
			)
		}
	})
}

// ── Instrumented hasher ──────────────────────────────────────────────────────

type timedHasher struct {
	next ports.PasswordHasher
}

// InstrumentHasher records PasswordHashDuration around every call to h.
func InstrumentHasher(h ports.PasswordHasher) ports.PasswordHasher {
	return timedHasher{next: h}
}

func (t timedHasher) Hash(plaintext string) (string, error) {
	defer observe("hash", time.Now())
	return t.next.Hash(plaintext)
}

func (t timedHasher) Verify(plaintext, hash string) bool {
	defer observe("verify", time.Now())
	return t.next.Verify(plaintext, hash)
}

func (t timedHasher) Burn(plaintext string) {
	defer observe("burn", time.Now())
	t.next.Burn(plaintext)
}

func observe(op string, start time.Time) {
	PasswordHashDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
