// Package metrics exposes Prometheus collectors for verification attempts and
// store operations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	verifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendance",
		Name:      "verifications_total",
		Help:      "Verification attempts by provider and outcome status.",
	}, []string{"provider", "status"})

	verificationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "attendance",
		Name:      "verification_duration_seconds",
		Help:      "Round trip time of a single recognition call.",
		Buckets:   []float64{0.5, 1, 2, 4, 8, 15, 30, 60},
	}, []string{"provider"})

	storeOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendance",
		Name:      "store_operations_total",
		Help:      "Store operations by entity, operation and result (ok, denied, swallowed, failed).",
	}, []string{"entity", "op", "result"})

	recognitionTokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendance",
		Name:      "recognition_tokens_total",
		Help:      "Tokens consumed by the recognition provider.",
	}, []string{"provider", "direction"})
)

// Store operation results.
const (
	ResultOK        = "ok"
	ResultDenied    = "denied"
	ResultSwallowed = "swallowed"
	ResultFailed    = "failed"
)

// ObserveVerification records one verification attempt.
func ObserveVerification(provider, status string, elapsed time.Duration) {
	verifications.WithLabelValues(provider, status).Inc()
	verificationDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// ObserveStore records one store operation.
func ObserveStore(entity, op, result string) {
	storeOperations.WithLabelValues(entity, op, result).Inc()
}

// ObserveTokens records token usage reported by a provider.
func ObserveTokens(provider string, input, output int) {
	recognitionTokens.WithLabelValues(provider, "input").Add(float64(input))
	recognitionTokens.WithLabelValues(provider, "output").Add(float64(output))
}
