package metrics

import "github.com/prometheus/client_golang/prometheus"

// RetryMetrics counts delayed retries and operations that ran out of attempts.
type RetryMetrics struct {
	retries   *prometheus.CounterVec
	exhausted *prometheus.CounterVec
}

func NewRetryMetrics(reg prometheus.Registerer) *RetryMetrics {
	if reg == nil {
		return &RetryMetrics{}
	}
	retries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "api_retry_total",
		Help: "Delayed retries of remote API operations.",
	}, []string{"operation"})
	exhausted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "api_retry_exhausted_total",
		Help: "Remote API operations that failed after every attempt.",
	}, []string{"operation"})
	reg.MustRegister(retries, exhausted)
	return &RetryMetrics{retries: retries, exhausted: exhausted}
}

func (r *RetryMetrics) IncRetry(operation string) {
	if r == nil || r.retries == nil {
		return
	}
	r.retries.WithLabelValues(normalizeLabel(operation)).Inc()
}

func (r *RetryMetrics) IncExhausted(operation string) {
	if r == nil || r.exhausted == nil {
		return
	}
	r.exhausted.WithLabelValues(normalizeLabel(operation)).Inc()
}
