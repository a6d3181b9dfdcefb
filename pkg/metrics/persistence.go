package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PersistenceMetrics records the outcome of writes to the local store.
type PersistenceMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
}

// NewPersistenceMetrics registers the store write metrics on the provided registerer.
func NewPersistenceMetrics(reg prometheus.Registerer) *PersistenceMetrics {
	if reg == nil {
		return &PersistenceMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "store_write_duration_seconds",
		Help:    "Duration of local store writes in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"key"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "store_write_success",
		Help: "Successful local store writes.",
	}, []string{"key"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "store_write_failure",
		Help: "Failed local store writes.",
	}, []string{"key"})
	reg.MustRegister(duration, success, failure)
	return &PersistenceMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
	}
}

// ObserveWrite records one write attempt against key.
func (p *PersistenceMetrics) ObserveWrite(key string, duration time.Duration, err error) {
	if p == nil || p.duration == nil {
		return
	}
	label := normalizeLabel(key)
	p.duration.WithLabelValues(label).Observe(duration.Seconds())
	if err != nil {
		p.failure.WithLabelValues(label).Inc()
		return
	}
	p.success.WithLabelValues(label).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
