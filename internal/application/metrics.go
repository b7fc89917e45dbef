package application

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/studykit/session-integrity/internal/domain"
)

// Metrics instruments the validation path. All methods are nil-safe so the
// service works without a registry in tests.
type Metrics struct {
	verdicts *prometheus.CounterVec
	flags    *prometheus.CounterVec
	degraded prometheus.Counter
	latency  prometheus.Histogram
}

// NewMetrics creates and registers the engine metrics
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "session_integrity",
			Subsystem: "engine",
			Name:      "verdicts_total",
			Help:      "Total verdicts by risk level.",
		}, []string{"risk_level"}),

		flags: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "session_integrity",
			Subsystem: "engine",
			Name:      "flags_total",
			Help:      "Total risk flags raised by code.",
		}, []string{"code"}),

		degraded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "session_integrity",
			Subsystem: "engine",
			Name:      "degraded_reads_total",
			Help:      "Historical reads that failed or timed out and were treated as insufficient data.",
		}),

		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "session_integrity",
			Subsystem: "engine",
			Name:      "validation_latency_seconds",
			Help:      "End-to-end session validation latency in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}

	reg.MustRegister(m.verdicts, m.flags, m.degraded, m.latency)
	return m
}

func (m *Metrics) observeVerdict(v *domain.FraudVerdict, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.verdicts.WithLabelValues(string(v.RiskLevel)).Inc()
	for _, f := range v.Flags {
		m.flags.WithLabelValues(string(f.Code)).Inc()
	}
	m.latency.Observe(elapsed.Seconds())
}

func (m *Metrics) observeDegradedRead() {
	if m == nil {
		return
	}
	m.degraded.Inc()
}
