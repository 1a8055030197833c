package pathfind

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics instruments the worker pool.
type Metrics struct {
	requests       *prometheus.CounterVec
	searchDuration prometheus.Histogram
	pending        prometheus.Gauge
	restarts       prometheus.Counter
}

// NewMetrics registers pathfinding metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voxpath",
			Subsystem: "pathfind",
			Name:      "requests_total",
			Help:      "Completed path requests by fail reason.",
		}, []string{"reason"}),
		searchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "voxpath",
			Subsystem: "pathfind",
			Name:      "search_duration_seconds",
			Help:      "Time spent inside the search engine per request.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 3, 10),
		}),
		pending: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "voxpath",
			Subsystem: "pathfind",
			Name:      "pending_requests",
			Help:      "Requests assigned to workers and not yet finished.",
		}),
		restarts: f.NewCounter(prometheus.CounterOpts{
			Namespace: "voxpath",
			Subsystem: "pathfind",
			Name:      "worker_restarts_total",
			Help:      "Workers recreated after crashing.",
		}),
	}
}

func (m *Metrics) observe(reason FailReason, took time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(reason.String()).Inc()
	m.searchDuration.Observe(took.Seconds())
}

func (m *Metrics) addPending(n int) {
	if m == nil {
		return
	}
	m.pending.Add(float64(n))
}

func (m *Metrics) restarted() {
	if m == nil {
		return
	}
	m.restarts.Inc()
}
