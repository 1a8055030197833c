package octree

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Generation batch kinds used as metric labels.
const (
	batchInitial   = "initial"
	batchObstacles = "obstacles"
)

// Metrics instruments volume generation.
type Metrics struct {
	generationDuration *prometheus.HistogramVec
	regeneratedRoots   *prometheus.CounterVec
	obstacleTicks      *prometheus.CounterVec
}

// NewMetrics registers volume metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		generationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "voxpath",
			Subsystem: "volume",
			Name:      "generation_duration_seconds",
			Help:      "Duration of generation batches.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"kind"}),
		regeneratedRoots: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voxpath",
			Subsystem: "volume",
			Name:      "regenerated_roots_total",
			Help:      "Root trees regenerated.",
		}, []string{"kind"}),
		obstacleTicks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voxpath",
			Subsystem: "volume",
			Name:      "obstacle_ticks_total",
			Help:      "Dynamic obstacle update ticks by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) observeBatch(kind string, roots int, took time.Duration) {
	if m == nil {
		return
	}
	m.generationDuration.WithLabelValues(kind).Observe(took.Seconds())
	m.regeneratedRoots.WithLabelValues(kind).Add(float64(roots))
}

func (m *Metrics) obstacleTick(outcome string) {
	if m == nil {
		return
	}
	m.obstacleTicks.WithLabelValues(outcome).Inc()
}
