package distancefield

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records distance field construction and queries. A nil *Metrics records nothing.
type Metrics struct {
	grids       *prometheus.CounterVec
	fitAttempts prometheus.Counter
	fitFailures prometheus.Counter
	queries     prometheus.Counter
	duration    prometheus.Histogram
}

// NewMetrics registers the distance field metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		grids: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "distancefield_grids_built_total",
			Help: "Distance grids built, by link role",
		}, []string{"role"}),
		fitAttempts: factory.NewCounter(prometheus.CounterOpts{
			Name: "distancefield_sphere_fit_attempts_total",
			Help: "Sphere fits attempted for active links",
		}),
		fitFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "distancefield_sphere_fit_failures_total",
			Help: "Active links left without a sphere approximation",
		}),
		queries: factory.NewCounter(prometheus.CounterOpts{
			Name: "distancefield_self_queries_total",
			Help: "Self distance queries answered",
		}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "distancefield_self_query_duration_seconds",
			Help:    "Time spent answering self distance queries",
			Buckets: prometheus.ExponentialBuckets(1e-5, 4, 10),
		}),
	}
}

func (m *Metrics) observeGrid(role Role) {
	if m == nil {
		return
	}
	m.grids.WithLabelValues(role.String()).Inc()
}

func (m *Metrics) observeFitAttempt() {
	if m == nil {
		return
	}
	m.fitAttempts.Inc()
}

func (m *Metrics) observeFitFailure() {
	if m == nil {
		return
	}
	m.fitFailures.Inc()
}

func (m *Metrics) observeQuery(seconds float64) {
	if m == nil {
		return
	}
	m.queries.Inc()
	m.duration.Observe(seconds)
}
