package collision

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcomes of a candidate pair, used as the bounded "outcome" label.
const (
	outcomeSameObject = "same_object"
	outcomeInactive   = "inactive"
	outcomeACM        = "acm"
	outcomeTouchLink  = "touch_link"
	outcomeMeasured   = "measured"
	outcomeEarlyExit  = "early_exit"
	outcomeError      = "error"
)

// Metrics counts what the distance callback did with every candidate pair. A nil *Metrics records nothing.
type Metrics struct {
	pairs      *prometheus.CounterVec
	collisions prometheus.Counter
}

// NewMetrics registers the callback metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		pairs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "collision_candidate_pairs_total",
			Help: "Candidate pairs handled by the distance callback",
		}, []string{"outcome"}),
		collisions: factory.NewCounter(prometheus.CounterOpts{
			Name: "collision_contacts_total",
			Help: "Measured pairs at zero or negative distance",
		}),
	}
}

func (m *Metrics) observe(outcome string) {
	if m == nil {
		return
	}
	m.pairs.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeContact() {
	if m == nil {
		return
	}
	m.collisions.Inc()
}
