package bus

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts published entries by result.
type Metrics struct {
	entriesTotal *prometheus.CounterVec
	callsTotal   prometheus.Counter
}

// NewMetrics registers the publisher metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		entriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_publish_entries_total",
			Help: "Total number of bus entries by result (accepted, failed, error).",
		}, []string{"result"}),
		callsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_publish_calls_total",
			Help: "Total number of PutEvents calls issued.",
		}),
	}
	reg.MustRegister(m.entriesTotal, m.callsTotal)
	return m
}

func (m *Metrics) observe(result string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.entriesTotal.WithLabelValues(result).Add(float64(n))
}

func (m *Metrics) call() {
	if m == nil {
		return
	}
	m.callsTotal.Inc()
}
