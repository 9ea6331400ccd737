package drain

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds drain loop counters. A nil *Metrics records nothing.
type Metrics struct {
	cyclesTotal        *prometheus.CounterVec
	cycleDuration      prometheus.Histogram
	receivedTotal      prometheus.Counter
	processedTotal     prometheus.Counter
	deletedTotal       prometheus.Counter
	duplicatesTotal    prometheus.Counter
	decodeErrorsTotal  prometheus.Counter
	quarantinedTotal   prometheus.Counter
	receiveErrorsTotal prometheus.Counter
	deleteErrorsTotal  prometheus.Counter
	lagSeconds         prometheus.Gauge
}

// NewMetrics registers the drain metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_drain_cycles_total",
			Help: "Total number of drain cycles by outcome.",
		}, []string{"outcome"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "relay_drain_cycle_duration_seconds",
			Help:    "Duration of drain cycles in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		receivedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_drain_received_total",
			Help: "Total number of messages received from the queue.",
		}),
		processedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_drain_processed_total",
			Help: "Total number of student events processed.",
		}),
		deletedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_drain_deleted_total",
			Help: "Total number of messages deleted from the queue.",
		}),
		duplicatesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_drain_duplicates_total",
			Help: "Total number of redelivered messages skipped.",
		}),
		decodeErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_drain_decode_errors_total",
			Help: "Total number of messages that could not be decoded.",
		}),
		quarantinedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_drain_quarantined_total",
			Help: "Total number of undecodable messages written to quarantine.",
		}),
		receiveErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_drain_receive_errors_total",
			Help: "Total number of queue receive errors.",
		}),
		deleteErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_drain_delete_errors_total",
			Help: "Total number of queue delete errors.",
		}),
		lagSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "relay_drain_lag_seconds",
			Help: "Age in seconds of the oldest event in the last batch.",
		}),
	}

	reg.MustRegister(
		m.cyclesTotal,
		m.cycleDuration,
		m.receivedTotal,
		m.processedTotal,
		m.deletedTotal,
		m.duplicatesTotal,
		m.decodeErrorsTotal,
		m.quarantinedTotal,
		m.receiveErrorsTotal,
		m.deleteErrorsTotal,
		m.lagSeconds,
	)
	return m
}

func (m *Metrics) cycle(err error, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.cyclesTotal.WithLabelValues(outcome).Inc()
	m.cycleDuration.Observe(d.Seconds())
}

func (m *Metrics) received(n int) {
	if m != nil {
		m.receivedTotal.Add(float64(n))
	}
}

func (m *Metrics) processed() {
	if m != nil {
		m.processedTotal.Inc()
	}
}

func (m *Metrics) deleted() {
	if m != nil {
		m.deletedTotal.Inc()
	}
}

func (m *Metrics) duplicate() {
	if m != nil {
		m.duplicatesTotal.Inc()
	}
}

func (m *Metrics) decodeError() {
	if m != nil {
		m.decodeErrorsTotal.Inc()
	}
}

func (m *Metrics) quarantined() {
	if m != nil {
		m.quarantinedTotal.Inc()
	}
}

func (m *Metrics) receiveError() {
	if m != nil {
		m.receiveErrorsTotal.Inc()
	}
}

func (m *Metrics) deleteError() {
	if m != nil {
		m.deleteErrorsTotal.Inc()
	}
}

func (m *Metrics) lag(seconds float64) {
	if m == nil {
		return
	}
	if seconds < 0 {
		seconds = 0
	}
	m.lagSeconds.Set(seconds)
}
