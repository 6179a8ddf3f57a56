package gateway

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts gateway outcomes. Registering is left to the caller; nothing
// is added to the global registry.
type Metrics struct {
	requests  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	teardowns *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "session",
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Requests sent through the gateway by outcome.",
		}, []string{"client", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "session",
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "Time from dispatch to a classified outcome.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"client"}),
		teardowns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "session",
			Subsystem: "gateway",
			Name:      "teardowns_total",
			Help:      "Sessions torn down after an unauthorized response.",
		}, []string{"client"}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.requests, m.duration, m.teardowns} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) observe(client, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(client, outcome).Inc()
	m.duration.WithLabelValues(client).Observe(elapsed.Seconds())
}

func (m *Metrics) teardown(client string) {
	if m == nil {
		return
	}
	m.teardowns.WithLabelValues(client).Inc()
}
