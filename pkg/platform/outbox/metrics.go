package outbox

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the outbox relay.
type Metrics struct {
	Published prometheus.Counter
	Failures  prometheus.Counter
	Backlog   prometheus.Gauge
}

// NewMetrics creates relay metrics registered on the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		Published: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cardledger_outbox_published_total",
			Help: "Total number of outbox entries delivered to the broker",
		}),
		Failures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cardledger_outbox_publish_failures_total",
			Help: "Total number of failed outbox publish attempts",
		}),
		Backlog: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "cardledger_outbox_backlog",
			Help: "Pending outbox entries seen by the last relay pass",
		}),
	}
}

func (m *Metrics) IncPublished() {
	m.Published.Inc()
}

func (m *Metrics) IncFailures() {
	m.Failures.Inc()
}

func (m *Metrics) SetBacklog(n int) {
	m.Backlog.Set(float64(n))
}
