package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the card lifecycle.
// Tracks creation and transfer outcomes, grading latency and cache effectiveness.
type Metrics struct {
	CardsCreated     prometheus.Counter
	GradingDuration  prometheus.Histogram
	GradingFailures  *prometheus.CounterVec
	Transfers        *prometheus.CounterVec
	TransferDuration prometheus.Histogram
	CacheLookups     *prometheus.CounterVec
}

// New creates a Metrics instance with all card metrics registered.
func New() *Metrics {
	return &Metrics{
		CardsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cardledger_cards_created_total",
			Help: "Total number of graded cards created",
		}),
		GradingDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "cardledger_grading_duration_seconds",
			Help:    "Duration of calls to the grading service",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		GradingFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cardledger_grading_failures_total",
			Help: "Grading failures by kind (unavailable, rejected)",
		}, []string{"kind"}),
		Transfers: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cardledger_transfers_total",
			Help: "Ownership transfers by outcome (ok or error code)",
		}, []string{"outcome"}),
		TransferDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "cardledger_transfer_duration_seconds",
			Help:    "Duration of ownership transfers including the transaction",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		CacheLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cardledger_card_cache_lookups_total",
			Help: "Card cache lookups by result (hit, miss, error)",
		}, []string{"result"}),
	}
}

func (m *Metrics) IncrementCardsCreated() {
	m.CardsCreated.Inc()
}

// ObserveGrading records the duration of a grading call.
// Call with time.Now() at the start of the call.
func (m *Metrics) ObserveGrading(start time.Time) {
	m.GradingDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementGradingFailure(kind string) {
	m.GradingFailures.WithLabelValues(kind).Inc()
}

// ObserveTransfer records a finished transfer with its outcome.
func (m *Metrics) ObserveTransfer(outcome string, start time.Time) {
	m.Transfers.WithLabelValues(outcome).Inc()
	m.TransferDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementCacheLookup(result string) {
	m.CacheLookups.WithLabelValues(result).Inc()
}
