package metrics

import (
	"net/http"
	"time"

	"banking-ledger/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "banking_ledger"

// Ledger implements ports.Metrics with Prometheus collectors.
type Ledger struct {
	gatherer prometheus.Gatherer

	transactions      *prometheus.CounterVec
	transactionTiming *prometheus.HistogramVec
	cardEvents        *prometheus.CounterVec
	loanApplications  prometheus.Counter
	activityDelivery  *prometheus.CounterVec
}

// New registers the ledger collectors on reg.
func New(reg *prometheus.Registry) *Ledger {
	factory := promauto.With(reg)
	return &Ledger{
		gatherer: reg,
		transactions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transactions_total",
				Help:      "Finalized transactions by type and status",
			},
			[]string{"type", "status"},
		),
		transactionTiming: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "transaction_duration_seconds",
				Help:      "Time spent in the ledger unit of work",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"type"},
		),
		cardEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "card_events_total",
				Help:      "Card lifecycle events",
			},
			[]string{"event"},
		),
		loanApplications: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "loan_applications_total",
				Help:      "Accepted loan applications",
			},
		),
		activityDelivery: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "activity_deliveries_total",
				Help:      "Activity event deliveries by sink and outcome",
			},
			[]string{"sink", "outcome"},
		),
	}
}

// NewWithDefaults registers the ledger collectors plus the Go and process collectors.
func NewWithDefaults() *Ledger {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return New(reg)
}

// ObserveTransaction counts a finalized transaction and records how long it took.
func (m *Ledger) ObserveTransaction(txType domain.TransactionType, status domain.TransactionStatus, elapsed time.Duration) {
	m.transactions.WithLabelValues(string(txType), string(status)).Inc()
	m.transactionTiming.WithLabelValues(string(txType)).Observe(elapsed.Seconds())
}

// IncCardEvent counts a card lifecycle event ("created", "paid", "purchase").
func (m *Ledger) IncCardEvent(event string) {
	m.cardEvents.WithLabelValues(event).Inc()
}

func (m *Ledger) IncLoanApplication() {
	m.loanApplications.Inc()
}

// IncActivityDelivery counts one delivery attempt to sink.
func (m *Ledger) IncActivityDelivery(sink string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.activityDelivery.WithLabelValues(sink, outcome).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Ledger) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
