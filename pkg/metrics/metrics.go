package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Queue reconciliation metrics
	ReconciliationRuns    prometheus.Counter
	ReconciliationLatency prometheus.Histogram
	TicketsAssigned       prometheus.Counter
	TicketsSkipped        *prometheus.CounterVec
	TicketsWaiting        prometheus.Gauge

	// Notification metrics
	MessagesDispatched prometheus.Counter
	MessagesFailed     prometheus.Counter
	DispatchLatency    prometheus.Histogram

	// Database metrics
	DatabaseOperations *prometheus.CounterVec
}

// New creates and registers all application metrics
func New(namespace string) *Metrics {
	return &Metrics{
		ReconciliationRuns: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciliation_runs_total",
			Help:      "Total number of queue reconciliation passes",
		}),
		ReconciliationLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconciliation_duration_seconds",
			Help:      "Time spent per queue reconciliation pass",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		TicketsAssigned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tickets_assigned_total",
			Help:      "Total number of tickets assigned to advisors",
		}),
		TicketsSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tickets_skipped_total",
			Help:      "Tickets skipped during a reconciliation pass",
		}, []string{"reason"}),
		TicketsWaiting: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tickets_waiting",
			Help:      "Number of waiting tickets observed by the last pass",
		}),
		MessagesDispatched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_dispatched_total",
			Help:      "Total number of notification messages sent",
		}),
		MessagesFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_failed_total",
			Help:      "Total number of notification send failures",
		}),
		DispatchLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "message_dispatch_duration_seconds",
			Help:      "Time spent per message dispatch pass",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		DatabaseOperations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "database_operations_total",
			Help:      "Total number of database operations",
		}, []string{"operation", "status"}),
	}
}
