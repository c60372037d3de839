// Package metrics exposes Prometheus instrumentation for the
// matching engine: order lifecycle counters, placement outcomes, and
// queue depth.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds every metric published by the engine.
type Collector struct {
	OrdersSubmittedTotal  prometheus.Counter
	OrdersMatchedTotal    prometheus.Counter
	OrdersFailedTotal     prometheus.Counter
	MatchesTotal          prometheus.Counter
	PlacementRetriesTotal prometheus.Counter
	PlacementOutcomes     *prometheus.CounterVec
	QueueDepth            prometheus.Gauge

	handler http.Handler
}

// New builds a Collector with every metric registered against a
// private registry, so repeated construction in tests never panics on
// duplicate registration.
func New() *Collector {
	reg := prometheus.NewRegistry()
	c := newCollector()
	reg.MustRegister(
		c.OrdersSubmittedTotal,
		c.OrdersMatchedTotal,
		c.OrdersFailedTotal,
		c.MatchesTotal,
		c.PlacementRetriesTotal,
		c.PlacementOutcomes,
		c.QueueDepth,
	)
	c.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	return c
}

func newCollector() *Collector {
	const namespace = "matching_engine"

	return &Collector{
		OrdersSubmittedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_submitted_total",
			Help:      "Total number of orders accepted by the submission facade.",
		}),
		OrdersMatchedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_matched_total",
			Help:      "Total number of orders that reached a fully matched terminal state.",
		}),
		OrdersFailedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_failed_total",
			Help:      "Total number of orders marked FAILED after a permanent placement error or exhausted retries.",
		}),
		MatchesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_total",
			Help:      "Total number of match rows written by the processor.",
		}),
		PlacementRetriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "placement_retries_total",
			Help:      "Total number of exchange placement attempts beyond the first.",
		}),
		PlacementOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "placement_outcomes_total",
			Help:      "Exchange placement attempts, labeled by outcome (ok, transient, permanent).",
		}, []string{"outcome"}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Current number of order ids waiting in the submission queue.",
		}),
	}
}

// Handler returns the HTTP handler that serves this collector's
// metrics in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return c.handler
}
