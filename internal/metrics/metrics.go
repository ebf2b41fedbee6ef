// Package metrics collects client activity counters for Prometheus and
// serves them to scrapers.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "goodaideas"

// Collector records store, realtime and backend activity.
type Collector struct {
	mutations     *prometheus.CounterVec
	stale         *prometheus.CounterVec
	channelStates *prometheus.CounterVec
	reconnects    *prometheus.CounterVec
	events        *prometheus.CounterVec
	requests      *prometheus.CounterVec
	latency       *prometheus.HistogramVec
}

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_mutations_total",
			Help:      "State store mutations applied, by operation.",
		}, []string{"op"}),
		stale: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_stale_results_total",
			Help:      "Async results discarded because a newer session superseded them.",
		}, []string{"op"}),
		channelStates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_channel_transitions_total",
			Help:      "Realtime channel state transitions, by table and new state.",
		}, []string{"table", "state"}),
		reconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_reconnects_total",
			Help:      "Realtime reconnect attempts, by table.",
		}, []string{"table"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_events_total",
			Help:      "Realtime events received, by table and outcome (applied or duplicate).",
		}, []string{"table", "outcome"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_total",
			Help:      "Collaborator requests, by operation, table and result code.",
		}, []string{"op", "table", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_request_seconds",
			Help:      "Collaborator request latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}

	reg.MustRegister(
		c.mutations,
		c.stale,
		c.channelStates,
		c.reconnects,
		c.events,
		c.requests,
		c.latency,
	)
	return c
}

// ObserveMutation counts a store mutation.
func (c *Collector) ObserveMutation(op string) {
	c.mutations.WithLabelValues(op).Inc()
}

// ObserveStale counts a discarded stale result.
func (c *Collector) ObserveStale(op string) {
	c.stale.WithLabelValues(op).Inc()
}

// ObserveChannelState counts a channel entering state.
func (c *Collector) ObserveChannelState(table, state string) {
	c.channelStates.WithLabelValues(table, state).Inc()
}

// ObserveReconnect counts a reconnect attempt.
func (c *Collector) ObserveReconnect(table string) {
	c.reconnects.WithLabelValues(table).Inc()
}

// ObserveEvent counts an inbound change event.
func (c *Collector) ObserveEvent(table string, duplicate bool) {
	outcome := "applied"
	if duplicate {
		outcome = "duplicate"
	}
	c.events.WithLabelValues(table, outcome).Inc()
}

// ObserveRequest records one collaborator request.
func (c *Collector) ObserveRequest(op, table, code string, d time.Duration) {
	c.requests.WithLabelValues(op, table, code).Inc()
	c.latency.WithLabelValues(op).Observe(d.Seconds())
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
