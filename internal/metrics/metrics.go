// Package metrics provides the Prometheus collectors for the dispatcher, forwarder and history cache.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the subset of Collector used by components. A nil Recorder is not allowed;
// use Nop when metrics are disabled.
type Recorder interface {
	RecordDispatch(status int, d time.Duration)
	RecordDispatchFailure(kind string)
	RecordForward(status int, d time.Duration)
	RecordHistoryMutation(op string)
}

// Collector implements Recorder with Prometheus metrics.
type Collector struct {
	dispatchStatus  *prometheus.CounterVec
	dispatchLatency prometheus.Histogram
	dispatchFail    *prometheus.CounterVec
	forwardStatus   *prometheus.CounterVec
	forwardLatency  prometheus.Histogram
	historyMutation *prometheus.CounterVec
}

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		dispatchStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mealtrack_dispatch_responses_total",
			Help: "Backend responses received by the request dispatcher, by status code.",
		}, []string{"status_code"}),
		dispatchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mealtrack_dispatch_latency_seconds",
			Help:    "Request dispatcher round-trip latency.",
			Buckets: prometheus.DefBuckets,
		}),
		dispatchFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mealtrack_dispatch_failures_total",
			Help: "Dispatcher requests that produced no response, by failure kind.",
		}, []string{"kind"}),
		forwardStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mealtrack_forward_responses_total",
			Help: "Responses written by the boundary forwarder, by status code.",
		}, []string{"status_code"}),
		forwardLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mealtrack_forward_latency_seconds",
			Help:    "Boundary forwarder request latency.",
			Buckets: prometheus.DefBuckets,
		}),
		historyMutation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mealtrack_history_mutations_total",
			Help: "History cache mutations, by operation.",
		}, []string{"op"}),
	}

	reg.MustRegister(
		c.dispatchStatus,
		c.dispatchLatency,
		c.dispatchFail,
		c.forwardStatus,
		c.forwardLatency,
		c.historyMutation,
	)

	return c
}

func (c *Collector) RecordDispatch(status int, d time.Duration) {
	c.dispatchStatus.WithLabelValues(strconv.Itoa(status)).Inc()
	c.dispatchLatency.Observe(d.Seconds())
}

func (c *Collector) RecordDispatchFailure(kind string) {
	c.dispatchFail.WithLabelValues(kind).Inc()
}

func (c *Collector) RecordForward(status int, d time.Duration) {
	c.forwardStatus.WithLabelValues(strconv.Itoa(status)).Inc()
	c.forwardLatency.Observe(d.Seconds())
}

func (c *Collector) RecordHistoryMutation(op string) {
	c.historyMutation.WithLabelValues(op).Inc()
}

// Handler returns the Prometheus scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordDispatch(int, time.Duration) {}
func (Nop) RecordDispatchFailure(string)      {}
func (Nop) RecordForward(int, time.Duration)  {}
func (Nop) RecordHistoryMutation(string)      {}
