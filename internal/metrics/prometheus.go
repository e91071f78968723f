// Package metrics exports ledger counters and latencies to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "bankcards"

// PrometheusCollector implements the metrics interfaces of the transfer,
// card and notification services.
type PrometheusCollector struct {
	transfers        *prometheus.CounterVec
	transferDuration *prometheus.HistogramVec
	transferVolume   prometheus.Counter
	cardOperations   *prometheus.CounterVec
	events           *prometheus.CounterVec
}

// NewPrometheusCollector registers the ledger metrics with reg.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	factory := promauto.With(reg)

	return &PrometheusCollector{
		transfers: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "requests_total",
			Help:      "Transfer requests by result.",
		}, []string{"result"}),
		transferDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "duration_seconds",
			Help:      "Time spent executing a transfer, including lock waits.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"result"}),
		transferVolume: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "volume_total",
			Help:      "Sum of committed transfer amounts.",
		}),
		cardOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "card",
			Name:      "operations_total",
			Help:      "Card lifecycle operations by operation and result.",
		}, []string{"operation", "result"}),
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "deliveries_total",
			Help:      "Transfer event delivery outcomes.",
		}, []string{"result"}),
	}
}

func (c *PrometheusCollector) RecordTransfer(result string, duration time.Duration) {
	c.transfers.WithLabelValues(result).Inc()
	c.transferDuration.WithLabelValues(result).Observe(duration.Seconds())
}

func (c *PrometheusCollector) RecordTransferVolume(amount float64) {
	c.transferVolume.Add(amount)
}

func (c *PrometheusCollector) RecordCardOperation(operation, result string) {
	c.cardOperations.WithLabelValues(operation, result).Inc()
}

func (c *PrometheusCollector) RecordEvent(result string) {
	c.events.WithLabelValues(result).Inc()
}
