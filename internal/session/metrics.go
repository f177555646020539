package session

import (
	"fmt"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "span_tree"

type Metrics struct {
	messages    *prometheus.CounterVec
	diagnostics *prometheus.CounterVec
	queueDepth  prometheus.Gauge
}

func NewMetrics(registerer prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "messages_ingested_total",
			Help:      "Number of messages applied to the span tree, by kind.",
		}, []string{"kind"}),
		diagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "diagnostics_total",
			Help:      "Number of anomalies found while ingesting, by anomaly kind.",
		}, []string{"anomaly"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "queue_depth",
			Help:      "Messages waiting to be ingested.",
		}),
	}
	for _, collector := range []prometheus.Collector{m.messages, m.diagnostics, m.queueDepth} {
		if err := registerer.Register(collector); err != nil {
			return nil, fmt.Errorf("failed to register span tree metrics: %w", err)
		}
	}
	return m, nil
}
