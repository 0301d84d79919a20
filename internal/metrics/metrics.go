// Package metrics holds the Prometheus collectors shared by the model cache,
// the request handler and the telemetry recorder. The collectors live on the
// default registry; the local server exposes them on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "coldstart"

// Outcome labels
const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeBootstrap = "bootstrap"
	OutcomeAborted   = "aborted"
)

var (
	// modelLoads counts cold loads of the model artifact.
	// Labels: outcome (success, failure)
	modelLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "model",
		Name:      "loads_total",
		Help:      "Model artifact fetch and decode attempts",
	}, []string{"outcome"})

	// modelLoadDuration measures fetch plus decode time of a cold load.
	modelLoadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "model",
		Name:      "load_duration_seconds",
		Help:      "Time spent fetching and decoding the model artifact",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	// invocations counts handled invocations by response status code.
	invocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "handler",
		Name:      "invocations_total",
		Help:      "Handled invocations by response status",
	}, []string{"status"})

	// predictLatency measures start-to-prediction latency, the value written
	// to the telemetry log.
	predictLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "handler",
		Name:      "latency_seconds",
		Help:      "Latency from invocation start to prediction",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})

	// telemetryPublishes counts durable log merges.
	// Labels: outcome (success, bootstrap, aborted, failure)
	telemetryPublishes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "telemetry",
		Name:      "publishes_total",
		Help:      "Durable telemetry log merge attempts by outcome",
	}, []string{"outcome"})
)

// ObserveModelLoad records one cold load attempt
func ObserveModelLoad(outcome string, d time.Duration) {
	modelLoads.WithLabelValues(outcome).Inc()
	if outcome == OutcomeSuccess {
		modelLoadDuration.Observe(d.Seconds())
	}
}

// ObserveInvocation records the status code of a finished invocation
func ObserveInvocation(status string) {
	invocations.WithLabelValues(status).Inc()
}

// ObserveLatency records the latency that is also written to the telemetry log
func ObserveLatency(d time.Duration) {
	predictLatency.Observe(d.Seconds())
}

// ObserveTelemetryPublish records the outcome of one durable log merge
func ObserveTelemetryPublish(outcome string) {
	telemetryPublishes.WithLabelValues(outcome).Inc()
}
