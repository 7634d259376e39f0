// Package observability provides Prometheus metrics and OpenTelemetry
// tracing for the toolchain's long-running surfaces: the gRPC daemon
// and any simulation run invoked through it. Grounded on the teacher's
// coreengine/observability package (metrics.go/tracing.go): promauto
// CounterVec/HistogramVec pairs behind small Record* functions, plus an
// OTLP-over-gRPC tracer setup.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	projectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mpst_projections_total",
			Help: "Total number of protocol projection attempts",
		},
		[]string{"protocol", "status"}, // status: success, error
	)

	projectionDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mpst_projection_duration_seconds",
			Help:    "Projection duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"protocol"},
	)

	verificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mpst_verifications_total",
			Help: "Total number of well-formedness verification runs",
		},
		[]string{"protocol", "status"}, // status: well_formed, ill_formed
	)

	verificationFindingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mpst_verification_findings_total",
			Help: "Total well-formedness findings, by kind",
		},
		[]string{"protocol", "kind"},
	)

	simulationRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mpst_simulation_runs_total",
			Help: "Total number of simulator runs",
		},
		[]string{"protocol", "strategy", "outcome"}, // outcome: completed, deadlocked, step_budget_exceeded
	)

	simulationStepsTotal = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mpst_simulation_steps_total",
			Help:    "Number of steps a simulation took before stopping",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 500, 1000, 10000},
		},
		[]string{"protocol", "strategy"},
	)

	grpcRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mpst_grpc_requests_total",
			Help: "Total gRPC requests served by the daemon",
		},
		[]string{"method", "status"},
	)

	grpcRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mpst_grpc_request_duration_seconds",
			Help:    "gRPC request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method"},
	)
)

// RecordProjection records one Project call's outcome and wall time.
func RecordProjection(protocol, status string, durationMS int) {
	projectionsTotal.WithLabelValues(protocol, status).Inc()
	projectionDurationSeconds.WithLabelValues(protocol).Observe(float64(durationMS) / 1000.0)
}

// RecordVerification records one Verify call's outcome and, for each
// reported finding, which well-formedness Kind it was.
func RecordVerification(protocol, status string, kinds []string) {
	verificationsTotal.WithLabelValues(protocol, status).Inc()
	for _, k := range kinds {
		verificationFindingsTotal.WithLabelValues(protocol, k).Inc()
	}
}

// RecordSimulationRun records one Simulator.Run call's outcome and step
// count.
func RecordSimulationRun(protocol, strategy, outcome string, steps int) {
	simulationRunsTotal.WithLabelValues(protocol, strategy, outcome).Inc()
	simulationStepsTotal.WithLabelValues(protocol, strategy).Observe(float64(steps))
}

// RecordGRPCRequest records one daemon RPC's outcome and duration; each
// engine/grpcapi RPC calls it once, when the request finishes.
func RecordGRPCRequest(method, status string, durationMS int) {
	grpcRequestsTotal.WithLabelValues(method, status).Inc()
	grpcRequestDurationSeconds.WithLabelValues(method).Observe(float64(durationMS) / 1000.0)
}
