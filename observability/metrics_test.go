package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordProjection(t *testing.T) {
	tests := []struct {
		name       string
		protocol   string
		status     string
		durationMS int
	}{
		{"success", "TwoBuyer", "success", 5},
		{"error", "TwoBuyer", "error", 1},
		{"zero duration", "Fast", "success", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			RecordProjection(tt.protocol, tt.status, tt.durationMS)
			count := testutil.ToFloat64(projectionsTotal.WithLabelValues(tt.protocol, tt.status))
			assert.Greater(t, count, 0.0)
		})
	}
}

func TestRecordVerification(t *testing.T) {
	RecordVerification("TwoBuyer", "ill_formed", []string{"race", "race", "deadlock"})

	status := testutil.ToFloat64(verificationsTotal.WithLabelValues("TwoBuyer", "ill_formed"))
	assert.Greater(t, status, 0.0)

	raceCount := testutil.ToFloat64(verificationFindingsTotal.WithLabelValues("TwoBuyer", "race"))
	assert.GreaterOrEqual(t, raceCount, 2.0)
}

func TestRecordSimulationRun(t *testing.T) {
	RecordSimulationRun("TwoBuyer", "round-robin", "completed", 12)
	count := testutil.ToFloat64(simulationRunsTotal.WithLabelValues("TwoBuyer", "round-robin", "completed"))
	assert.Greater(t, count, 0.0)
}

func TestRecordGRPCRequest(t *testing.T) {
	RecordGRPCRequest("Project", "OK", 3)
	count := testutil.ToFloat64(grpcRequestsTotal.WithLabelValues("Project", "OK"))
	assert.Greater(t, count, 0.0)
}
