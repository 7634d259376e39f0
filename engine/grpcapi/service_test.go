package grpcapi

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/scribble-mpst/mpst-core/logging"
)

const requestResponse = `
protocol RequestResponse(role Client, role Server) {
	Client -> Server : Request(string);
	Server -> Client : Response(string);
}`

const disconnected = `
protocol P(role A, role B, role Unused) {
	A -> B : X(string);
}`

func reqStruct(t *testing.T, v any) *structpb.Struct {
	t.Helper()
	s, err := encodeStruct(v)
	require.NoError(t, err)
	return s
}

func TestProjectReturnsEveryRole(t *testing.T) {
	srv := NewEngineServer(logging.Noop())
	resp, err := srv.Project(context.Background(), reqStruct(t, ProjectRequest{Source: requestResponse}))
	require.NoError(t, err)

	var out ProjectResponse
	require.NoError(t, decodeStruct(resp, &out))
	assert.Equal(t, "RequestResponse", out.Protocol)
	assert.Contains(t, out.Roles, "Client")
	assert.Contains(t, out.Roles, "Server")
}

func TestProjectSingleRole(t *testing.T) {
	srv := NewEngineServer(logging.Noop())
	resp, err := srv.Project(context.Background(), reqStruct(t, ProjectRequest{Source: requestResponse, Role: "Client"}))
	require.NoError(t, err)

	var out ProjectResponse
	require.NoError(t, decodeStruct(resp, &out))
	assert.Len(t, out.Roles, 1)
	assert.Contains(t, out.Roles, "Client")
}

func TestProjectUnknownRoleErrors(t *testing.T) {
	srv := NewEngineServer(logging.Noop())
	_, err := srv.Project(context.Background(), reqStruct(t, ProjectRequest{Source: requestResponse, Role: "Nobody"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not declared")
}

func TestProjectFailsVerificationByDefault(t *testing.T) {
	srv := NewEngineServer(logging.Noop())
	_, err := srv.Project(context.Background(), reqStruct(t, ProjectRequest{Source: disconnected}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Disconnected")
}

func TestProjectSkipVerificationBypassesFailure(t *testing.T) {
	srv := NewEngineServer(logging.Noop())
	resp, err := srv.Project(context.Background(), reqStruct(t, ProjectRequest{Source: disconnected, SkipVerification: true}))
	require.NoError(t, err)

	var out ProjectResponse
	require.NoError(t, decodeStruct(resp, &out))
	assert.Contains(t, out.Roles, "Unused")
}

func TestProjectRejectsParseError(t *testing.T) {
	srv := NewEngineServer(logging.Noop())
	_, err := srv.Project(context.Background(), reqStruct(t, ProjectRequest{Source: "protocol P(role A) { A -> }"}))
	require.Error(t, err)
}

func TestVerifyReportsWellFormed(t *testing.T) {
	srv := NewEngineServer(logging.Noop())
	resp, err := srv.Verify(context.Background(), reqStruct(t, VerifyRequest{Source: requestResponse}))
	require.NoError(t, err)

	var out VerifyResponse
	require.NoError(t, decodeStruct(resp, &out))
	assert.True(t, out.WellFormed)
	assert.Empty(t, out.Findings)
}

func TestVerifyReportsDisconnectedFinding(t *testing.T) {
	srv := NewEngineServer(logging.Noop())
	resp, err := srv.Verify(context.Background(), reqStruct(t, VerifyRequest{Source: disconnected}))
	require.NoError(t, err)

	var out VerifyResponse
	require.NoError(t, decodeStruct(resp, &out))
	assert.False(t, out.WellFormed)
	require.NotEmpty(t, out.Findings)

	var found bool
	for _, f := range out.Findings {
		if f.Kind == "Disconnected" && f.Role == "Unused" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestSimulateRunsToCompletion(t *testing.T) {
	srv := NewEngineServer(logging.Noop())
	resp, err := srv.Simulate(context.Background(), reqStruct(t, SimulateRequest{Source: requestResponse, RecordTrace: true}))
	require.NoError(t, err)

	var out SimulateResponse
	require.NoError(t, decodeStruct(resp, &out))
	assert.Equal(t, "RequestResponse", out.Protocol)
	assert.True(t, out.Done)
	assert.False(t, out.Deadlocked)
	assert.NotEmpty(t, out.Traces["Client"])
	assert.NotEmpty(t, out.Traces["Server"])
}

func TestSimulateRejectsIllFormedProtocol(t *testing.T) {
	srv := NewEngineServer(logging.Noop())
	_, err := srv.Simulate(context.Background(), reqStruct(t, SimulateRequest{Source: disconnected}))
	require.Error(t, err)
}

func TestSimulateRespectsStepBudget(t *testing.T) {
	srv := NewEngineServer(logging.Noop())
	resp, err := srv.Simulate(context.Background(), reqStruct(t, SimulateRequest{Source: requestResponse, MaxSteps: 1, RecordTrace: true}))
	require.NoError(t, err)

	var out SimulateResponse
	require.NoError(t, decodeStruct(resp, &out))
	assert.False(t, out.Done)
	assert.Equal(t, 1, out.TotalSteps)
}

func TestDecodeStructRejectsNil(t *testing.T) {
	var out ProjectRequest
	err := decodeStruct(nil, &out)
	assert.Error(t, err)
}
