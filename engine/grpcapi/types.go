// Package grpcapi exposes the projection, verification, and simulation
// pipeline as a long-lived gRPC service (cmd/mpstd), grounded on the
// teacher's coreengine/grpc.EngineServer: a thin service wrapper that
// decodes a request, drives the same library calls the CLI uses, and
// re-encodes the result.
//
// There is no .proto file here: the teacher's own coreengine/proto
// package, which coreengine/grpc imports for its generated message
// types, was never part of the retrieved reference tree, so there is
// nothing to regenerate from. Instead every RPC exchanges
// google.golang.org/protobuf/types/known/structpb.Struct payloads:
// requests are decoded field by field into the plain Go types below, and
// responses are encoded from them via a JSON round trip (see
// convert.go). The grpc.ServiceDesc that wires these methods to a
// *grpc.Server is declared by hand in grpc.go.
package grpcapi

import "github.com/scribble-mpst/mpst-core/persist"

// ProjectRequest asks for one protocol's per-role projection.
type ProjectRequest struct {
	// Source is the Scribble-like source text containing one or more
	// protocol declarations (see parser.Parse). As with the CLI, the
	// last declaration is the one projected; earlier ones exist only
	// to be `do`-invoked from it.
	Source string `json:"source"`

	// Role restricts the result to a single declared role. Empty means
	// every declared role.
	Role string `json:"role,omitempty"`

	// SkipVerification skips well-formedness checking before
	// projecting, mirroring the CLI's -skip-verification flag.
	SkipVerification bool `json:"skipVerification,omitempty"`
}

// ProjectResponse carries one CFSM per projected role, in the same
// shape the CLI's --format json writes to disk.
type ProjectResponse struct {
	Protocol string                   `json:"protocol"`
	Roles    map[string]*persist.CFSM `json:"roles"`
}

// VerifyRequest asks whether a protocol is well-formed.
type VerifyRequest struct {
	Source string `json:"source"`
}

// VerifyFinding is one well-formedness violation, flattened from
// verifier.WellFormednessError.
type VerifyFinding struct {
	Kind   string `json:"kind"`
	Role   string `json:"role,omitempty"`
	Label  string `json:"label,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// VerifyResponse reports every finding for one protocol.
type VerifyResponse struct {
	Protocol   string          `json:"protocol"`
	WellFormed bool            `json:"wellFormed"`
	Findings   []VerifyFinding `json:"findings,omitempty"`
}

// SimulateRequest asks for one scheduled run of the distributed
// simulator over a protocol's projected CFSMs. Fields mirror
// config.SimulatorConfig. A zero Strategy, MaxSteps or TimeoutMS falls
// back to the server's default configuration; BufferBound, FIFOCheck and
// RecordTrace are always taken as sent, so leaving them out means
// unbounded buffers, no FIFO check and no recorded history.
type SimulateRequest struct {
	Source      string `json:"source"`
	Strategy    string `json:"strategy,omitempty"`
	MaxSteps    int    `json:"maxSteps,omitempty"`
	BufferBound int    `json:"bufferBound,omitempty"`
	FIFOCheck   bool   `json:"fifoCheck,omitempty"`
	RecordTrace bool   `json:"recordTrace,omitempty"`
	TimeoutMS   int    `json:"timeoutMs,omitempty"`
}

// TraceAction is one fired cfsm.Action, flattened for transport.
type TraceAction struct {
	Kind  string `json:"kind"`
	Peer  string `json:"peer,omitempty"`
	Label string `json:"label,omitempty"`
}

// SimulateResponse reports the outcome of one Simulator.Run. RunID
// identifies this particular run for log/trace correlation across the
// daemon's lifetime; it has no bearing on the simulation itself.
type SimulateResponse struct {
	RunID      string                   `json:"runId"`
	Protocol   string                   `json:"protocol"`
	TotalSteps int                      `json:"totalSteps"`
	Done       bool                     `json:"done"`
	Deadlocked bool                     `json:"deadlocked"`
	Traces     map[string][]TraceAction `json:"traces"`
}
