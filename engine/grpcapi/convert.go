package grpcapi

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/scribble-mpst/mpst-core/typeutil"
)

// decodeStruct round-trips a structpb.Struct into a typed Go value via
// JSON, since there is no generated protobuf message to decode into
// directly (see the package doc).
func decodeStruct(s *structpb.Struct, out any) error {
	if s == nil {
		return fmt.Errorf("grpcapi: nil request")
	}
	data, err := json.Marshal(s.AsMap())
	if err != nil {
		return fmt.Errorf("grpcapi: re-marshaling request: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("grpcapi: decoding request: %w", err)
	}
	return nil
}

// encodeStruct is decodeStruct's inverse, used to turn a response value
// back into a structpb.Struct for the wire.
func encodeStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("grpcapi: marshaling response: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("grpcapi: re-decoding response: %w", err)
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("grpcapi: building struct: %w", err)
	}
	return out, nil
}

// The three decode*Request functions pull each request's fields
// directly out of the decoded Struct map via typeutil, rather than a
// JSON round trip: every request is flat scalars, the case
// typeutil.Safe* exists for, and numeric fields need SafeInt's
// float64-from-the-wire handling regardless.

func decodeProjectRequest(s *structpb.Struct) (ProjectRequest, error) {
	if s == nil {
		return ProjectRequest{}, fmt.Errorf("grpcapi: nil request")
	}
	m := s.AsMap()
	source, ok := typeutil.SafeString(m["source"])
	if !ok {
		return ProjectRequest{}, fmt.Errorf("grpcapi: request field \"source\" must be a string")
	}
	return ProjectRequest{
		Source:           source,
		Role:             typeutil.SafeStringDefault(m["role"], ""),
		SkipVerification: typeutil.SafeBoolDefault(m["skipVerification"], false),
	}, nil
}

func decodeVerifyRequest(s *structpb.Struct) (VerifyRequest, error) {
	if s == nil {
		return VerifyRequest{}, fmt.Errorf("grpcapi: nil request")
	}
	m := s.AsMap()
	source, ok := typeutil.SafeString(m["source"])
	if !ok {
		return VerifyRequest{}, fmt.Errorf("grpcapi: request field \"source\" must be a string")
	}
	return VerifyRequest{Source: source}, nil
}

func decodeSimulateRequest(s *structpb.Struct) (SimulateRequest, error) {
	if s == nil {
		return SimulateRequest{}, fmt.Errorf("grpcapi: nil request")
	}
	m := s.AsMap()
	source, ok := typeutil.SafeString(m["source"])
	if !ok {
		return SimulateRequest{}, fmt.Errorf("grpcapi: request field \"source\" must be a string")
	}
	return SimulateRequest{
		Source:      source,
		Strategy:    typeutil.SafeStringDefault(m["strategy"], ""),
		MaxSteps:    typeutil.SafeIntDefault(m["maxSteps"], 0),
		BufferBound: typeutil.SafeIntDefault(m["bufferBound"], 0),
		FIFOCheck:   typeutil.SafeBoolDefault(m["fifoCheck"], false),
		RecordTrace: typeutil.SafeBoolDefault(m["recordTrace"], false),
		TimeoutMS:   typeutil.SafeIntDefault(m["timeoutMs"], 0),
	}, nil
}
