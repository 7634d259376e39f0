package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// EngineServiceServer is the service EngineServer implements. Declared
// by hand rather than generated from a .proto (see the package doc);
// it plays the role protoc-gen-go-grpc would otherwise emit.
type EngineServiceServer interface {
	Project(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Verify(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Simulate(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// EngineServiceClient is the client-side counterpart, for in-process
// callers (tests, cmd/mpst --remote style tooling) that want to talk to
// a running mpstd over a grpc.ClientConnInterface.
type EngineServiceClient interface {
	Project(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Verify(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Simulate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type engineServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewEngineServiceClient builds a client bound to cc.
func NewEngineServiceClient(cc grpc.ClientConnInterface) EngineServiceClient {
	return &engineServiceClient{cc}
}

func (c *engineServiceClient) Project(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/mpst.engine.v1.EngineService/Project", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *engineServiceClient) Verify(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/mpst.engine.v1.EngineService/Verify", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *engineServiceClient) Simulate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/mpst.engine.v1.EngineService/Simulate", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func _EngineService_Project_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EngineServiceServer).Project(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/mpst.engine.v1.EngineService/Project"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(EngineServiceServer).Project(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _EngineService_Verify_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EngineServiceServer).Verify(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/mpst.engine.v1.EngineService/Verify"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(EngineServiceServer).Verify(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _EngineService_Simulate_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EngineServiceServer).Simulate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/mpst.engine.v1.EngineService/Simulate"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(EngineServiceServer).Simulate(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// EngineService_ServiceDesc is the hand-declared description that would
// normally come out of protoc-gen-go-grpc. It registers EngineServer's
// three RPCs against a *grpc.Server exactly as generated code would.
var EngineService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "mpst.engine.v1.EngineService",
	HandlerType: (*EngineServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Project", Handler: _EngineService_Project_Handler},
		{MethodName: "Verify", Handler: _EngineService_Verify_Handler},
		{MethodName: "Simulate", Handler: _EngineService_Simulate_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "mpst/engine/grpcapi/engine.proto",
}

// RegisterEngineServiceServer registers srv on s, the hand-written
// counterpart of the generated pb.RegisterEngineServiceServer the
// teacher's coreengine/grpc.Start relies on.
func RegisterEngineServiceServer(s grpc.ServiceRegistrar, srv EngineServiceServer) {
	s.RegisterService(&EngineService_ServiceDesc, srv)
}

var _ EngineServiceServer = (*EngineServer)(nil)
