package grpcapi

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
)

// Start starts the gRPC server on address and blocks until it stops.
// Grounded on the teacher's coreengine/grpc.Start.
func Start(address string, srv *EngineServer) error {
	lis, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("grpcapi: failed to listen: %w", err)
	}
	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	RegisterEngineServiceServer(grpcServer, srv)

	srv.logger.Info("grpc_server_started", "address", address)
	return grpcServer.Serve(lis)
}

// GracefulServer wraps a gRPC server with context-driven graceful
// shutdown, grounded on the teacher's coreengine/grpc.GracefulServer.
type GracefulServer struct {
	grpcServer *grpc.Server
	coreServer *EngineServer
	address    string

	shutdownMu sync.Mutex
	isShutdown bool
}

// NewGracefulServer builds a GracefulServer bound to address, serving
// coreServer's RPCs. Every server carries an OTel stats handler so spans
// started in service.go (see observability.Tracer) nest under a server
// span for the inbound call; opts can add to or override this.
func NewGracefulServer(coreServer *EngineServer, address string, opts ...grpc.ServerOption) *GracefulServer {
	serverOpts := append([]grpc.ServerOption{grpc.StatsHandler(otelgrpc.NewServerHandler())}, opts...)
	grpcServer := grpc.NewServer(serverOpts...)
	RegisterEngineServiceServer(grpcServer, coreServer)
	return &GracefulServer{grpcServer: grpcServer, coreServer: coreServer, address: address}
}

// Start listens and serves until ctx is cancelled, then performs a
// graceful stop and returns ctx.Err().
func (s *GracefulServer) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("grpcapi: failed to listen: %w", err)
	}

	s.coreServer.logger.Info("grpc_graceful_server_started", "address", s.address)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.grpcServer.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		s.coreServer.logger.Info("grpc_graceful_shutdown_initiated", "reason", ctx.Err().Error())
		s.GracefulStop()
		return ctx.Err()
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("grpcapi: server error: %w", err)
		}
		return nil
	}
}

// GracefulStop stops accepting new connections and waits for in-flight
// RPCs to finish. Idempotent.
func (s *GracefulServer) GracefulStop() {
	s.shutdownMu.Lock()
	defer s.shutdownMu.Unlock()
	if s.isShutdown {
		return
	}
	s.isShutdown = true
	s.coreServer.logger.Info("grpc_graceful_stop_started")
	s.grpcServer.GracefulStop()
	s.coreServer.logger.Info("grpc_graceful_stop_completed")
}

// ShutdownWithTimeout performs a graceful stop, forcing an immediate
// stop if it has not completed within timeout.
func (s *GracefulServer) ShutdownWithTimeout(timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		s.coreServer.logger.Warn("grpc_graceful_shutdown_timeout", "timeout_ms", timeout.Milliseconds())
		s.shutdownMu.Lock()
		s.isShutdown = true
		s.shutdownMu.Unlock()
		s.grpcServer.Stop()
	}
}

// Address returns the server's configured listen address.
func (s *GracefulServer) Address() string { return s.address }
