// Command mpstd runs the MPST toolchain as a long-lived gRPC daemon,
// exposing Project/Verify/Simulate over engine/grpcapi. Grounded on the
// teacher's cmd/main.go: stdlib flag parsing, a stdLogger, signal-driven
// graceful shutdown.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/scribble-mpst/mpst-core/config"
	"github.com/scribble-mpst/mpst-core/engine/grpcapi"
	"github.com/scribble-mpst/mpst-core/logging"
	"github.com/scribble-mpst/mpst-core/observability"
)

func main() {
	addr := flag.String("addr", ":50051", "gRPC server address")
	traceEndpoint := flag.String("trace-endpoint", "", "OTLP collector address for trace export (disabled if empty)")
	strategy := flag.String("default-strategy", "", "default simulator scheduling strategy (overrides config.DefaultSimulatorConfig)")
	flag.Parse()

	logger := logging.New().Bind("command", "mpstd")
	logger.Info("mpstd_starting", "version", "0.1.0", "address", *addr)

	if *traceEndpoint != "" {
		shutdown, err := observability.InitTracer("mpstd", *traceEndpoint)
		if err != nil {
			log.Fatalf("mpstd: failed to init tracer: %v", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(ctx)
		}()
		logger.Info("tracing_enabled", "endpoint", *traceEndpoint)
	}

	srv := grpcapi.NewEngineServer(logger)
	if *strategy != "" {
		simCfg := config.DefaultSimulatorConfig()
		simCfg.Strategy = *strategy
		srv.SetDefaultSimulatorConfig(simCfg)
	}

	server := grpcapi.NewGracefulServer(srv, *addr)
	logger.Info("grpc_server_configured", "services", []string{"EngineService"})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("mpstd running on %s\n", *addr)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("mpstd: server error: %v", err)
	}
	logger.Info("mpstd_stopped")
}
