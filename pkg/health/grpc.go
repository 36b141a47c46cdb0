package health

import (
	"context"
	"fmt"
	"net"
	"time"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the gRPC health service name reported for the chat API
const ServiceName = "chat.v1.ChatService"

// GRPCServer exposes the checker through the standard gRPC health protocol
type GRPCServer struct {
	checker *Checker
	server  *grpc.Server
	health  *grpchealth.Server
}

// NewGRPCServer creates a gRPC server with the health service registered
func NewGRPCServer(checker *Checker) *GRPCServer {
	srv := grpc.NewServer()
	hs := grpchealth.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	return &GRPCServer{checker: checker, server: srv, health: hs}
}

// Sync pushes the checker's current verdict into the gRPC health service
func (g *GRPCServer) Sync(ctx context.Context) {
	g.checker.refreshIfStale(ctx)

	status := healthpb.HealthCheckResponse_SERVING
	if !g.checker.IsSystemHealthy() {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	g.health.SetServingStatus("", status)
	g.health.SetServingStatus(ServiceName, status)
}

// Serve listens on the given port and serves until ctx is cancelled
func (g *GRPCServer) Serve(ctx context.Context, port string) error {
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return fmt.Errorf("failed to listen on grpc port %s: %w", port, err)
	}
	return g.ServeListener(ctx, lis)
}

// ServeListener serves on an existing listener until ctx is cancelled
func (g *GRPCServer) ServeListener(ctx context.Context, lis net.Listener) error {
	g.Sync(ctx)

	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				g.Sync(ctx)
			case <-ctx.Done():
				g.health.Shutdown()
				g.server.GracefulStop()
				return
			}
		}
	}()

	g.checker.log.Info("gRPC health server listening", "addr", lis.Addr().String())
	if err := g.server.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return err
	}
	return nil
}
