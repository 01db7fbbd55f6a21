package server

import (
	"context"
	"net"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// HealthServiceName is the service name reported next to the overall ("") status.
const HealthServiceName = "flowlibre"

// HealthServer serves the standard gRPC health protocol so supervisors can
// tell when the plugin has loaded its catalog.
type HealthServer struct {
	grpcServer *grpc.Server
	health     *health.Server
	logger     *logrus.Logger
}

// NewHealthServer creates a gRPC server reporting NOT_SERVING until MarkServing.
func NewHealthServer(logger *logrus.Logger) *HealthServer {
	if logger == nil {
		logger = logrus.New()
	}

	s := grpc.NewServer()

	// Register health check service
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(s, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	healthServer.SetServingStatus(HealthServiceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	// Enable reflection for grpcurl/debugging
	reflection.Register(s)

	return &HealthServer{
		grpcServer: s,
		health:     healthServer,
		logger:     logger,
	}
}

// MarkServing switches both statuses to SERVING.
func (h *HealthServer) MarkServing() {
	h.health.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	h.health.SetServingStatus(HealthServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	h.logger.Debug("gRPC health status set to SERVING")
}

// WatchReady marks the server SERVING once ready is closed. It returns when
// that happens or when ctx is done.
func (h *HealthServer) WatchReady(ctx context.Context, ready <-chan struct{}) {
	select {
	case <-ready:
		h.MarkServing()
	case <-ctx.Done():
	}
}

// Serve accepts connections on lis until Stop.
func (h *HealthServer) Serve(lis net.Listener) error {
	h.logger.WithFields(logrus.Fields{
		"addr": lis.Addr().String(),
	}).Info("gRPC health server listening")
	return h.grpcServer.Serve(lis)
}

// Stop reports NOT_SERVING and shuts the server down gracefully, forcing it
// closed if that takes longer than ctx allows.
func (h *HealthServer) Stop(ctx context.Context) {
	h.health.Shutdown()

	stopped := make(chan struct{})
	go func() {
		h.grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		h.logger.Info("gRPC health server stopped gracefully")
	case <-ctx.Done():
		h.logger.Warn("Graceful shutdown timeout, forcing stop...")
		h.grpcServer.Stop()
	}
}
