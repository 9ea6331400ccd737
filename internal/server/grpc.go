package server

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// DrainService is the health service name reported by the drain worker.
const DrainService = "relay.drain"

// NewGRPCServer creates a gRPC server with recovery, logging and auth on both
// unary and streaming RPCs, registers the health service and reflection, and
// returns the server ready to serve. With a token set, everything except the
// health Check and Watch calls requires it.
func NewGRPCServer(hs *health.Server, authToken string) *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			RecoveryInterceptor,
			LoggingInterceptor,
			AuthInterceptor(authToken),
		),
		grpc.ChainStreamInterceptor(
			StreamRecoveryInterceptor,
			StreamLoggingInterceptor,
			StreamAuthInterceptor(authToken),
		),
	)

	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	return srv
}

// DrainHealth publishes drain cycle outcomes on a gRPC health server.
type DrainHealth struct {
	hs *health.Server
}

// NewDrainHealth registers DrainService as SERVING until a cycle fails.
func NewDrainHealth(hs *health.Server) *DrainHealth {
	hs.SetServingStatus(DrainService, healthpb.HealthCheckResponse_SERVING)
	return &DrainHealth{hs: hs}
}

// SetHealthy marks DrainService SERVING or NOT_SERVING.
func (d *DrainHealth) SetHealthy(ok bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		st = healthpb.HealthCheckResponse_SERVING
	}
	d.hs.SetServingStatus(DrainService, st)
}

// Shutdown marks every service NOT_SERVING ahead of a graceful stop.
func (d *DrainHealth) Shutdown() {
	d.hs.Shutdown()
}
