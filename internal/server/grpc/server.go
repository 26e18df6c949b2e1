// Package grpc runs the standard grpc.health.v1 service. Its serving status
// follows a periodic probe of the server's dependencies.
package grpc

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/dmitrijs2005/shipledger/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name reported alongside the overall
// ("") status.
const ServiceName = "shipledger"

// DefaultProbeInterval is how often the probe runs.
const DefaultProbeInterval = 10 * time.Second

// Probe reports whether the server can do its work.
type Probe func(ctx context.Context) error

type HealthServer struct {
	address  string
	probe    Probe
	interval time.Duration
	health   *health.Server
	logger   logging.Logger
}

func NewHealthServer(a string, probe Probe, interval time.Duration, l logging.Logger) *HealthServer {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	return &HealthServer{
		address:  a,
		probe:    probe,
		interval: interval,
		health:   health.NewServer(),
		logger:   l.With("module", "grpc_health"),
	}
}

// Run serves until ctx is cancelled, then stops gracefully.
func (s *HealthServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor))
	healthpb.RegisterHealthServer(srv, s.health)

	s.check(ctx)
	go s.watch(ctx)

	s.logger.Info(ctx, "Starting gRPC health server", "address", s.address)

	served := make(chan error, 1)
	go func() { served <- srv.Serve(listen) }()

	select {
	case err := <-served:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping gRPC health server...")
	s.health.Shutdown()
	srv.GracefulStop()
	if err := <-served; err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

func (s *HealthServer) watch(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.check(ctx)
		}
	}
}

// check runs the probe once and publishes the result.
func (s *HealthServer) check(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	if s.probe != nil {
		pctx, cancel := context.WithTimeout(ctx, s.interval)
		err := s.probe(pctx)
		cancel()
		if err != nil {
			s.logger.Warn(ctx, "health probe failed", "err", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}

	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}
