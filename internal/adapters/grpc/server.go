package grpc

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"gitlab.com/timkado/api/accessibility-finder-service/internal/adapters/config"
	"gitlab.com/timkado/api/accessibility-finder-service/internal/domain"
	"gitlab.com/timkado/api/accessibility-finder-service/pkg/safego"
)

// ErrDisabled is returned by Start when server.grpc_port is 0.
var ErrDisabled = errors.New("gRPC health server disabled")

// Server exposes the standard grpc.health.v1 service so orchestrators can
// probe the process over gRPC.
type Server struct {
	gsrv        *grpc.Server
	health      *health.Server
	logger      domain.Logger
	cfgProvider config.Provider
	appCtx      context.Context
	cancelCtx   context.CancelFunc
	addr        net.Addr
}

// NewServer creates a new gRPC health server. It reports NOT_SERVING until MarkServing.
func NewServer(appCtx context.Context, logger domain.Logger, cfgProvider config.Provider) *Server {
	gsrv := grpc.NewServer()
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(cfgProvider.Get().App.ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(gsrv, hs)

	serverLifecycleCtx, serverLifecycleCancel := context.WithCancel(appCtx)
	return &Server{
		gsrv:        gsrv,
		health:      hs,
		logger:      logger,
		cfgProvider: cfgProvider,
		appCtx:      serverLifecycleCtx,
		cancelCtx:   serverLifecycleCancel,
	}
}

// Start listens on server.grpc_port and serves in a recovered goroutine.
func (s *Server) Start() error {
	grpcPort := s.cfgProvider.Get().Server.GRPCPort
	if grpcPort == 0 {
		s.logger.Info(s.appCtx, "gRPC port is 0, health server not started")
		return ErrDisabled
	}
	return s.serve(fmt.Sprintf(":%d", grpcPort))
}

func (s *Server) serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		s.logger.Error(s.appCtx, "Failed to listen for gRPC", "address", addr, "error", err)
		return fmt.Errorf("failed to listen for gRPC on %s: %w", addr, err)
	}
	s.addr = lis.Addr()
	s.logger.Info(s.appCtx, "gRPC health server starting", "address", s.addr.String())

	safego.Execute(s.appCtx, s.logger, "GRPCServerServe", func() {
		if err := s.gsrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			s.logger.Error(s.appCtx, "gRPC server failed to serve", "error", err)
		}
		s.cancelCtx()
	})

	safego.Execute(s.appCtx, s.logger, "GRPCServerContextWatcher", func() {
		<-s.appCtx.Done()
		s.health.Shutdown()
		s.gsrv.GracefulStop()
		s.logger.Info(context.Background(), "gRPC health server stopped")
	})
	return nil
}

// Addr returns the bound listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	return s.addr
}

// MarkServing flips every registered service to SERVING.
func (s *Server) MarkServing() {
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(s.cfgProvider.Get().App.ServiceName, healthpb.HealthCheckResponse_SERVING)
}

// MarkNotServing is called at the start of shutdown so probes fail before the listener closes.
func (s *Server) MarkNotServing() {
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	s.health.SetServingStatus(s.cfgProvider.Get().App.ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
}

// GracefulStop cancels the server's lifecycle context; the watcher goroutine drains it.
func (s *Server) GracefulStop() {
	s.cancelCtx()
}
