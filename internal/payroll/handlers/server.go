// Package handlers serves the PayrollService over an HTTP JSON API mounted
// on the grpc-gateway runtime mux, next to a gRPC server that exposes the
// standard health service.
package handlers

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the name reported by the gRPC health service.
const ServiceName = "payroll.v1.Ledger"

// Server holds references to both a gRPC server and an HTTP server.
type Server struct {
	grpcServer   *grpc.Server
	httpServer   *http.Server
	health       *health.Server
	logger       *zap.Logger
	grpcEndpoint string
	httpEndpoint string
}

// NewServer constructs a Server with separate endpoints for gRPC and HTTP.
func NewServer(
	grpcPort int,
	httpPort int,
	logger *zap.Logger,
	grpcOpts ...grpc.ServerOption,
) *Server {
	s := &Server{
		grpcServer:   grpc.NewServer(grpcOpts...),
		httpServer:   &http.Server{ReadHeaderTimeout: 10 * time.Second},
		health:       health.NewServer(),
		logger:       logger,
		grpcEndpoint: fmt.Sprintf(":%d", grpcPort),
		httpEndpoint: fmt.Sprintf(":%d", httpPort),
	}
	healthpb.RegisterHealthServer(s.grpcServer, s.health)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// RegisterHTTPGateway mounts the payroll routes on a runtime mux and
// installs it as the HTTP handler.
func (s *Server) RegisterHTTPGateway(h *PayrollHandler) error {
	mux := runtime.NewServeMux()
	if err := h.Register(mux); err != nil {
		return err
	}
	s.httpServer.Handler = mux
	s.httpServer.Addr = s.httpEndpoint
	return nil
}

// Start runs the gRPC and HTTP servers concurrently, returning on the first error.
func (s *Server) Start() error {
	var wg sync.WaitGroup
	wg.Add(2)
	errChan := make(chan error, 2)

	// Start gRPC Server
	go func() {
		defer wg.Done()
		s.logger.Info("Starting gRPC server", zap.String("endpoint", s.grpcEndpoint))
		lis, err := net.Listen("tcp", s.grpcEndpoint)
		if err != nil {
			errChan <- fmt.Errorf("gRPC listen error: %w", err)
			return
		}
		if err := s.grpcServer.Serve(lis); err != nil {
			errChan <- fmt.Errorf("gRPC serve error: %w", err)
		}
	}()

	// Start HTTP Server
	go func() {
		defer wg.Done()
		s.logger.Info("Starting HTTP server", zap.String("endpoint", s.httpEndpoint))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP serve error: %w", err)
		}
	}()

	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	go func() {
		wg.Wait()
		close(errChan)
	}()

	for err := range errChan {
		if err != nil {
			return err
		}
	}
	return nil
}

// Stop gracefully shuts down both gRPC and HTTP servers.
func (s *Server) Stop() {
	s.logger.Info("Shutting down servers...")
	s.health.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.grpcServer.GracefulStop()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	s.logger.Info("Servers stopped")
}
