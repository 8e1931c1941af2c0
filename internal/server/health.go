package server

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthService serves the standard gRPC health checking protocol.
// The overall status ("") and the named service track storage health.
type HealthService struct {
	addr    string
	name    string
	logger  *zap.Logger
	grpc    *grpc.Server
	health  *health.Server
	mu      sync.Mutex
	lis     net.Listener
	serving bool
}

// NewHealthService creates a health service that will listen on addr and
// report for the given service name. The initial status is NOT_SERVING.
//
// Precondition: addr must be a valid "host:port"; logger must be non-nil.
func NewHealthService(addr, name string, logger *zap.Logger) *HealthService {
	hs := health.NewServer()
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	h := &HealthService{
		addr:   addr,
		name:   name,
		logger: logger,
		grpc:   srv,
		health: hs,
	}
	h.SetServing(false)
	return h
}

// Start listens and serves until Stop is called.
func (h *HealthService) Start() error {
	lis, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", h.addr, err)
	}
	h.mu.Lock()
	h.lis = lis
	h.mu.Unlock()

	h.logger.Info("health service listening", zap.String("addr", lis.Addr().String()))
	return h.grpc.Serve(lis)
}

// Stop marks every service NOT_SERVING and drains in-flight RPCs.
func (h *HealthService) Stop() {
	h.health.Shutdown()
	h.grpc.GracefulStop()
}

// Addr returns the bound listener address, or nil before Start has listened.
func (h *HealthService) Addr() net.Addr {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.lis == nil {
		return nil
	}
	return h.lis.Addr()
}

// SetServing updates the reported status. Status changes are logged.
func (h *HealthService) SetServing(ok bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(h.name, status)

	h.mu.Lock()
	changed := h.serving != ok
	h.serving = ok
	h.mu.Unlock()
	if changed {
		h.logger.Info("health status changed", zap.String("status", status.String()))
	}
}

// Monitor calls check every interval until ctx is done, passing each outcome
// to report. The first check runs immediately.
//
// Precondition: interval must be positive; check and report must be non-nil.
func Monitor(ctx context.Context, interval time.Duration, check func(context.Context) error, report func(error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		checkCtx, cancel := context.WithTimeout(ctx, interval)
		report(check(checkCtx))
		cancel()

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
