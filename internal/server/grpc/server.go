// Package grpc exposes the transfer and admin services over gRPC.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/webxfer/internal/cryptox"
	"github.com/dmitrijs2005/webxfer/internal/logging"
	"github.com/dmitrijs2005/webxfer/internal/rpc"
	"github.com/dmitrijs2005/webxfer/internal/server/lifecycle"
	"github.com/dmitrijs2005/webxfer/internal/server/models"
	"github.com/dmitrijs2005/webxfer/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type transferSvc interface {
	Upload(ctx context.Context, req services.UploadRequest) (*services.ShareReference, error)
	Download(ctx context.Context, token cryptox.Token) (*services.Download, error)
	Status(ctx context.Context, token cryptox.Token) (*models.Status, error)
	PeekMetadata(ctx context.Context, token cryptox.Token) (*services.SealedMetadata, error)
	Ping(ctx context.Context) error
}

type adminSvc interface {
	Sweep(ctx context.Context) (*lifecycle.SweepReport, error)
	PruneAudit(ctx context.Context, retention time.Duration) (int64, error)
}

type GRPCServer struct {
	rpc.UnimplementedTransferServer
	rpc.UnimplementedAdminServer
	address          string
	transfer         transferSvc
	admin            adminSvc
	logger           logging.Logger
	jwtSecret        []byte
	maxUploadSize    int64
	healthCheckEvery time.Duration
}

func NewGRPCServer(a string, l logging.Logger, ts transferSvc, as adminSvc, secretKey string, maxUploadSize int64) *GRPCServer {
	return &GRPCServer{
		address:          a,
		logger:           l.With("module", "grpc_server"),
		transfer:         ts,
		admin:            as,
		jwtSecret:        []byte(secretKey),
		maxUploadSize:    maxUploadSize,
		healthCheckEvery: 10 * time.Second,
	}
}

// recvLimit is the largest upload message accepted. Byte fields travel as
// base64 inside JSON, so the limit leaves room for the 4/3 expansion.
func recvLimit(maxUploadSize int64) int {
	return int(maxUploadSize/3*4) + 1<<20
}

func (s *GRPCServer) newServer() (*grpc.Server, *health.Server) {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(s.actorInterceptor, s.operatorInterceptor),
		grpc.ChainStreamInterceptor(s.actorStreamInterceptor),
		grpc.MaxRecvMsgSize(recvLimit(s.maxUploadSize)),
	)

	rpc.RegisterTransferServer(srv, s)
	rpc.RegisterAdminServer(srv, s)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	return srv, hs
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv, hs := s.newServer()

	go s.watchHealth(ctx, hs)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		hs.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	return srv.Serve(lis)
}

// watchHealth mirrors database reachability into the health service.
func (s *GRPCServer) watchHealth(ctx context.Context, hs *health.Server) {
	s.updateHealth(ctx, hs)

	ticker := time.NewTicker(s.healthCheckEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.updateHealth(ctx, hs)
		}
	}
}

func (s *GRPCServer) updateHealth(ctx context.Context, hs *health.Server) {
	st := healthpb.HealthCheckResponse_SERVING
	if err := s.transfer.Ping(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Warn(ctx, "database ping failed", "error", err)
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	hs.SetServingStatus("", st)
	hs.SetServingStatus(rpc.Transfer_ServiceDesc.ServiceName, st)
}
