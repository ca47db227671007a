package grpc

import (
	"context"
	"net"
	"strings"

	"github.com/dmitrijs2005/webxfer/internal/common"
	"github.com/dmitrijs2005/webxfer/internal/server/auth"
	"github.com/dmitrijs2005/webxfer/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

const adminMethodPrefix = "/webxfer.Admin/"

// peerActor returns the caller's host, without port, for audit and rate limiting.
func peerActor(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return ""
	}
	addr := p.Addr.String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

func (s *GRPCServer) actorInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	return handler(services.WithActor(ctx, peerActor(ctx)), req)
}

type actorStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *actorStream) Context() context.Context {
	return s.ctx
}

func (s *GRPCServer) actorStreamInterceptor(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	ctx := ss.Context()
	return handler(srv, &actorStream{ServerStream: ss, ctx: services.WithActor(ctx, peerActor(ctx))})
}

// operatorInterceptor requires a valid operator token on admin methods.
func (s *GRPCServer) operatorInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	if strings.HasPrefix(info.FullMethod, adminMethodPrefix) {

		var accessToken string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			values := md.Get(common.AccessTokenHeaderName)
			if len(values) > 0 {
				accessToken = values[0]
			}
		}
		if len(accessToken) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing token")
		}

		claims, err := auth.ParseToken(accessToken, s.jwtSecret)
		if err != nil {
			s.logger.Warn(ctx, "operator token rejected", "method", info.FullMethod, "error", err)
			return nil, toStatus(err)
		}

		s.logger.Info(ctx, "operator call", "method", info.FullMethod, "subject", claims.Subject)
	}

	return handler(ctx, req)
}
