package grpc

import (
	"context"
	"time"

	"github.com/fjod/bookcart/pkg/logger"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// NewServer builds a gRPC server with tracing, request logging and panic
// recovery, and registers h on it.
func NewServer(h CartServiceServer, opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(recoverInterceptor, loggingInterceptor),
	}, opts...)

	s := grpc.NewServer(opts...)
	RegisterCartServiceServer(s, h)
	return s
}

func loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	logger.FromContext(ctx).Info().
		Str("method", info.FullMethod).
		Str("code", status.Code(err).String()).
		Dur("elapsed", time.Since(start)).
		Msg("grpc request")
	return resp, err
}

func recoverInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.FromContext(ctx).Error().Interface("panic", r).Str("method", info.FullMethod).Msg("grpc handler panicked")
			err = status.Error(codes.Internal, "internal error")
		}
	}()
	return handler(ctx, req)
}
