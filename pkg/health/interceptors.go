package health

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// LoggingUnaryInterceptor logs every unary call with the caller's client ID when one was sent.
func LoggingUnaryInterceptor(logger zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		e := logger.Debug()
		if err != nil {
			e = logger.Warn().Err(err)
		}
		if clientID, ok := ExtractClientIDHeader(ctx); ok {
			e = e.Str("client_id", clientID)
		}
		e.Str("method", info.FullMethod).
			Str("code", status.Code(err).String()).
			Dur("duration", time.Since(start)).
			Msg("Handled gRPC call")
		return resp, err
	}
}

// clientIDUnaryInterceptor returns a gRPC client interceptor that adds a client ID to outgoing calls.
func clientIDUnaryInterceptor(clientID string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = SetClientIDHeader(ctx, clientID)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}
