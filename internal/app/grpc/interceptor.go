package grpcapp

import (
	"context"
	"log/slog"
	"strings"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const createItemMethod = "/catalogue.CatalogueService/CreateItem"

type Sessions interface {
	Authenticated(token string) bool
}

// InterceptorLogger adapts slog logger to interceptor logger.
func InterceptorLogger(l *slog.Logger) logging.Logger {
	return logging.LoggerFunc(func(ctx context.Context, lvl logging.Level, msg string, fields ...any) {
		l.Log(ctx, slog.Level(lvl), msg, fields...)
	})
}

// AuthInterceptor requires an admin session token in the authorization
// metadata for CreateItem. Reads stay public.
func AuthInterceptor(sessions Sessions) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if info.FullMethod != createItemMethod {
			return handler(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "authentication is required")
		}
		tkn := md.Get("authorization")
		if len(tkn) == 0 || tkn[0] == "" {
			return nil, status.Error(codes.Unauthenticated, "authentication is required")
		}

		if !sessions.Authenticated(strings.TrimPrefix(tkn[0], "Bearer ")) {
			return nil, status.Error(codes.Unauthenticated, "authentication failed")
		}

		return handler(ctx, req)
	}
}
