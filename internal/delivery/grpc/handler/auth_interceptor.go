package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"storefront/internal/auth"
)

// AuthInterceptor requires a bearer token in the "authorization" metadata
// and attaches the caller identity to the context.
func AuthInterceptor(verifier *auth.Verifier) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		md, _ := metadata.FromIncomingContext(ctx)

		var token string
		for _, v := range md.Get("authorization") {
			if t, ok := auth.BearerToken(v); ok {
				token = t
				break
			}
		}
		if token == "" {
			return nil, status.Error(codes.Unauthenticated, "authorization token missing")
		}

		id, err := verifier.Parse(token)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "invalid or expired token")
		}

		return handler(auth.WithIdentity(ctx, id), req)
	}
}
