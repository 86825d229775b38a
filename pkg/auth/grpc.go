package auth

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	tcerr "github.com/tosca-platform/tosca-core/pkg/errors"
)

// UnaryServerInterceptor returns a gRPC unary server interceptor that
// authenticates each call through the given [Authenticator]. The bearer
// token is read from the "authorization" metadata key and the resulting
// [Principal] is stored in the handler context.
//
// Authentication failures map to Unauthenticated; an unreachable key
// set or database maps to Unavailable so clients can retry.
func UnaryServerInterceptor(authn *Authenticator) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		ctx, err := authenticateGRPC(ctx, authn)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// StreamServerInterceptor returns the stream-side counterpart of
// [UnaryServerInterceptor]. The stream is wrapped so the handler sees
// the authenticated context.
func StreamServerInterceptor(authn *Authenticator) grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		ctx, err := authenticateGRPC(ss.Context(), authn)
		if err != nil {
			return err
		}
		return handler(srv, &wrappedServerStream{ServerStream: ss, ctx: ctx})
	}
}

func authenticateGRPC(ctx context.Context, authn *Authenticator) (context.Context, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ctx, status.Error(codes.Unauthenticated, "missing metadata")
	}

	values := md.Get(HeaderAuthorization)
	if len(values) == 0 {
		return ctx, status.Error(codes.Unauthenticated, "missing authorization metadata")
	}
	token := ExtractBearerToken(values[0])
	if token == "" {
		return ctx, status.Error(codes.Unauthenticated, "invalid authorization format")
	}

	principal, err := authn.Authenticate(ctx, token)
	if err != nil {
		return ctx, status.Error(grpcCode(err), "authentication failed")
	}

	return ContextWithPrincipal(ctx, principal), nil
}

// grpcCode maps an authentication error to a gRPC status code. The
// message is never forwarded so token handling detail stays out of
// client-visible errors.
func grpcCode(err error) codes.Code {
	switch {
	case tcerr.HasCode(err, tcerr.CodeAuthenticationUnreachable):
		return codes.Unavailable
	case tcerr.IsAuthentication(err):
		return codes.Unauthenticated
	case tcerr.IsRetryable(err):
		return codes.Unavailable
	default:
		return codes.Internal
	}
}

// wrappedServerStream overrides the stream context with the
// authenticated one.
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}
