package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func contextWithBearer(token string) context.Context {
	md := metadata.Pairs(HeaderAuthorization, "Bearer "+token)
	return metadata.NewIncomingContext(context.Background(), md)
}

func TestUnaryServerInterceptor_Authenticated(t *testing.T) {
	key := testSignKey(t)
	verifier := testVerifier(t, key, "kid-1")
	authn := NewAuthenticator(verifier, newMemStore())
	token := testSignToken(t, key, "kid-1", testClaims())

	interceptor := UnaryServerInterceptor(authn)

	var seen *Principal
	resp, err := interceptor(contextWithBearer(token), "request",
		&grpc.UnaryServerInfo{FullMethod: "/tosca.v1.Accounts/Whoami"},
		func(ctx context.Context, req any) (any, error) {
			seen = MustPrincipalFromContext(ctx)
			return "response", nil
		})

	require.NoError(t, err)
	assert.Equal(t, "response", resp)
	require.NotNil(t, seen)
	assert.Equal(t, "mrossi", seen.Username())
}

func TestUnaryServerInterceptor_MissingMetadata(t *testing.T) {
	key := testSignKey(t)
	verifier := testVerifier(t, key, "kid-1")
	authn := NewAuthenticator(verifier, newMemStore())

	interceptor := UnaryServerInterceptor(authn)
	_, err := interceptor(context.Background(), "request",
		&grpc.UnaryServerInfo{},
		func(ctx context.Context, req any) (any, error) {
			t.Fatal("handler must not run without metadata")
			return nil, nil
		})

	require.Error(t, err)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestUnaryServerInterceptor_ExpiredToken(t *testing.T) {
	key := testSignKey(t)
	verifier := testVerifier(t, key, "kid-1")
	authn := NewAuthenticator(verifier, newMemStore())

	claims := testClaims()
	claims["exp"] = time.Now().Add(-time.Hour).Unix()
	token := testSignToken(t, key, "kid-1", claims)

	interceptor := UnaryServerInterceptor(authn)
	_, err := interceptor(contextWithBearer(token), "request",
		&grpc.UnaryServerInfo{},
		func(ctx context.Context, req any) (any, error) {
			t.Fatal("handler must not run for an expired token")
			return nil, nil
		})

	require.Error(t, err)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestUnaryServerInterceptor_MalformedAuthorization(t *testing.T) {
	key := testSignKey(t)
	verifier := testVerifier(t, key, "kid-1")
	authn := NewAuthenticator(verifier, newMemStore())

	md := metadata.Pairs(HeaderAuthorization, "Basic dXNlcjpwYXNz")
	ctx := metadata.NewIncomingContext(context.Background(), md)

	interceptor := UnaryServerInterceptor(authn)
	_, err := interceptor(ctx, "request", &grpc.UnaryServerInfo{},
		func(ctx context.Context, req any) (any, error) {
			t.Fatal("handler must not run")
			return nil, nil
		})

	require.Error(t, err)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

// fakeServerStream carries only a context, which is all the wrapped
// stream needs for these tests.
type fakeServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *fakeServerStream) Context() context.Context { return s.ctx }

func TestStreamServerInterceptor_Authenticated(t *testing.T) {
	key := testSignKey(t)
	verifier := testVerifier(t, key, "kid-1")
	authn := NewAuthenticator(verifier, newMemStore())
	token := testSignToken(t, key, "kid-1", testClaims())

	interceptor := StreamServerInterceptor(authn)

	var seen *Principal
	err := interceptor("service", &fakeServerStream{ctx: contextWithBearer(token)},
		&grpc.StreamServerInfo{FullMethod: "/tosca.v1.Accounts/Watch"},
		func(srv any, stream grpc.ServerStream) error {
			seen = MustPrincipalFromContext(stream.Context())
			return nil
		})

	require.NoError(t, err)
	require.NotNil(t, seen)
	assert.Equal(t, "mrossi", seen.Username())
}

func TestStreamServerInterceptor_Unauthenticated(t *testing.T) {
	key := testSignKey(t)
	verifier := testVerifier(t, key, "kid-1")
	authn := NewAuthenticator(verifier, newMemStore())

	interceptor := StreamServerInterceptor(authn)
	err := interceptor("service", &fakeServerStream{ctx: context.Background()},
		&grpc.StreamServerInfo{},
		func(srv any, stream grpc.ServerStream) error {
			t.Fatal("handler must not run")
			return nil
		})

	require.Error(t, err)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}
