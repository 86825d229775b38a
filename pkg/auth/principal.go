// Package auth authenticates requests against Keycloak-issued bearer
// tokens and browser sessions.
//
// The central type is [Authenticator], which turns a raw bearer token
// into a [Principal]: the verified claims, the extracted realm roles,
// and the local account the token maps to. [Middleware] and the gRPC
// interceptors wrap it for the two transports; [LoginFlow] covers the
// browser path, where the token arrives via the identity-provider
// handshake instead of an Authorization header.
package auth

import (
	"context"
	"strings"

	"github.com/tosca-platform/tosca-core/pkg/account"
	"github.com/tosca-platform/tosca-core/pkg/keycloak"
)

// HeaderAuthorization is the authorization header carrying the bearer
// token. Lowercase so the same constant works for gRPC metadata keys;
// net/http canonicalizes header names on lookup.
const HeaderAuthorization = "authorization"

// bearerPrefix is the expected scheme prefix of the authorization value.
const bearerPrefix = "Bearer "

// Principal is an authenticated caller: the local account, the verified
// token claims, and the realm roles in effect for this request.
type Principal struct {
	Account *account.Account
	Claims  keycloak.ClaimSet
	Roles   keycloak.RoleSet
}

// Username returns the account username.
func (p *Principal) Username() string { return p.Account.Username }

// Subject returns the Keycloak subject the token was issued for.
func (p *Principal) Subject() string { return p.Claims.Subject() }

// HasRole reports whether the realm granted the named role.
func (p *Principal) HasRole(role string) bool { return p.Roles.Has(role) }

// contextKey is unexported so no other package can collide with our
// context values.
type contextKey int

const principalKey contextKey = iota

// ContextWithPrincipal returns a context carrying the principal. Called
// by [Middleware] and the gRPC interceptors after authentication
// succeeds.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext retrieves the principal set by the
// authentication layer. The second return is false when the request was
// not authenticated.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok
}

// MustPrincipalFromContext retrieves the principal, panicking when
// absent. Only for handlers that are guaranteed to sit behind the
// authentication middleware.
func MustPrincipalFromContext(ctx context.Context) *Principal {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		panic("auth: no principal in context; is the authentication middleware installed?")
	}
	return p
}

// ExtractBearerToken returns the token from an authorization header
// value, or "" when the value is absent or not a bearer credential. The
// scheme comparison is case-insensitive per RFC 7235.
func ExtractBearerToken(authHeader string) string {
	if len(authHeader) <= len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return authHeader[len(bearerPrefix):]
}
