// Package keycloak verifies Keycloak-issued access tokens and extracts
// the platform-relevant claims and realm roles from them.
//
// The verifier checks signature (RS256 against the realm's published
// key set), expiry, issuer, and audience. Audience acceptance has a
// deliberate fallback: tokens whose "aud" claim is absent or disjoint
// from the allow-list are still accepted when their "azp" claim names
// an allowed party. Keycloak only populates "aud" when audience mappers
// are configured, so strict audience enforcement would reject tokens
// from stock realm setups.
package keycloak

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	tcerr "github.com/tosca-platform/tosca-core/pkg/errors"
)

// tracerName is the OpenTelemetry instrumentation scope name for
// verification spans.
const tracerName = "github.com/tosca-platform/tosca-core/pkg/keycloak"

// maxTokenSize is the maximum accepted size for a token string (8 KB).
// Tokens larger than this are rejected without parsing.
const maxTokenSize = 8192

// Verifier validates Keycloak access tokens against the realm's
// signing keys and the configured issuer and audience allow-list.
//
// Verifier is safe for concurrent use.
type Verifier struct {
	cfg    Config
	keys   *KeySet
	parser *jwt.Parser
	logger *slog.Logger
	tracer trace.Tracer
}

// VerifierOption configures a [Verifier].
type VerifierOption func(*Verifier)

// WithLogger sets the logger used for verification diagnostics.
func WithLogger(logger *slog.Logger) VerifierOption {
	return func(v *Verifier) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// WithKeySet replaces the verifier's key-set cache. Used in tests and
// when several verifiers share one cache.
func WithKeySet(keys *KeySet) VerifierOption {
	return func(v *Verifier) { v.keys = keys }
}

// NewVerifier creates a token verifier for the given configuration.
// The configuration is validated; derived fields (JWKSURL, Issuer) are
// filled in from ServerURL and Realm when empty.
func NewVerifier(cfg Config, opts ...VerifierOption) (*Verifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	v := &Verifier{
		cfg: cfg,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{"RS256"}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(cfg.ClockSkew),
		),
		logger: slog.Default(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.keys == nil {
		v.keys = NewKeySet(cfg)
	}
	return v, nil
}

// Config returns the verifier's effective configuration, with derived
// fields resolved.
func (v *Verifier) Config() Config { return v.cfg }

// Verify validates a raw token string and returns its claim set.
//
// Checks performed, in order: size, signature (RS256 against the
// realm key set, resolved by the token's kid header), expiry with
// clock-skew leeway, issuer, and audience. The audience check passes
// when "aud" intersects the allow-list, or when "aud" is absent or
// disjoint but "azp" names an allowed party.
//
// Error codes: [tcerr.CodeAuthenticationExpired],
// [tcerr.CodeAuthenticationMalformed],
// [tcerr.CodeAuthenticationSignature],
// [tcerr.CodeAuthenticationIssuer],
// [tcerr.CodeAuthenticationAudience],
// [tcerr.CodeAuthenticationUnreachable].
func (v *Verifier) Verify(ctx context.Context, tokenStr string) (ClaimSet, error) {
	ctx, span := v.tracer.Start(ctx, "keycloak.Verify")
	defer span.End()

	claims, err := v.verify(ctx, tokenStr)
	if err != nil {
		span.SetAttributes(attribute.String("auth.failure_code", string(tcerr.GetCode(err))))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("auth.subject", claims.Subject()))
	return claims, nil
}

func (v *Verifier) verify(ctx context.Context, tokenStr string) (ClaimSet, error) {
	if tokenStr == "" {
		return nil, tcerr.New(tcerr.CodeAuthenticationMalformed, "keycloak: token is empty")
	}
	if len(tokenStr) > maxTokenSize {
		return nil, tcerr.Newf(tcerr.CodeAuthenticationMalformed,
			"keycloak: token exceeds maximum size of %d bytes", maxTokenSize)
	}

	token, err := v.parser.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, tcerr.New(tcerr.CodeAuthenticationMalformed,
				"keycloak: token header has no key ID")
		}
		return v.keys.Resolve(ctx, kid)
	})
	if err != nil {
		return nil, v.classifyError(err)
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, tcerr.New(tcerr.CodeAuthenticationMalformed,
			"keycloak: token claims are not a JSON object")
	}
	claims := ClaimSet(mapClaims)

	if claims.Subject() == "" {
		return nil, tcerr.New(tcerr.CodeAuthenticationMalformed,
			"keycloak: token has no subject claim")
	}

	if err := v.checkAudience(claims); err != nil {
		return nil, err
	}

	return claims, nil
}

// checkAudience enforces the audience allow-list with the authorized
// party fallback.
func (v *Verifier) checkAudience(claims ClaimSet) error {
	allowed := make(map[string]struct{}, len(v.cfg.AllowedAudiences))
	for _, a := range v.cfg.AllowedAudiences {
		allowed[a] = struct{}{}
	}

	audiences := claims.Audiences()
	for _, a := range audiences {
		if _, ok := allowed[a]; ok {
			return nil
		}
	}

	if azp := claims.AuthorizedParty(); azp != "" {
		if _, ok := allowed[azp]; ok {
			v.logger.Debug("accepting token on authorized party",
				slog.String("azp", azp),
				slog.Any("aud", audiences))
			return nil
		}
	}

	return tcerr.Newf(tcerr.CodeAuthenticationAudience,
		"keycloak: token audience %v and authorized party %q are not in the allow-list",
		audiences, claims.AuthorizedParty())
}

// classifyError maps golang-jwt parse errors to platform error codes.
// Errors raised by the key function (key-set fetch failures, unknown
// key IDs) already carry a code and pass through unchanged.
func (v *Verifier) classifyError(err error) *tcerr.Error {
	var tcError *tcerr.Error
	if errors.As(err, &tcError) {
		return tcError
	}

	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return tcerr.Wrap(err, tcerr.CodeAuthenticationExpired, "keycloak: token has expired")
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return tcerr.Wrap(err, tcerr.CodeAuthenticationExpired, "keycloak: token is not yet valid")
	case errors.Is(err, jwt.ErrTokenMalformed):
		return tcerr.Wrap(err, tcerr.CodeAuthenticationMalformed, "keycloak: token is malformed")
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return tcerr.Wrap(err, tcerr.CodeAuthenticationIssuer, "keycloak: token issuer is not trusted")
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return tcerr.Wrap(err, tcerr.CodeAuthenticationSignature, "keycloak: token signature is invalid")
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return tcerr.Wrap(err, tcerr.CodeAuthenticationSignature, "keycloak: token is unverifiable")
	default:
		return tcerr.Wrap(err, tcerr.CodeAuthenticationSignature, "keycloak: token validation failed")
	}
}

// VerifyWithTimeout is a convenience wrapper that bounds the whole
// verification, including any key-set fetch, with the given timeout.
func (v *Verifier) VerifyWithTimeout(ctx context.Context, tokenStr string, timeout time.Duration) (ClaimSet, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return v.Verify(ctx, tokenStr)
}
