package auth

import (
	"log/slog"
	"net/http"

	tcerr "github.com/tosca-platform/tosca-core/pkg/errors"
)

// Middleware returns an HTTP middleware that authenticates every
// request through the given [Authenticator].
//
// It extracts the Authorization bearer token, authenticates it, and
// stores the resulting [Principal] in the request context for
// downstream handlers. Requests without a bearer credential, or with
// one that fails verification, are rejected with 401; infrastructure
// failures (key set unreachable, database down) keep their own status
// so a monitoring probe can tell an outage from a bad token.
//
//	mux := http.NewServeMux()
//	mux.HandleFunc("/api/whoami", handleWhoami)
//	handler := auth.Middleware(authn)(mux)
func Middleware(authn *Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractBearerToken(r.Header.Get(HeaderAuthorization))
			if token == "" {
				http.Error(w, "missing or malformed authorization header", http.StatusUnauthorized)
				return
			}

			ctx := r.Context()
			principal, err := authn.Authenticate(ctx, token)
			if err != nil {
				status := http.StatusUnauthorized
				if e, ok := tcerr.AsError(err); ok {
					status = e.HTTPStatus()
				}
				// An unreachable key set is an outage, not a bad
				// token; report it like one.
				if tcerr.HasCode(err, tcerr.CodeAuthenticationUnreachable) {
					status = http.StatusServiceUnavailable
				}
				authn.logger.Debug("request authentication failed",
					slog.String("path", r.URL.Path),
					slog.String("error_code", string(tcerr.GetCode(err))))
				http.Error(w, "authentication failed", status)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(ctx, principal)))
		})
	}
}
